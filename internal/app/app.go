package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"sprintquest/internal/cache"
	"sprintquest/internal/config"
	"sprintquest/internal/repository"
	"sprintquest/internal/service"
)

// App holds the connected stores shared by the services
type App struct {
	Mongo *mongo.Client
	Redis *redis.Client

	SessionRepo repository.SessionRepo
	PlayerRepo  repository.PlayerRepo

	SessionCache cache.SessionCache
	PlayerCache  cache.PlayerCache
	HistoryCache cache.HistoryCache
	TallyCache   cache.TallyCache
	CodeCache    cache.CodeCache
	Feed         cache.Feed

	logger *zap.Logger
}

// Connect dials MongoDB and Redis, pings both and builds the stores on top
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr()))

	db := mongoClient.Database(cfg.MongoDatabase)
	return &App{
		Mongo:        mongoClient,
		Redis:        rdb,
		SessionRepo:  repository.NewSessionRepo(db, logger),
		PlayerRepo:   repository.NewPlayerRepo(db, logger),
		SessionCache: cache.NewSessionCache(rdb),
		PlayerCache:  cache.NewPlayerCache(rdb),
		HistoryCache: cache.NewHistoryCache(rdb, cfg.HistorySize),
		TallyCache:   cache.NewTallyCache(rdb),
		CodeCache:    cache.NewCodeCache(rdb),
		Feed:         cache.NewFeed(rdb, logger),
		logger:       logger,
	}, nil
}

// ReplicationTargets returns every store a session snapshot is copied to
func (a *App) ReplicationTargets() service.ReplicationTargets {
	return service.ReplicationTargets{
		Sessions:   a.SessionCache,
		Players:    a.PlayerCache,
		History:    a.HistoryCache,
		Tally:      a.TallyCache,
		Records:    a.SessionRepo,
		PlayerRows: a.PlayerRepo,
		Feed:       a.Feed,
	}
}

// Close releases both connections
func (a *App) Close(ctx context.Context) {
	if err := a.Redis.Close(); err != nil {
		a.logger.Warn("failed to close Redis", zap.Error(err))
	}
	if err := a.Mongo.Disconnect(ctx); err != nil {
		a.logger.Warn("failed to disconnect MongoDB", zap.Error(err))
	}
}
