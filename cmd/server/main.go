package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sprintquest/internal/app"
	"sprintquest/internal/catalog"
	"sprintquest/internal/config"
	"sprintquest/internal/service"
	"sprintquest/internal/transport/rest"
	"sprintquest/internal/transport/ws"
)

// @title Sprint Quest Session API
// @version 1.0
// @description Cooperative turn-based sprint simulation sessions
// @host localhost:8080
// @BasePath /v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	logger.Info("started", zap.String("node_role", cfg.NodeRole))

	stores, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect stores", zap.Error(err))
	}
	defer stores.Close(context.Background())

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger)
	defer wsHub.Close()

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	loader := catalog.NewLoader(cfg.WorkItemsURL, cfg.EventsURL, cfg.CatalogTimeout, logger)
	replicator := service.NewReplicator(stores.ReplicationTargets(), logger)
	sessionSvc := service.NewSessionService(
		loader,
		stores.CodeCache,
		stores.SessionRepo,
		stores.PlayerRepo,
		replicator,
		authSvc,
		logger,
		service.SessionOptions{
			MaxTurns:      cfg.MaxTurns,
			HistorySize:   cfg.HistorySize,
			Authoritative: cfg.Authoritative(),
		},
	)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionSvc.SetBroadcaster(wsHub)

	if cfg.Authoritative() {
		// Warm the catalogs so the first session does not pay for the fetch
		items := loader.LoadWorkItems(ctx)
		events := loader.LoadEvents(ctx)
		logger.Info("catalogs ready", zap.Int("work_items", len(items)), zap.Int("events", len(events)))
	} else {
		opened, err := sessionSvc.OpenAllReplicas(ctx)
		if err != nil {
			logger.Error("failed to open replicas", zap.Error(err))
		}
		logger.Info("replicas opened", zap.Int("sessions", opened))
	}

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
		Logger:         logger,
		Authoritative:  cfg.Authoritative(),
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	// Reap idle sessions
	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go func() {
		ticker := time.NewTicker(cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-reapCtx.Done():
				return
			case <-ticker.C:
				if n := sessionSvc.Reap(cfg.IdleTimeout); n > 0 {
					logger.Info("reaped idle sessions", zap.Int("count", n))
				}
			}
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stopReaper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Flush every session's last snapshot before the stores close
	sessionSvc.Shutdown()
	logger.Info("server exited")
}
