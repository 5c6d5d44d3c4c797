package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"sprintquest/internal/model"
)

// PlayerRepo keeps one row per participant, keyed by session and name
type PlayerRepo interface {
	SaveAll(ctx context.Context, sessionID string, players []*model.PlayerRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.PlayerRecord, error)
}

type playerRepo struct {
	collection *mongo.Collection
}

// NewPlayerRepo creates a player repository and ensures its indexes
func NewPlayerRepo(db *mongo.Database, logger *zap.Logger) PlayerRepo {
	repo := &playerRepo{
		collection: db.Collection("players"),
	}
	createIndex(context.Background(), logger, repo.collection, bson.D{
		{Key: "sessionId", Value: 1},
		{Key: "name", Value: 1},
	}, true)
	return repo
}

// SaveAll upserts every row in one bulk write
func (r *playerRepo) SaveAll(ctx context.Context, sessionID string, players []*model.PlayerRecord) error {
	if len(players) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(players))
	for _, p := range players {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"sessionId": sessionID, "name": p.Name}).
			SetReplacement(p).
			SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, models)
	return err
}

func (r *playerRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.PlayerRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*model.PlayerRecord
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}
