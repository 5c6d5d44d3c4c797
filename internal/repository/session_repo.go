package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"sprintquest/internal/model"
)

// SessionRepo stores the durable session document
type SessionRepo interface {
	Save(ctx context.Context, rec *model.SessionRecord) error
	GetByID(ctx context.Context, id string) (*model.SessionRecord, error)
	GetByCode(ctx context.Context, code string) (*model.SessionRecord, error)
	ListOpen(ctx context.Context) ([]*model.SessionRecord, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a session repository and ensures its indexes
func NewSessionRepo(db *mongo.Database, logger *zap.Logger) SessionRepo {
	repo := &sessionRepo{
		collection: db.Collection("sessions"),
	}
	createIndex(context.Background(), logger, repo.collection, bson.D{
		{Key: "code", Value: 1},
		{Key: "updatedAt", Value: -1},
	}, false)
	createIndex(context.Background(), logger, repo.collection, bson.D{{Key: "status", Value: 1}}, false)
	return repo
}

// Save upserts the record by session id
func (r *sessionRepo) Save(ctx context.Context, rec *model.SessionRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetByCode returns the most recently updated session using code
func (r *sessionRepo) GetByCode(ctx context.Context, code string) (*model.SessionRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var rec model.SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListOpen returns every session that has not ended
func (r *sessionRepo) ListOpen(ctx context.Context) ([]*model.SessionRecord, error) {
	filter := bson.M{"status": bson.M{"$in": []model.SessionStatus{model.SessionWaiting, model.SessionActive}}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []*model.SessionRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func createIndex(ctx context.Context, logger *zap.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		logger.Warn("failed to create index", zap.String("collection", coll.Name()), zap.Error(err))
	}
}
