package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sprintquest/internal/model"
)

// Feed is the append-only change feed replicas follow
type Feed interface {
	Publish(ctx context.Context, sessionID string, patch *model.StatePatch) error
	// Subscribe calls fn for every patch published for sessionID until the
	// returned cancel func is called.
	Subscribe(ctx context.Context, sessionID string, fn func(*model.StatePatch)) (func() error, error)
}

type feed struct {
	client *redis.Client
	logger *zap.Logger
}

// NewFeed creates a Redis Pub/Sub change feed
func NewFeed(client *redis.Client, logger *zap.Logger) Feed {
	return &feed{client: client, logger: logger.Named("feed")}
}

func feedChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:feed", sessionID)
}

func (f *feed) Publish(ctx context.Context, sessionID string, patch *model.StatePatch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, feedChannel(sessionID), data).Err()
}

func (f *feed) Subscribe(ctx context.Context, sessionID string, fn func(*model.StatePatch)) (func() error, error) {
	ps := f.client.Subscribe(ctx, feedChannel(sessionID))
	// Wait for the subscription confirmation so no publish is missed afterwards
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to feed: %w", err)
	}

	go func() {
		for msg := range ps.Channel() {
			var patch model.StatePatch
			if err := json.Unmarshal([]byte(msg.Payload), &patch); err != nil {
				f.logger.Warn("dropping malformed feed message",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				continue
			}
			fn(&patch)
		}
	}()
	return ps.Close, nil
}
