package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sprintquest/internal/model"
)

// SessionCache holds the live sprint state of each session
type SessionCache interface {
	SetState(ctx context.Context, state *model.SprintState) error
	GetState(ctx context.Context, sessionID string) (*model.SprintState, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

func (c *sessionCache) SetState(ctx context.Context, state *model.SprintState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stateKey(state.SessionID), data, c.ttl).Err()
}

func (c *sessionCache) GetState(ctx context.Context, sessionID string) (*model.SprintState, error) {
	data, err := c.client.Get(ctx, stateKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.SprintState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Delete removes every key kept for the session
func (c *sessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx,
		stateKey(sessionID),
		playersKey(sessionID),
		historyKey(sessionID),
		tallyKey(sessionID),
	).Err()
}
