package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sprintquest/internal/model"
)

// HistoryCache keeps the bounded metrics-history ring as a Redis list, oldest first
type HistoryCache interface {
	SetHistory(ctx context.Context, sessionID string, entries []model.HistoryEntry) error
	GetHistory(ctx context.Context, sessionID string) ([]model.HistoryEntry, error)
}

type historyCache struct {
	client *redis.Client
	size   int
	ttl    time.Duration
}

// NewHistoryCache creates a history cache that keeps at most size entries
func NewHistoryCache(client *redis.Client, size int) HistoryCache {
	return &historyCache{
		client: client,
		size:   size,
		ttl:    24 * time.Hour,
	}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

func (c *historyCache) SetHistory(ctx context.Context, sessionID string, entries []model.HistoryEntry) error {
	key := historyKey(sessionID)
	values := make([]interface{}, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values[i] = data
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.LTrim(ctx, key, int64(-c.size), -1)
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

func (c *historyCache) GetHistory(ctx context.Context, sessionID string) ([]model.HistoryEntry, error) {
	raw, err := c.client.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]model.HistoryEntry, 0, len(raw))
	for _, s := range raw {
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
