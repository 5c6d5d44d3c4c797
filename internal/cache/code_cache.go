package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeCache maps six-character join codes to session ids
type CodeCache interface {
	Reserve(ctx context.Context, code, sessionID string) (bool, error)
	Lookup(ctx context.Context, code string) (string, error)
	Release(ctx context.Context, code string) error
}

type codeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeCache creates a new join-code index
func NewCodeCache(client *redis.Client) CodeCache {
	return &codeCache{
		client: client,
		ttl:    24 * time.Hour, // Codes expire with the session data
	}
}

func (c *codeCache) key(code string) string {
	return fmt.Sprintf("code:%s", code)
}

// Reserve claims code for sessionID; it reports false when the code is taken
func (c *codeCache) Reserve(ctx context.Context, code, sessionID string) (bool, error) {
	return c.client.SetNX(ctx, c.key(code), sessionID, c.ttl).Result()
}

func (c *codeCache) Lookup(ctx context.Context, code string) (string, error) {
	id, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

func (c *codeCache) Release(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
