package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sprintquest/internal/model"
)

// PlayerCache keeps each session's participants in a hash keyed by name
type PlayerCache interface {
	SetPlayers(ctx context.Context, sessionID string, players []*model.Participant) error
	GetAllPlayers(ctx context.Context, sessionID string) (map[string]*model.Participant, error)
}

type playerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlayerCache creates a new player cache
func NewPlayerCache(client *redis.Client) PlayerCache {
	return &playerCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func playersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:players", sessionID)
}

// SetPlayers replaces the hash with the given participants
func (c *playerCache) SetPlayers(ctx context.Context, sessionID string, players []*model.Participant) error {
	key := playersKey(sessionID)
	fields := make([]interface{}, 0, 2*len(players))
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		fields = append(fields, p.Name, data)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields...)
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

func (c *playerCache) GetAllPlayers(ctx context.Context, sessionID string) (map[string]*model.Participant, error) {
	data, err := c.client.HGetAll(ctx, playersKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	players := make(map[string]*model.Participant)
	for name, jsonStr := range data {
		var p model.Participant
		if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
			continue
		}
		players[name] = &p
	}
	return players, nil
}
