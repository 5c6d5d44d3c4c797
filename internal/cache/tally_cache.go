package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TallyCache keeps the effective vote count per work item in a sorted set
type TallyCache interface {
	SetTally(ctx context.Context, sessionID string, tally map[string]int) error
	GetTop(ctx context.Context, sessionID string, limit int) ([]TallyEntry, error)
}

// TallyEntry is one ranked item of the vote tally
type TallyEntry struct {
	ItemID string `json:"itemId"`
	Votes  int    `json:"votes"`
	Rank   int    `json:"rank"`
}

type tallyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTallyCache creates a new tally cache
func NewTallyCache(client *redis.Client) TallyCache {
	return &tallyCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func tallyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:tally", sessionID)
}

// SetTally replaces the sorted set with tally
func (c *tallyCache) SetTally(ctx context.Context, sessionID string, tally map[string]int) error {
	key := tallyKey(sessionID)
	members := make([]redis.Z, 0, len(tally))
	for itemID, votes := range tally {
		members = append(members, redis.Z{Score: float64(votes), Member: itemID})
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

func (c *tallyCache) GetTop(ctx context.Context, sessionID string, limit int) ([]TallyEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, tallyKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]TallyEntry, len(results))
	for i, z := range results {
		entries[i] = TallyEntry{
			ItemID: z.Member.(string),
			Votes:  int(z.Score),
			Rank:   i + 1,
		}
	}
	return entries, nil
}
