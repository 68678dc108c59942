package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
)

// Entry is one ranked member of a cached per-game leaderboard.
type Entry struct {
	Rank     int64  `json:"rank"`
	PlayerID string `json:"player_id"`
	Score    int64  `json:"score"`
}

// Cache mirrors per-game high scores into Redis sorted sets. It is a
// realtime acceleration layer for WebSocket broadcasts and rank lookups;
// the store stays authoritative and the sync worker rebuilds the cache
// from it.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// gameKey returns the Redis key for a game's sorted set
func (c *Cache) gameKey(gameID string) string {
	return fmt.Sprintf("leaderboard:%s:realtime", gameID)
}

// SetHighScore records a player's high score for a game. ZADD GT keeps
// the stored member at its maximum, matching the store's strict-greater
// upsert.
func (c *Cache) SetHighScore(ctx context.Context, gameID, playerID string, score int64) error {
	key := c.gameKey(gameID)
	err := c.client.ZAddGT(ctx, key, redis.Z{
		Score:  float64(score),
		Member: playerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("setting high score: %w", err)
	}
	return nil
}

// GetTopN returns the top N cached entries for a game
func (c *Cache) GetTopN(ctx context.Context, gameID string, n int) ([]Entry, error) {
	key := c.gameKey(gameID)
	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, result := range results {
		entries[i] = Entry{
			Rank:     int64(i + 1),
			PlayerID: result.Member.(string),
			Score:    int64(result.Score),
		}
	}
	return entries, nil
}

// GetPlayerRank returns a player's cached rank and high score for a game
func (c *Cache) GetPlayerRank(ctx context.Context, gameID, playerID string) (*Entry, error) {
	key := c.gameKey(gameID)

	pipe := c.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, key, playerID)
	scoreCmd := pipe.ZScore(ctx, key, playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player rank: %w", err)
	}

	rank, err := rankCmd.Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	score, err := scoreCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting score result: %w", err)
	}

	return &Entry{
		Rank:     rank + 1, // 0-indexed to 1-indexed
		PlayerID: playerID,
		Score:    int64(score),
	}, nil
}

// GetCount returns the number of cached players for a game
func (c *Cache) GetCount(ctx context.Context, gameID string) (int64, error) {
	count, err := c.client.ZCard(ctx, c.gameKey(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// RemovePlayer drops a player from every game's cached leaderboard
func (c *Cache) RemovePlayer(ctx context.Context, playerID string) error {
	pipe := c.client.Pipeline()
	for _, gameID := range domain.Games() {
		pipe.ZRem(ctx, c.gameKey(gameID), playerID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing player: %w", err)
	}
	return nil
}

// ResetGame clears a game's cached leaderboard
func (c *Cache) ResetGame(ctx context.Context, gameID string) error {
	if err := c.client.Del(ctx, c.gameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("resetting game: %w", err)
	}
	return nil
}

// BatchSetScores loads many high scores for a game using pipelining
func (c *Cache) BatchSetScores(ctx context.Context, gameID string, scores map[string]int64) error {
	if len(scores) == 0 {
		return nil
	}
	key := c.gameKey(gameID)
	pipe := c.client.Pipeline()
	for playerID, score := range scores {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(score),
			Member: playerID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch setting scores: %w", err)
	}
	return nil
}
