package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/redis"
	"github.com/gamezone-portal/internal/store"
)

// LeaderboardService ranks (player, game) high score pairs. Reads are
// served from the store so ordering is exact; the Redis cache only backs
// the cheap rank lookup and realtime broadcasts.
type LeaderboardService struct {
	store  store.Store
	cache  *redis.Cache
	config *config.PortalConfig
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(st store.Store, cfg *config.PortalConfig, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  st,
		config: cfg,
		logger: logger,
	}
}

// SetCache attaches the optional Redis realtime cache
func (s *LeaderboardService) SetCache(cache *redis.Cache) {
	s.cache = cache
}

// clampLimit folds invalid limits into the configured default and caps
// everything at the configured maximum.
func (s *LeaderboardService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.config.DefaultLeaderboardLimit
	}
	if limit > s.config.MaxLeaderboardLimit {
		limit = s.config.MaxLeaderboardLimit
	}
	return limit
}

// GetLeaderboard returns up to limit ranked rows, scoped to one game
// when gameID is non-empty. Rows are ordered by high score descending;
// ties rank the earlier achievement first, then the smaller player ID.
// Rows whose player no longer resolves are skipped, never an error.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, gameID string, limit int) ([]domain.LeaderboardRow, error) {
	if gameID != "" && !domain.IsKnownGame(gameID) {
		return nil, domain.ErrUnknownGame
	}
	limit = s.clampLimit(limit)

	highScores, err := s.store.ListHighScores(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}

	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	byID := make(map[string]domain.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	rows := make([]domain.LeaderboardRow, 0, limit)
	for _, hs := range highScores {
		player, ok := byID[hs.PlayerID]
		if !ok {
			// Stale reference left by an incomplete cascade; a
			// leaderboard read must not hard-fail on it.
			s.logger.Warn("skipping high score for missing player", "player_id", hs.PlayerID)
			continue
		}
		rows = append(rows, domain.LeaderboardRow{
			Rank:       len(rows) + 1,
			Player:     player,
			GameID:     hs.GameID,
			HighScore:  hs.HighScore,
			AchievedAt: hs.AchievedAt,
		})
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

// GetPlayerRank returns a player's current rank within one game's
// leaderboard. The cached ZSET answers when available; otherwise the
// rank is computed from the store.
func (s *LeaderboardService) GetPlayerRank(ctx context.Context, gameID, playerID string) (*domain.LeaderboardRow, error) {
	if !domain.IsKnownGame(gameID) {
		return nil, domain.ErrUnknownGame
	}

	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		entry, err := s.cache.GetPlayerRank(ctx, gameID, playerID)
		if err == nil {
			hs, err := s.store.GetHighScore(ctx, playerID, gameID)
			row := &domain.LeaderboardRow{
				Rank:      int(entry.Rank),
				Player:    *player,
				GameID:    gameID,
				HighScore: entry.Score,
			}
			if err == nil && hs != nil {
				row.AchievedAt = hs.AchievedAt
			}
			return row, nil
		}
		if !domain.IsNotFoundError(err) {
			s.logger.Warn("cache rank lookup failed, falling back to store", "error", err)
		}
	}

	highScores, err := s.store.ListHighScores(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}
	for i, hs := range highScores {
		if hs.PlayerID == playerID {
			return &domain.LeaderboardRow{
				Rank:       i + 1,
				Player:     *player,
				GameID:     gameID,
				HighScore:  hs.HighScore,
				AchievedAt: hs.AchievedAt,
			}, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}
