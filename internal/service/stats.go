package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/redis"
	"github.com/gamezone-portal/internal/store"
	"github.com/gamezone-portal/internal/websocket"
)

// StatsService turns raw score events into derived player state. It is
// the only component that mutates Player and HighScore projections, and
// only for the player a call was invoked with.
type StatsService struct {
	store       store.Store
	leaderboard *LeaderboardService
	cache       *redis.Cache
	hub         *websocket.Hub
	config      *config.PortalConfig
	logger      *slog.Logger

	// Striped per-player locks serialize writers so derived fields
	// never observe a partially applied event.
	locks [64]sync.Mutex
}

// NewStatsService creates a new stats service
func NewStatsService(
	st store.Store,
	leaderboard *LeaderboardService,
	cfg *config.PortalConfig,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		store:       st,
		leaderboard: leaderboard,
		config:      cfg,
		logger:      logger,
	}
}

// SetCache attaches the optional Redis realtime cache
func (s *StatsService) SetCache(cache *redis.Cache) {
	s.cache = cache
}

// SetHub attaches the optional WebSocket hub for broadcasting
func (s *StatsService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

func (s *StatsService) playerLock(playerID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(playerID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// CreatePlayer registers a new player
func (s *StatsService) CreatePlayer(ctx context.Context, name string) (*domain.Player, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidRequest
	}

	player := domain.NewPlayer(uuid.New().String(), name, time.Now())
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return &player, nil
}

// GetPlayer returns a player by ID
func (s *StatsService) GetPlayer(ctx context.Context, playerID string) (*domain.Player, error) {
	return s.store.GetPlayer(ctx, playerID)
}

// ListPlayers returns all registered players
func (s *StatsService) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	return s.store.ListPlayers(ctx)
}

// DeletePlayer removes a player and all their score history. This is an
// administrative operation; normal play never deletes.
func (s *StatsService) DeletePlayer(ctx context.Context, playerID string) error {
	if err := s.store.DeletePlayer(ctx, playerID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.RemovePlayer(ctx, playerID); err != nil {
			s.logger.Warn("failed to remove player from cache", "error", err)
		}
	}
	return nil
}

// RecordScore appends a score event for a finished game session and
// recomputes the player's derived state. The player must exist before
// anything is written; if the event write fails nothing else mutates.
func (s *StatsService) RecordScore(ctx context.Context, submission domain.ScoreSubmission) (*domain.ScoreEvent, *domain.Player, error) {
	if err := submission.Validate(); err != nil {
		return nil, nil, err
	}

	lock := s.playerLock(submission.PlayerID)
	lock.Lock()
	defer lock.Unlock()

	player, err := s.store.GetPlayer(ctx, submission.PlayerID)
	if err != nil {
		return nil, nil, err
	}

	eventID := submission.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}
	event := domain.ScoreEvent{
		ID:         eventID,
		PlayerID:   submission.PlayerID,
		GameID:     submission.GameID,
		Score:      submission.Score,
		TimePlayed: submission.TimePlayed,
		CreatedAt:  time.Now(),
	}

	if err := s.store.AppendScoreEvent(ctx, event); err != nil {
		return nil, nil, err
	}

	if err := s.store.UpsertHighScore(ctx, domain.HighScore{
		PlayerID:   event.PlayerID,
		GameID:     event.GameID,
		HighScore:  event.Score,
		AchievedAt: event.CreatedAt,
	}); err != nil {
		return nil, nil, fmt.Errorf("upserting high score: %w", err)
	}

	events, err := s.store.GetScoreEvents(ctx, event.PlayerID, "", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("getting score events: %w", err)
	}
	derived := domain.DeriveStats(events)
	if derived.Level < player.Level {
		// A level never decreases once reached.
		derived.Level = player.Level
	}

	updated, err := s.store.UpdatePlayerDerived(ctx, event.PlayerID, derived)
	if err != nil {
		return nil, nil, fmt.Errorf("updating player: %w", err)
	}

	s.publish(ctx, event)

	return &event, updated, nil
}

// publish pushes the event into the realtime layers, best effort
func (s *StatsService) publish(ctx context.Context, event domain.ScoreEvent) {
	if s.cache != nil {
		if err := s.cache.SetHighScore(ctx, event.GameID, event.PlayerID, event.Score); err != nil {
			s.logger.Warn("failed to update leaderboard cache", "error", err)
		}
	}

	if s.hub == nil {
		return
	}
	s.hub.BroadcastScoreRecorded(event)

	if s.hub.GetSubscriberCount(event.GameID) == 0 {
		return
	}
	rows, err := s.leaderboard.GetLeaderboard(ctx, event.GameID, 0)
	if err != nil {
		s.logger.Warn("failed to build leaderboard snapshot", "game_id", event.GameID, "error", err)
		return
	}
	s.hub.BroadcastLeaderboardUpdate(event.GameID, rows)
}

// GetPlayerStats returns the read-only stats projection for a player.
// recentLimit bounds the recent-scores list; <= 0 uses the configured
// default.
func (s *StatsService) GetPlayerStats(ctx context.Context, playerID string, recentLimit int) (*domain.PlayerStats, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if recentLimit <= 0 {
		recentLimit = s.config.RecentScoresLimit
	}

	events, err := s.store.GetScoreEvents(ctx, playerID, "", 0)
	if err != nil {
		return nil, fmt.Errorf("getting score events: %w", err)
	}
	derived := domain.DeriveStats(events)

	recent := events
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return &domain.PlayerStats{
		Player:        *player,
		TotalGames:    derived.GamesPlayed,
		TotalScore:    derived.TotalScore,
		AverageScore:  derived.AverageScore,
		TotalPlayTime: derived.TotalPlayTime,
		BestGame:      derived.BestGame,
		HighScores:    derived.HighScores,
		RecentScores:  recent,
	}, nil
}
