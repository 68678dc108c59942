package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/redis"
	"github.com/gamezone-portal/internal/store"
)

// SyncWorker periodically rebuilds the Redis leaderboard cache from the
// authoritative store, and once at startup for recovery after a cache
// flush.
type SyncWorker struct {
	store   store.Store
	cache   *redis.Cache
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	st store.Store,
	cache *redis.Cache,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		store:  st,
		cache:  cache,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.SyncAllGames(ctx); err != nil {
				w.logger.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// SyncAllGames rebuilds every game's cached leaderboard from the store
func (w *SyncWorker) SyncAllGames(ctx context.Context) error {
	w.logger.Info("starting sync cycle")
	startTime := time.Now()

	syncedCount := 0
	errorCount := 0

	for _, gameID := range domain.Games() {
		if err := w.syncGame(ctx, gameID); err != nil {
			w.logger.Error("failed to sync game leaderboard",
				"game_id", gameID,
				"error", err,
			)
			errorCount++
		} else {
			syncedCount++
		}
	}

	w.logger.Info("sync cycle completed",
		"duration", time.Since(startTime),
		"synced", syncedCount,
		"errors", errorCount,
	)
	return nil
}

// syncGame loads one game's high scores into the cache
func (w *SyncWorker) syncGame(ctx context.Context, gameID string) error {
	highScores, err := w.store.ListHighScores(ctx, gameID)
	if err != nil {
		return err
	}

	if len(highScores) == 0 {
		w.logger.Debug("no high scores to sync", "game_id", gameID)
		return nil
	}

	scores := make(map[string]int64, len(highScores))
	for _, hs := range highScores {
		scores[hs.PlayerID] = hs.HighScore
	}

	if err := w.cache.BatchSetScores(ctx, gameID, scores); err != nil {
		return err
	}

	w.logger.Debug("synced game leaderboard",
		"game_id", gameID,
		"player_count", len(scores),
	)
	return nil
}
