package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/store"
)

func TestLeaderboardOrdering(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")
	bo := mustCreatePlayer(t, stats, "Bo")

	// Ana submits first, but Bo's score is higher.
	mustRecord(t, stats, ana.ID, domain.GameQuickMath, 50)
	mustRecord(t, stats, bo.ID, domain.GameQuickMath, 90)

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameQuickMath, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, bo.ID, rows[0].Player.ID)
	assert.Equal(t, int64(90), rows[0].HighScore)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, ana.ID, rows[1].Player.ID)
	assert.Equal(t, int64(50), rows[1].HighScore)
}

func TestLeaderboardUsesHighScoreNotLatest(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")

	mustRecord(t, stats, ana.ID, domain.GameColorMatch, 80)
	mustRecord(t, stats, ana.ID, domain.GameColorMatch, 30)

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameColorMatch, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(80), rows[0].HighScore)
}

func TestLeaderboardTieBreaksByAchievedAt(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")
	bo := mustCreatePlayer(t, stats, "Bo")

	mustRecord(t, stats, ana.ID, domain.GameSimonSays, 60)
	mustRecord(t, stats, bo.ID, domain.GameSimonSays, 60)

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameSimonSays, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Ana reached the score first, so she outranks Bo.
	assert.Equal(t, ana.ID, rows[0].Player.ID)
	assert.Equal(t, bo.ID, rows[1].Player.ID)
}

func TestLeaderboardGlobalKeepsPerGameRows(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")

	mustRecord(t, stats, ana.ID, domain.GameTicTacToe, 10)
	mustRecord(t, stats, ana.ID, domain.GameQuickMath, 120)

	// Empty game ID means the global board: one row per (player, game).
	rows, err := leaderboard.GetLeaderboard(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.GameQuickMath, rows[0].GameID)
	assert.Equal(t, int64(120), rows[0].HighScore)
	assert.Equal(t, domain.GameTicTacToe, rows[1].GameID)
}

func TestLeaderboardLimitClamping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	cfg := &config.PortalConfig{
		DefaultLeaderboardLimit: 2,
		MaxLeaderboardLimit:     3,
		RecentScoresLimit:       10,
	}
	leaderboard := NewLeaderboardService(mem, cfg, logger)
	stats := NewStatsService(mem, leaderboard, cfg, logger)

	for i, name := range []string{"Ana", "Bo", "Cy", "Di", "Ed"} {
		p := mustCreatePlayer(t, stats, name)
		mustRecord(t, stats, p.ID, domain.GameTypingSpeed, int64(100-i))
	}

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameTypingSpeed, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "limit <= 0 falls back to the default")

	rows, err = leaderboard.GetLeaderboard(context.Background(), domain.GameTypingSpeed, -7)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = leaderboard.GetLeaderboard(context.Background(), domain.GameTypingSpeed, 50)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "requests above the maximum are capped")

	rows, err = leaderboard.GetLeaderboard(context.Background(), domain.GameTypingSpeed, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].HighScore)
}

func TestLeaderboardUnknownGame(t *testing.T) {
	_, leaderboard, _ := newTestServices(t)
	_, err := leaderboard.GetLeaderboard(context.Background(), "chess", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownGame)
}

func TestLeaderboardEmptyGame(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")
	mustRecord(t, stats, ana.ID, domain.GameTicTacToe, 10)

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameWordScramble, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// playerHidingStore simulates a store whose player listing is missing an
// ID still referenced by a high score row, e.g. mid-way through a
// cascade in a replicated backend.
type playerHidingStore struct {
	store.Store
	hidden string
}

func (s *playerHidingStore) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	players, err := s.Store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	kept := players[:0]
	for _, p := range players {
		if p.ID != s.hidden {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func TestLeaderboardSkipsUnresolvablePlayers(t *testing.T) {
	stats, _, mem := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")
	bo := mustCreatePlayer(t, stats, "Bo")
	mustRecord(t, stats, ana.ID, domain.GameQuickMath, 90)
	mustRecord(t, stats, bo.ID, domain.GameQuickMath, 50)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hiding := &playerHidingStore{Store: mem, hidden: ana.ID}
	leaderboard := NewLeaderboardService(hiding, testPortalConfig(), logger)

	rows, err := leaderboard.GetLeaderboard(context.Background(), domain.GameQuickMath, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bo.ID, rows[0].Player.ID)
	assert.Equal(t, 1, rows[0].Rank, "ranks stay contiguous after a skip")
}

func TestGetPlayerRank(t *testing.T) {
	stats, leaderboard, _ := newTestServices(t)
	ana := mustCreatePlayer(t, stats, "Ana")
	bo := mustCreatePlayer(t, stats, "Bo")
	mustRecord(t, stats, ana.ID, domain.GameQuickMath, 50)
	mustRecord(t, stats, bo.ID, domain.GameQuickMath, 90)

	row, err := leaderboard.GetPlayerRank(context.Background(), domain.GameQuickMath, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Rank)
	assert.Equal(t, int64(50), row.HighScore)

	_, err = leaderboard.GetPlayerRank(context.Background(), "chess", ana.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownGame)

	_, err = leaderboard.GetPlayerRank(context.Background(), domain.GameQuickMath, "ghost")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	// A real player with no score in the game has no rank.
	cy := mustCreatePlayer(t, stats, "Cy")
	_, err = leaderboard.GetPlayerRank(context.Background(), domain.GameQuickMath, cy.ID)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}
