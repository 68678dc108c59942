package store

import (
	"context"

	"github.com/gamezone-portal/internal/domain"
)

// Store is the persistence gateway contract shared by the in-memory
// store and the PostgreSQL repository. Implementations guarantee
// single-statement atomicity per call; cross-call sequencing is the
// caller's responsibility.
type Store interface {
	// CreatePlayer inserts a new player record.
	CreatePlayer(ctx context.Context, p domain.Player) error

	// GetPlayer returns a player by ID or domain.ErrPlayerNotFound.
	GetPlayer(ctx context.Context, id string) (*domain.Player, error)

	// ListPlayers returns all players, newest first.
	ListPlayers(ctx context.Context) ([]domain.Player, error)

	// UpdatePlayerDerived overwrites a player's derived fields and
	// returns the updated snapshot.
	UpdatePlayerDerived(ctx context.Context, id string, d domain.Derived) (*domain.Player, error)

	// DeletePlayer removes a player and cascades to their score events
	// and high scores.
	DeletePlayer(ctx context.Context, id string) error

	// AppendScoreEvent appends an immutable score event. A replayed
	// event ID yields domain.ErrDuplicateEvent; an unresolvable player
	// yields domain.ErrPlayerNotFound.
	AppendScoreEvent(ctx context.Context, e domain.ScoreEvent) error

	// GetScoreEvents returns a player's events newest first, optionally
	// filtered to one game. limit <= 0 means no limit.
	GetScoreEvents(ctx context.Context, playerID, gameID string, limit int) ([]domain.ScoreEvent, error)

	// GetHighScore returns the cached (player, game) maximum, or nil
	// when the pair has no events yet.
	GetHighScore(ctx context.Context, playerID, gameID string) (*domain.HighScore, error)

	// UpsertHighScore records hs if the pair is absent or hs.HighScore
	// strictly exceeds the stored maximum. An equal score never moves
	// AchievedAt.
	UpsertHighScore(ctx context.Context, hs domain.HighScore) error

	// ListHighScores returns high score rows ordered by score
	// descending, then earliest AchievedAt, then player ID. Empty
	// gameID means all games.
	ListHighScores(ctx context.Context, gameID string) ([]domain.HighScore, error)
}
