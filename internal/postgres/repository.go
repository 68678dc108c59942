package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/store"
)

// PostgreSQL error codes surfaced as domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides PostgreSQL-backed persistence for players, score
// events and high scores.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			avatar VARCHAR(8),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			level INT NOT NULL DEFAULT 1,
			total_score BIGINT NOT NULL DEFAULT 0,
			games_played INT NOT NULL DEFAULT 0,
			high_score BIGINT NOT NULL DEFAULT 0,
			average_score BIGINT NOT NULL DEFAULT 0,
			total_play_time BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS score_events (
			id VARCHAR(64) PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			game_id VARCHAR(32) NOT NULL,
			score BIGINT NOT NULL,
			time_played BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			player_id VARCHAR(64) NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			game_id VARCHAR(32) NOT NULL,
			high_score BIGINT NOT NULL,
			achieved_at TIMESTAMP NOT NULL,
			PRIMARY KEY (player_id, game_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_events_player ON score_events(player_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_game ON high_scores(game_id, high_score DESC, achieved_at ASC)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const playerColumns = `id, name, avatar, created_at, level, total_score, games_played, high_score, average_score, total_play_time`

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Avatar,
		&p.CreatedAt,
		&p.Level,
		&p.TotalScore,
		&p.GamesPlayed,
		&p.HighScore,
		&p.AverageScore,
		&p.TotalPlayTime,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlayer inserts a new player record
func (r *Repository) CreatePlayer(ctx context.Context, p domain.Player) error {
	query := `
		INSERT INTO players (` + playerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Avatar,
		p.CreatedAt,
		p.Level,
		p.TotalScore,
		p.GamesPlayed,
		p.HighScore,
		p.AverageScore,
		p.TotalPlayTime,
	)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return p, nil
}

// ListPlayers retrieves all players, newest first
func (r *Repository) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// UpdatePlayerDerived overwrites a player's derived fields
func (r *Repository) UpdatePlayerDerived(ctx context.Context, id string, d domain.Derived) (*domain.Player, error) {
	query := `
		UPDATE players
		SET games_played = $2,
			total_score = $3,
			average_score = $4,
			high_score = $5,
			total_play_time = $6,
			level = $7
		WHERE id = $1
		RETURNING ` + playerColumns
	p, err := scanPlayer(r.pool.QueryRow(ctx, query,
		id,
		d.GamesPlayed,
		d.TotalScore,
		d.AverageScore,
		d.HighScore,
		d.TotalPlayTime,
		d.Level,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("updating player: %w", err)
	}
	return p, nil
}

// DeletePlayer removes a player; score events and high scores cascade
func (r *Repository) DeletePlayer(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// AppendScoreEvent appends an immutable score event
func (r *Repository) AppendScoreEvent(ctx context.Context, e domain.ScoreEvent) error {
	query := `
		INSERT INTO score_events (id, player_id, game_id, score, time_played, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.PlayerID,
		e.GameID,
		e.Score,
		e.TimePlayed,
		e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return domain.ErrDuplicateEvent
			case pgForeignKeyViolation:
				return domain.ErrPlayerNotFound
			}
		}
		return fmt.Errorf("appending score event: %w", err)
	}
	return nil
}

// GetScoreEvents retrieves a player's events newest first
func (r *Repository) GetScoreEvents(ctx context.Context, playerID, gameID string, limit int) ([]domain.ScoreEvent, error) {
	query := `
		SELECT id, player_id, game_id, score, time_played, created_at
		FROM score_events
		WHERE player_id = $1
	`
	args := []any{playerID}
	if gameID != "" {
		query += ` AND game_id = $2`
		args = append(args, gameID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting score events: %w", err)
	}
	defer rows.Close()

	var events []domain.ScoreEvent
	for rows.Next() {
		var e domain.ScoreEvent
		err := rows.Scan(&e.ID, &e.PlayerID, &e.GameID, &e.Score, &e.TimePlayed, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning score event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetHighScore retrieves the cached (player, game) maximum, nil if absent
func (r *Repository) GetHighScore(ctx context.Context, playerID, gameID string) (*domain.HighScore, error) {
	query := `
		SELECT player_id, game_id, high_score, achieved_at
		FROM high_scores
		WHERE player_id = $1 AND game_id = $2
	`
	var hs domain.HighScore
	err := r.pool.QueryRow(ctx, query, playerID, gameID).Scan(
		&hs.PlayerID,
		&hs.GameID,
		&hs.HighScore,
		&hs.AchievedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting high score: %w", err)
	}
	return &hs, nil
}

// UpsertHighScore records a high score only when it strictly beats the
// stored maximum, so an equal score never moves achieved_at
func (r *Repository) UpsertHighScore(ctx context.Context, hs domain.HighScore) error {
	query := `
		INSERT INTO high_scores (player_id, game_id, high_score, achieved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, game_id)
		DO UPDATE SET high_score = EXCLUDED.high_score, achieved_at = EXCLUDED.achieved_at
		WHERE high_scores.high_score < EXCLUDED.high_score
	`
	_, err := r.pool.Exec(ctx, query, hs.PlayerID, hs.GameID, hs.HighScore, hs.AchievedAt)
	if err != nil {
		return fmt.Errorf("upserting high score: %w", err)
	}
	return nil
}

// ListHighScores retrieves high score rows in leaderboard order
func (r *Repository) ListHighScores(ctx context.Context, gameID string) ([]domain.HighScore, error) {
	query := `
		SELECT player_id, game_id, high_score, achieved_at
		FROM high_scores
	`
	var args []any
	if gameID != "" {
		query += ` WHERE game_id = $1`
		args = append(args, gameID)
	}
	query += ` ORDER BY high_score DESC, achieved_at ASC, player_id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.HighScore
	for rows.Next() {
		var hs domain.HighScore
		err := rows.Scan(&hs.PlayerID, &hs.GameID, &hs.HighScore, &hs.AchievedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning high score: %w", err)
		}
		scores = append(scores, hs)
	}
	return scores, rows.Err()
}

var _ store.Store = (*Repository)(nil)
