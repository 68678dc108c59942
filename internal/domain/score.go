package domain

import "time"

// ScoreEvent is the immutable record emitted when a game session ends.
// Events are append-only; they are removed only when their player is
// deleted.
type ScoreEvent struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	GameID     string    `json:"game_id"`
	Score      int64     `json:"score"`
	TimePlayed int64     `json:"time_played"`
	CreatedAt  time.Time `json:"created_at"`
}

// HighScore is the cached per-(player, game) maximum. AchievedAt is the
// timestamp of the event that currently holds the maximum; an equal later
// score never moves it.
type HighScore struct {
	PlayerID   string    `json:"player_id"`
	GameID     string    `json:"game_id"`
	HighScore  int64     `json:"high_score"`
	AchievedAt time.Time `json:"achieved_at"`
}

// ScoreSubmission is a request to record a finished game session.
// EventID is optional; clients that retry a submission should supply one
// so replays are detected instead of double-counted.
type ScoreSubmission struct {
	EventID    string `json:"event_id,omitempty"`
	PlayerID   string `json:"player_id"`
	GameID     string `json:"game_id"`
	Score      int64  `json:"score"`
	TimePlayed int64  `json:"time_played,omitempty"`
}

// Validate checks the submission against the portal's score rules.
func (s *ScoreSubmission) Validate() error {
	if s.PlayerID == "" {
		return ErrInvalidRequest
	}
	if !IsKnownGame(s.GameID) {
		return ErrUnknownGame
	}
	if s.Score < 0 {
		return ErrInvalidScore
	}
	if s.TimePlayed < 0 {
		return ErrInvalidArgument
	}
	return nil
}

// LeaderboardRow is one ranked (player, game) pair. Without a game
// filter a player appears once per game played, never deduplicated.
type LeaderboardRow struct {
	Rank       int       `json:"rank"`
	Player     Player    `json:"player"`
	GameID     string    `json:"game_id"`
	HighScore  int64     `json:"high_score"`
	AchievedAt time.Time `json:"achieved_at"`
}
