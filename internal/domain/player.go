package domain

import (
	"strings"
	"time"
	"unicode"
)

// Player represents a registered portal player. The derived fields are
// recomputed after every score event and must always agree with a fresh
// derivation from the player's full event history.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Level         int   `json:"level"`
	TotalScore    int64 `json:"total_score"`
	GamesPlayed   int   `json:"games_played"`
	HighScore     int64 `json:"high_score"`
	AverageScore  int64 `json:"average_score"`
	TotalPlayTime int64 `json:"total_play_time"`
}

// AvatarFor returns the display avatar for a player name: its first
// rune, upper-cased.
func AvatarFor(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// NewPlayer builds a fresh level-1 player with zeroed derived fields.
func NewPlayer(id, name string, now time.Time) Player {
	return Player{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Avatar:    AvatarFor(name),
		CreatedAt: now,
		Level:     1,
	}
}
