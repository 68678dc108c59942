package domain

// Games returns the fixed set of game IDs known to the portal.
// The front end ships exactly these ten mini-games; score submissions
// for any other game ID are rejected.
func Games() []string {
	return []string{
		GameTicTacToe,
		GameQuickMath,
		GameColorMatch,
		GameNumberGuessing,
		GamePatternMemory,
		GameReactionTime,
		GameRockPaperScissors,
		GameSimonSays,
		GameTypingSpeed,
		GameWordScramble,
	}
}

const (
	GameTicTacToe         = "tictactoe"
	GameQuickMath         = "quick-math"
	GameColorMatch        = "color-match"
	GameNumberGuessing    = "number-guessing"
	GamePatternMemory     = "pattern-memory"
	GameReactionTime      = "reaction-time"
	GameRockPaperScissors = "rock-paper-scissors"
	GameSimonSays         = "simon-says"
	GameTypingSpeed       = "typing-speed"
	GameWordScramble      = "word-scramble"
)

var knownGames = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Games()))
	for _, id := range Games() {
		m[id] = struct{}{}
	}
	return m
}()

// IsKnownGame reports whether gameID belongs to the portal's game set.
func IsKnownGame(gameID string) bool {
	_, ok := knownGames[gameID]
	return ok
}
