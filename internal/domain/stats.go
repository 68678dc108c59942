package domain

// PlayerStats is the read-only projection served to the presentation
// layer. The JSON field names match what the portal front end already
// consumes.
type PlayerStats struct {
	Player        Player           `json:"player"`
	TotalGames    int              `json:"totalGames"`
	TotalScore    int64            `json:"totalScore"`
	AverageScore  int64            `json:"averageScore"`
	TotalPlayTime int64            `json:"totalPlayTime"`
	BestGame      string           `json:"bestGame"`
	HighScores    map[string]int64 `json:"highScores"`
	RecentScores  []ScoreEvent     `json:"recentScores"`
}

// BestGameNone is reported when a player has no score events yet.
const BestGameNone = "none"

/// LevelForScore maps a cumulative score to a player level: one level
// per 100 points, starting at level 1.
func LevelForScore(totalScore int64) int {
	return int(totalScore/100) + 1
}

// AverageScore rounds total/games to the nearest integer, halves away
// from zero. Returns 0 when games is 0.
func AverageScore(total int64, games int) int64 {
	if games == 0 {
		return 0
	}
	g := int64(games)
	return (total + g/2) / g
}

// Derived holds the recomputable portion of a player's state.
type Derived struct {
	GamesPlayed   int
	TotalScore    int64
	AverageScore  int64
	HighScore     int64
	TotalPlayTime int64
	Level         int
	BestGame      string
	HighScores    map[string]int64
}

// DeriveStats recomputes a player's derived state from the full score
// event history. The incrementally maintained cached fields must always
// equal this derivation.
func DeriveStats(events []ScoreEvent) Derived {
	d := Derived{
		Level:      1,
		BestGame:   BestGameNone,
		HighScores: make(map[string]int64),
	}

	perGameTotal := make(map[string]int64)
	perGameCount := make(map[string]int)

	for _, e := range events {
		d.GamesPlayed++
		d.TotalScore += e.Score
		d.TotalPlayTime += e.TimePlayed
		if cur, ok := d.HighScores[e.GameID]; !ok || e.Score > cur {
			d.HighScores[e.GameID] = e.Score
		}
		perGameTotal[e.GameID] += e.Score
		perGameCount[e.GameID]++
	}

	d.AverageScore = AverageScore(d.TotalScore, d.GamesPlayed)
	d.Level = LevelForScore(d.TotalScore)

	for _, hs := range d.HighScores {
		if hs > d.HighScore {
			d.HighScore = hs
		}
	}

	// Highest per-game average wins; iterate the fixed game order so
	// equal averages resolve deterministically.
	var bestAvgNum, bestAvgDen int64
	for _, gameID := range Games() {
		count := perGameCount[gameID]
		if count == 0 {
			continue
		}
		total := perGameTotal[gameID]
		// Compare total/count > bestNum/bestDen without division.
		if d.BestGame == BestGameNone || total*bestAvgDen > bestAvgNum*int64(count) {
			d.BestGame = gameID
			bestAvgNum = total
			bestAvgDen = int64(count)
		}
	}

	return d
}
