package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gamezone-portal/internal/domain"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and demo
// runs without a database; construct one explicitly and inject it, there
// is no package-level instance.
type Memory struct {
	mu         sync.RWMutex
	players    map[string]domain.Player
	order      []string // player IDs in insertion order
	events     []domain.ScoreEvent
	eventIDs   map[string]struct{}
	highScores map[string]domain.HighScore // keyed playerID+"\x00"+gameID
	hsOrder    []string                    // high score keys in insertion order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		players:    make(map[string]domain.Player),
		eventIDs:   make(map[string]struct{}),
		highScores: make(map[string]domain.HighScore),
	}
}

func hsKey(playerID, gameID string) string {
	return playerID + "\x00" + gameID
}

func (m *Memory) CreatePlayer(_ context.Context, p domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.players[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *Memory) GetPlayer(_ context.Context, id string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &p, nil
}

func (m *Memory) ListPlayers(_ context.Context) ([]domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]domain.Player, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, ok := m.players[m.order[i]]; ok {
			players = append(players, p)
		}
	}
	return players, nil
}

func (m *Memory) UpdatePlayerDerived(_ context.Context, id string, d domain.Derived) (*domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	p.GamesPlayed = d.GamesPlayed
	p.TotalScore = d.TotalScore
	p.AverageScore = d.AverageScore
	p.HighScore = d.HighScore
	p.TotalPlayTime = d.TotalPlayTime
	p.Level = d.Level
	m.players[id] = p
	return &p, nil
}

func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[id]; !ok {
		return domain.ErrPlayerNotFound
	}
	delete(m.players, id)

	kept := m.events[:0]
	for _, e := range m.events {
		if e.PlayerID == id {
			delete(m.eventIDs, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept

	keptKeys := m.hsOrder[:0]
	for _, key := range m.hsOrder {
		if hs := m.highScores[key]; hs.PlayerID == id {
			delete(m.highScores, key)
			continue
		}
		keptKeys = append(keptKeys, key)
	}
	m.hsOrder = keptKeys
	return nil
}

func (m *Memory) AppendScoreEvent(_ context.Context, e domain.ScoreEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[e.PlayerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	if _, ok := m.eventIDs[e.ID]; ok {
		return domain.ErrDuplicateEvent
	}
	m.eventIDs[e.ID] = struct{}{}
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) GetScoreEvents(_ context.Context, playerID, gameID string, limit int) ([]domain.ScoreEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []domain.ScoreEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.PlayerID != playerID {
			continue
		}
		if gameID != "" && e.GameID != gameID {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *Memory) GetHighScore(_ context.Context, playerID, gameID string) (*domain.HighScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hs, ok := m.highScores[hsKey(playerID, gameID)]
	if !ok {
		return nil, nil
	}
	return &hs, nil
}

func (m *Memory) UpsertHighScore(_ context.Context, hs domain.HighScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hsKey(hs.PlayerID, hs.GameID)
	if cur, ok := m.highScores[key]; ok {
		if hs.HighScore <= cur.HighScore {
			return nil
		}
	} else {
		m.hsOrder = append(m.hsOrder, key)
	}
	m.highScores[key] = hs
	return nil
}

func (m *Memory) ListHighScores(_ context.Context, gameID string) ([]domain.HighScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make([]domain.HighScore, 0, len(m.hsOrder))
	for _, key := range m.hsOrder {
		hs := m.highScores[key]
		if gameID != "" && hs.GameID != gameID {
			continue
		}
		scores = append(scores, hs)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].HighScore != scores[j].HighScore {
			return scores[i].HighScore > scores[j].HighScore
		}
		if !scores[i].AchievedAt.Equal(scores[j].AchievedAt) {
			return scores[i].AchievedAt.Before(scores[j].AchievedAt)
		}
		return scores[i].PlayerID < scores[j].PlayerID
	})
	return scores, nil
}

var _ Store = (*Memory)(nil)
