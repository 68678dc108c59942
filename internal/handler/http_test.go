package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezone-portal/internal/config"
	"github.com/gamezone-portal/internal/domain"
	"github.com/gamezone-portal/internal/service"
	"github.com/gamezone-portal/internal/store"
	"github.com/gamezone-portal/internal/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	cfg := &config.PortalConfig{
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     100,
		RecentScoresLimit:       10,
	}
	leaderboard := service.NewLeaderboardService(mem, cfg, logger)
	stats := service.NewStatsService(mem, leaderboard, cfg, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()
	stats.SetHub(hub)

	h := NewHandler(stats, leaderboard, hub, logger)
	server := httptest.NewServer(h.Router())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var apiResp APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiResp))
	return resp, apiResp
}

func decodeData(t *testing.T, apiResp APIResponse, out interface{}) {
	t.Helper()
	buf, err := json.Marshal(apiResp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(buf, out))
}

func createPlayer(t *testing.T, server *httptest.Server, name string) domain.Player {
	t.Helper()
	resp, apiResp := doJSON(t, http.MethodPost, server.URL+"/api/v1/players", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, apiResp.Success)
	var player domain.Player
	decodeData(t, apiResp, &player)
	return player
}

func submitScore(t *testing.T, server *httptest.Server, sub domain.ScoreSubmission) (*http.Response, APIResponse) {
	t.Helper()
	return doJSON(t, http.MethodPost, server.URL+"/api/v1/scores", sub)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, apiResp := doJSON(t, http.MethodGet, server.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, apiResp.Success)
	}
}

func TestCreatePlayerEndpoint(t *testing.T) {
	server := newTestServer(t)

	player := createPlayer(t, server, "Ana")
	assert.NotEmpty(t, player.ID)
	assert.Equal(t, "Ana", player.Name)
	assert.Equal(t, "A", player.Avatar)
	assert.Equal(t, 1, player.Level)

	resp, apiResp := doJSON(t, http.MethodPost, server.URL+"/api/v1/players", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, apiResp.Success)
	assert.NotEmpty(t, apiResp.Error)
}

func TestGetPlayerEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	resp, apiResp := doJSON(t, http.MethodGet, server.URL+"/api/v1/players/"+ana.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Player
	decodeData(t, apiResp, &got)
	assert.Equal(t, ana.ID, got.ID)

	resp, apiResp = doJSON(t, http.MethodGet, server.URL+"/api/v1/players/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, apiResp.Success)
}

func TestListPlayersEndpoint(t *testing.T) {
	server := newTestServer(t)
	createPlayer(t, server, "Ana")
	bo := createPlayer(t, server, "Bo")

	resp, apiResp := doJSON(t, http.MethodGet, server.URL+"/api/v1/players", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var players []domain.Player
	decodeData(t, apiResp, &players)
	require.Len(t, players, 2)
	// Newest first
	assert.Equal(t, bo.ID, players[0].ID)
}

func TestSubmitScoreEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	resp, apiResp := submitScore(t, server, domain.ScoreSubmission{
		PlayerID:   ana.ID,
		GameID:     domain.GameTicTacToe,
		Score:      10,
		TimePlayed: 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, apiResp.Success)

	var result struct {
		Event  domain.ScoreEvent `json:"event"`
		Player domain.Player     `json:"player"`
	}
	decodeData(t, apiResp, &result)
	assert.NotEmpty(t, result.Event.ID)
	assert.Equal(t, int64(10), result.Event.Score)
	assert.Equal(t, 1, result.Player.GamesPlayed)
	assert.Equal(t, int64(10), result.Player.TotalScore)
}

func TestSubmitScoreErrors(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	cases := []struct {
		name       string
		sub        domain.ScoreSubmission
		wantStatus int
	}{
		{"negative score", domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameTicTacToe, Score: -1}, http.StatusBadRequest},
		{"unknown game", domain.ScoreSubmission{PlayerID: ana.ID, GameID: "chess", Score: 5}, http.StatusBadRequest},
		{"unknown player", domain.ScoreSubmission{PlayerID: "ghost", GameID: domain.GameTicTacToe, Score: 5}, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, apiResp := submitScore(t, server, c.sub)
			assert.Equal(t, c.wantStatus, resp.StatusCode)
			assert.False(t, apiResp.Success)
		})
	}
}

func TestSubmitScoreDuplicateEvent(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	sub := domain.ScoreSubmission{
		EventID:  "retry-1",
		PlayerID: ana.ID,
		GameID:   domain.GameQuickMath,
		Score:    42,
	}
	resp, _ := submitScore(t, server, sub)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, apiResp := submitScore(t, server, sub)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, apiResp.Success)
}

func TestGetPlayerStatsEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	submitScore(t, server, domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameTicTacToe, Score: 10})
	submitScore(t, server, domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameTicTacToe, Score: 7})

	resp, apiResp := doJSON(t, http.MethodGet, server.URL+"/api/v1/players/"+ana.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.PlayerStats
	decodeData(t, apiResp, &stats)
	assert.Equal(t, 2, stats.TotalGames)
	assert.Equal(t, int64(17), stats.TotalScore)
	assert.Equal(t, int64(9), stats.AverageScore)
	assert.Equal(t, map[string]int64{domain.GameTicTacToe: 10}, stats.HighScores)
	assert.Len(t, stats.RecentScores, 2)

	// recent query parameter bounds the recent list
	resp, apiResp = doJSON(t, http.MethodGet, server.URL+"/api/v1/players/"+ana.ID+"/stats?recent=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, apiResp, &stats)
	assert.Len(t, stats.RecentScores, 1)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/players/ghost/stats", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLeaderboardEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")
	bo := createPlayer(t, server, "Bo")

	submitScore(t, server, domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameQuickMath, Score: 50})
	submitScore(t, server, domain.ScoreSubmission{PlayerID: bo.ID, GameID: domain.GameQuickMath, Score: 90})

	resp, apiResp := doJSON(t, http.MethodGet, server.URL+"/api/v1/leaderboard?game_id="+domain.GameQuickMath, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []domain.LeaderboardRow
	decodeData(t, apiResp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, bo.ID, rows[0].Player.ID)
	assert.Equal(t, 1, rows[0].Rank)

	resp, apiResp = doJSON(t, http.MethodGet, server.URL+"/api/v1/leaderboard?game_id="+domain.GameQuickMath+"&limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, apiResp, &rows)
	assert.Len(t, rows, 1)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/leaderboard?game_id=chess", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlayerRankEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")
	bo := createPlayer(t, server, "Bo")

	submitScore(t, server, domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameQuickMath, Score: 50})
	submitScore(t, server, domain.ScoreSubmission{PlayerID: bo.ID, GameID: domain.GameQuickMath, Score: 90})

	url := fmt.Sprintf("%s/api/v1/leaderboard/%s/player/%s", server.URL, domain.GameQuickMath, ana.ID)
	resp, apiResp := doJSON(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var row domain.LeaderboardRow
	decodeData(t, apiResp, &row)
	assert.Equal(t, 2, row.Rank)
	assert.Equal(t, int64(50), row.HighScore)
}

func TestDeletePlayerEndpoint(t *testing.T) {
	server := newTestServer(t)
	ana := createPlayer(t, server, "Ana")

	submitScore(t, server, domain.ScoreSubmission{PlayerID: ana.ID, GameID: domain.GameTicTacToe, Score: 10})

	resp, apiResp := doJSON(t, http.MethodDelete, server.URL+"/api/v1/players/"+ana.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, apiResp.Success)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/players/"+ana.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/v1/players/"+ana.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListGamesEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, apiResp := doJSON(t, http.MethodGet, server.URL+"/api/v1/games", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []string
	decodeData(t, apiResp, &games)
	assert.Len(t, games, 10)
	assert.Contains(t, games, domain.GameTicTacToe)
}

func TestMalformedBody(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/scores", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
