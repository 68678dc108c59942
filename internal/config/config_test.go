package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "gamezone", cfg.Postgres.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "portal-scores", cfg.Kafka.Topic)
	assert.Equal(t, "portal-consumer", cfg.Kafka.GroupID)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10, cfg.Portal.DefaultLeaderboardLimit)
	assert.Equal(t, 100, cfg.Portal.MaxLeaderboardLimit)
	assert.Equal(t, 10, cfg.Portal.RecentScoresLimit)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "sekret")

	content := `
server:
  port: 9090
postgres:
  host: db.internal
  user: portal
  password: ${TEST_PG_PASSWORD}
redis:
  enabled: true
  addr: cache.internal:6379
kafka:
  enabled: true
  brokers:
    - broker-1:9092
    - broker-2:9092
portal:
  default_leaderboard_limit: 25
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "sekret", cfg.Postgres.Password, "env vars expand")
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Portal.DefaultLeaderboardLimit)

	// Unset fields still default
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "portal-scores", cfg.Kafka.Topic)
	assert.Equal(t, 100, cfg.Portal.MaxLeaderboardLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	pg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "portal",
		Password: "pw",
		Database: "gamezone",
	}
	assert.Equal(t, "postgres://portal:pw@db:5432/gamezone?sslmode=disable", pg.ConnectionString())
}
