package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, uint16(8080), cfg.HTTP.Port)
	assert.Equal(t, 50, cfg.Relay.HistoryLimit)
	assert.Equal(t, time.Duration(0), cfg.Relay.IdleRoomExpiry)
	assert.True(t, cfg.Relay.SurfaceUnauthorized)
	assert.Equal(t, 64, cfg.Relay.SendBuffer)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "relay", cfg.Mongo.Database)
	assert.Empty(t, cfg.RabbitMQ.URI)
	assert.Equal(t, "zap", cfg.Logger.Logger)
}

func TestLoad_FromFile(t *testing.T) {
	content := `
http:
  port: 9090
relay:
  history_limit: 25
  idle_room_expiry: 15m
  surface_unauthorized: false
mongo:
  database: relay_test
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.HTTP.Port)
	assert.Equal(t, 25, cfg.Relay.HistoryLimit)
	assert.Equal(t, 15*time.Minute, cfg.Relay.IdleRoomExpiry)
	assert.False(t, cfg.Relay.SurfaceUnauthorized)
	assert.Equal(t, "relay_test", cfg.Mongo.Database)

	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 64, cfg.Relay.SendBuffer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("MONGODB_URI", "mongodb://mongo:27017")
	t.Setenv("RELAY_HISTORY_LIMIT", "10")
	t.Setenv("RELAY_IDLE_ROOM_EXPIRY_MINUTES", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint16(7070), cfg.HTTP.Port)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, 10, cfg.Relay.HistoryLimit)
	assert.Equal(t, 5*time.Minute, cfg.Relay.IdleRoomExpiry)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
