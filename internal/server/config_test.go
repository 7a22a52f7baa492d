package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, DefaultBotThink, cfg.BotThink())
	assert.Equal(t, DefaultReveal, cfg.Reveal())
	assert.Equal(t, "threshold", cfg.Bot.Strategy)
	assert.Empty(t, cfg.Feed.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9090
  log_level = "debug"
  seed      = 7
}

timing {
  bot_think_ms = 250
  reveal_ms    = 1000
}

bot {
  strategy = "rand"
}

feed {
  url    = "nats://localhost:4222"
  prefix = "cards"
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, int64(7), cfg.Server.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.BotThink())
	assert.Equal(t, time.Second, cfg.Reveal())
	assert.Equal(t, "rand", cfg.Bot.Strategy)
	assert.Equal(t, "nats://localhost:4222", cfg.Feed.URL)
	assert.Equal(t, "cards", cfg.Feed.Prefix)
}

func TestLoadServerConfigPartial(t *testing.T) {
	cfg, err := LoadServerConfig(writeConfig(t, `
timing {
  reveal_ms = 500
}
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultBotThink, cfg.BotThink())
	assert.Equal(t, 500*time.Millisecond, cfg.Reveal())
}

func TestLoadServerConfigInvalid(t *testing.T) {
	_, err := LoadServerConfig(writeConfig(t, `server { port = `))
	assert.Error(t, err)

	_, err = LoadServerConfig(writeConfig(t, `server { colour = "red" }`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ServerConfig)
	}{
		{"port too low", func(c *ServerConfig) { c.Server.Port = -1 }},
		{"port too high", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"log level", func(c *ServerConfig) { c.Server.LogLevel = "chatty" }},
		{"bot think", func(c *ServerConfig) { c.Timing.BotThinkMs = -5 }},
		{"reveal", func(c *ServerConfig) { c.Timing.RevealMs = -5 }},
		{"strategy", func(c *ServerConfig) { c.Bot.Strategy = "psychic" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
