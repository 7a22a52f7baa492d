package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/passtheace/internal/bot"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Timing *TimingSettings `hcl:"timing,block"`
	Bot    *BotSettings    `hcl:"bot,block"`
	Feed   *FeedSettings   `hcl:"feed,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	Seed     int64  `hcl:"seed,optional"`
}

// TimingSettings holds the pauses between automatic transitions
type TimingSettings struct {
	BotThinkMs int `hcl:"bot_think_ms,optional"`
	RevealMs   int `hcl:"reveal_ms,optional"`
}

// BotSettings selects the strategy of the bots filling empty seats
type BotSettings struct {
	Strategy string `hcl:"strategy,optional"`
}

// FeedSettings configures the optional NATS event feed
type FeedSettings struct {
	URL    string `hcl:"url,optional"`
	Prefix string `hcl:"prefix,optional"`
}

// Default timing
const (
	DefaultBotThink = 600 * time.Millisecond
	DefaultReveal   = 1800 * time.Millisecond
)

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig loads server configuration from HCL file. A missing file
// yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Timing == nil {
		c.Timing = &TimingSettings{}
	}
	if c.Bot == nil {
		c.Bot = &BotSettings{}
	}
	if c.Feed == nil {
		c.Feed = &FeedSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Timing.BotThinkMs == 0 {
		c.Timing.BotThinkMs = int(DefaultBotThink / time.Millisecond)
	}
	if c.Timing.RevealMs == 0 {
		c.Timing.RevealMs = int(DefaultReveal / time.Millisecond)
	}
	if c.Bot.Strategy == "" {
		c.Bot.Strategy = bot.Default
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}
	if c.Timing.BotThinkMs < 0 {
		return fmt.Errorf("bot_think_ms cannot be negative: %d", c.Timing.BotThinkMs)
	}
	if c.Timing.RevealMs < 0 {
		return fmt.Errorf("reveal_ms cannot be negative: %d", c.Timing.RevealMs)
	}
	if _, err := bot.New(c.Bot.Strategy, nil, nil); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// BotThink returns the pause before a bot acts
func (c *ServerConfig) BotThink() time.Duration {
	return time.Duration(c.Timing.BotThinkMs) * time.Millisecond
}

// Reveal returns the pause between the end of a round and the next deal
func (c *ServerConfig) Reveal() time.Duration {
	return time.Duration(c.Timing.RevealMs) * time.Millisecond
}
