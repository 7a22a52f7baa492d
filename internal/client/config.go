package client

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/passtheace/internal/room"
)

// ClientConfig represents the complete client configuration
type ClientConfig struct {
	Server *ServerConnection `hcl:"server,block"`
	Player *PlayerSettings   `hcl:"player,block"`
	Table  *TableSettings    `hcl:"table,block"`
	UI     *UISettings       `hcl:"ui,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	ConnectTimeout int    `hcl:"connect_timeout,optional"`
}

// PlayerSettings contains player-specific settings
type PlayerSettings struct {
	Name string `hcl:"name,optional"`
	Room string `hcl:"room,optional"`
}

// TableSettings are the options of rooms this client creates
type TableSettings struct {
	Mode         string `hcl:"mode,optional"`
	Seats        int    `hcl:"seats,optional"`
	Pace         string `hcl:"pace,optional"`
	Lives        int    `hcl:"lives,optional"`
	SinglePlayer bool   `hcl:"single_player,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadClientConfig loads client configuration from HCL file. A missing file
// yields the defaults.
func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ClientConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ClientConfig) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerConnection{}
	}
	if c.Player == nil {
		c.Player = &PlayerSettings{}
	}
	if c.Table == nil {
		c.Table = &TableSettings{}
	}
	if c.UI == nil {
		c.UI = &UISettings{}
	}

	if c.Server.URL == "" {
		c.Server.URL = "http://localhost:8080"
	}
	if c.Server.ConnectTimeout == 0 {
		c.Server.ConnectTimeout = 10
	}
	if c.UI.LogLevel == "" {
		c.UI.LogLevel = "warn"
	}
	if c.UI.LogFile == "" {
		c.UI.LogFile = "passtheace-client.log"
	}
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if _, err := WebSocketURL(c.Server.URL); err != nil {
		return err
	}
	if c.Player.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if c.Server.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if _, err := log.ParseLevel(c.UI.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.UI.LogLevel, err)
	}
	return nil
}

// ConnectTimeout returns how long to wait for the server
func (c *ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeout) * time.Second
}

// RoomOptions returns the normalized options for a new room
func (c *ClientConfig) RoomOptions() room.Options {
	return room.Options{
		Mode:         room.Mode(c.Table.Mode),
		Seats:        c.Table.Seats,
		Pace:         room.Pace(c.Table.Pace),
		Lives:        c.Table.Lives,
		SinglePlayer: c.Table.SinglePlayer,
	}.Normalize()
}
