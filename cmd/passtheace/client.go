package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/passtheace/cmd/passtheace/shared"
	"github.com/lox/passtheace/internal/client"
	"github.com/lox/passtheace/internal/server"
	"github.com/lox/passtheace/internal/tui"
)

// ClientCmd joins or creates a room and plays it in the terminal. Flags
// override the HCL file.
type ClientCmd struct {
	Config       string `short:"c" default:"passtheace-client.hcl" help:"Path to HCL configuration file"`
	Server       string `short:"s" help:"Server URL to connect to (overrides config)"`
	Name         string `short:"n" help:"Player name (overrides config)"`
	Room         string `short:"r" help:"Room code to join; a new room is created when empty"`
	Mode         string `help:"Mode of a new room (overrides config)"`
	Seats        int    `help:"Seats of a new room (overrides config)"`
	Pace         string `help:"Pace of a new room (overrides config)"`
	SinglePlayer bool   `help:"Let a new room start with one human"`
	LogLevel     string `short:"l" help:"Log level (overrides config)"`
	LogFile      string `help:"Log file path (overrides config)"`
	WaitHealthy  bool   `help:"Wait for the server health check before connecting"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.applyOverrides(cfg)

	if cfg.Player.Name == "" {
		fmt.Print("Enter your player name: ")
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		cfg.Player.Name = strings.TrimSpace(input)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The terminal belongs to the TUI, so logs go to a file
	logger, closeLog, err := shared.SetupFileLogger(cfg.UI.LogFile, cfg.UI.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("Starting Pass the Ace client",
		"server", cfg.Server.URL,
		"player", cfg.Player.Name,
		"room", cfg.Player.Room,
		"config", c.Config)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	defer cancel()

	if c.WaitHealthy {
		healthURL, err := server.HealthURL(cfg.Server.URL)
		if err != nil {
			return err
		}
		if err := server.WaitForHealthy(ctx, healthURL); err != nil {
			return fmt.Errorf("server not healthy: %w", err)
		}
	}

	wsClient := client.NewClient(cfg.Server.URL, logger)
	model := tui.New(wsClient, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Handlers run in arrival order, so the table sees events as they happened
	wsClient.AddEventHandler(client.AllMessages, func(msg *server.Message) {
		program.Send(tui.ServerMsg{Message: msg})
	})

	if err := wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = wsClient.Disconnect() }()

	go func() {
		<-wsClient.Done()
		program.Send(tui.DisconnectedMsg{})
	}()

	if cfg.Player.Room != "" {
		err = wsClient.Join(cfg.Player.Room, cfg.Player.Name)
	} else {
		err = wsClient.CreateRoom(cfg.Player.Name, cfg.RoomOptions())
	}
	if err != nil {
		return err
	}

	model.AddLogEntry("=== Pass the Ace ===")
	model.AddLogEntry("Connected to " + cfg.Server.URL + " as " + cfg.Player.Name)
	model.AddLogEntry("Keep your card or pass it on. The lowest card loses a life.")
	model.AddLogEntry("")

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func (c *ClientCmd) applyOverrides(cfg *client.ClientConfig) {
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Name != "" {
		cfg.Player.Name = strings.TrimSpace(c.Name)
	}
	if c.Room != "" {
		cfg.Player.Room = strings.ToUpper(strings.TrimSpace(c.Room))
	}
	if c.Mode != "" {
		cfg.Table.Mode = c.Mode
	}
	if c.Seats != 0 {
		cfg.Table.Seats = c.Seats
	}
	if c.Pace != "" {
		cfg.Table.Pace = c.Pace
	}
	if c.SinglePlayer {
		cfg.Table.SinglePlayer = true
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
}
