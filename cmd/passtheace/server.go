package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/passtheace/cmd/passtheace/shared"
	"github.com/lox/passtheace/internal/feed"
	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/server"
)

// ServerCmd runs the WebSocket server. Flags override the HCL file.
type ServerCmd struct {
	Config      string `short:"c" default:"passtheace-server.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"Address to bind to (overrides config)"`
	Port        int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	Seed        *int64 `help:"Deterministic RNG seed (overrides config)"`
	BotStrategy string `help:"Strategy of bots filling seats (overrides config)"`
	NatsURL     string `name:"nats-url" help:"Publish room events to this NATS server (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var logger *log.Logger
	if cfg.Server.LogFile != "" {
		var closeLog func()
		logger, closeLog, err = shared.SetupFileLogger(cfg.Server.LogFile, cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		defer closeLog()
	} else if logger, err = shared.SetupLogger(os.Stderr, cfg.Server.LogLevel); err != nil {
		return err
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = randutil.Seed()
		logger.Info("Using random seed", "seed", seed)
	} else {
		logger.Info("Using deterministic seed", "seed", seed)
	}

	var publisher server.EventPublisher
	if cfg.Feed.URL != "" {
		p, err := feed.Connect(cfg.Feed.URL, cfg.Feed.Prefix, logger)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	wsServer := server.NewServer(cfg.GetServerAddress(), logger)
	gameService, err := server.NewGameService(wsServer, server.ServiceConfig{
		Clock:       quartz.NewReal(),
		Seed:        seed,
		BotStrategy: cfg.Bot.Strategy,
		BotThink:    cfg.BotThink(),
		Reveal:      cfg.Reveal(),
		Feed:        publisher,
	}, logger)
	if err != nil {
		return err
	}
	wsServer.SetGameService(gameService)

	logger.Info("Starting Pass the Ace server",
		"addr", cfg.GetServerAddress(),
		"bot_strategy", cfg.Bot.Strategy,
		"bot_think", cfg.BotThink(),
		"reveal", cfg.Reveal(),
		"feed", cfg.Feed.URL != "")

	ctx := shared.SetupSignalHandler(logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- wsServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return wsServer.Stop(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (c *ServerCmd) applyOverrides(cfg *server.ServerConfig) {
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Seed != nil {
		cfg.Server.Seed = *c.Seed
	}
	if c.BotStrategy != "" {
		cfg.Bot.Strategy = c.BotStrategy
	}
	if c.NatsURL != "" {
		cfg.Feed.URL = c.NatsURL
	}
}
