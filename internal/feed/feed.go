// Package feed mirrors room events onto NATS so other processes can follow
// games without holding a WebSocket.
//
// Every event is published as JSON on
//
//	<prefix>.rooms.<code>.<event type>
//
// Publishing is fire and forget: failures are logged and never reach players.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/lox/passtheace/internal/game"
)

// DefaultPrefix is used when no subject prefix is configured
const DefaultPrefix = "passtheace"

// Conn is the part of a NATS connection the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher publishes room events
type Publisher struct {
	conn   Conn
	prefix string
	logger *log.Logger
	close  func()
}

// Envelope wraps each published event
type Envelope struct {
	Room      string         `json:"roomCode"`
	Type      game.EventType `json:"type"`
	Data      game.Event     `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates a publisher on an existing connection
func New(conn Conn, prefix string, logger *log.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.WithPrefix("feed"),
	}
}

// Connect dials NATS at url and returns a publisher owning the connection
func Connect(url, prefix string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := logger.WithPrefix("feed")

	nc, err := nats.Connect(url,
		nats.Name("passtheace"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}

	p := New(nc, prefix, logger)
	p.close = nc.Close
	l.Info("Publishing room events", "url", url, "prefix", p.prefix)
	return p, nil
}

// Subject returns the subject an event of type et in room code goes to
func Subject(prefix, code string, et game.EventType) string {
	return fmt.Sprintf("%s.rooms.%s.%s", prefix, code, et)
}

// Publish sends e for room code
func (p *Publisher) Publish(code string, e game.Event) {
	data, err := json.Marshal(Envelope{
		Room:      code,
		Type:      e.EventType(),
		Data:      e,
		Timestamp: time.Now(),
	})
	if err != nil {
		p.logger.Error("Failed to marshal event", "room", code, "type", e.EventType(), "error", err)
		return
	}

	subject := Subject(p.prefix, code, e.EventType())
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "subject", subject, "error", err)
		return
	}
	p.logger.Debug("Published event", "subject", subject, "bytes", len(data))
}

// Close closes the connection if the publisher owns it
func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
