package feed

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/passtheace/internal/game"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "passtheace.rooms.ABC123.turn_update", Subject("passtheace", "ABC123", game.EventTypeTurnUpdate))
}

func TestPublish(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn, "", nil)

	p.Publish("ABC123", game.CardPassedEvent{FromSeat: 2, ToSeat: 3, Trigger: game.ByBot})

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "passtheace.rooms.ABC123.card_passed", conn.msgs[0].subject)

	var env struct {
		Room string `json:"roomCode"`
		Type string `json:"type"`
		Data struct {
			From int `json:"fromIndex"`
			To   int `json:"toIndex"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &env))
	assert.Equal(t, "ABC123", env.Room)
	assert.Equal(t, "card_passed", env.Type)
	assert.Equal(t, 2, env.Data.From)
	assert.Equal(t, 3, env.Data.To)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := New(conn, "games", nil)

	assert.NotPanics(t, func() {
		p.Publish("ABC123", game.GameAbortedEvent{Reason: "test"})
	})
	p.Close()
}
