package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStartedEventDecodesOnClient(t *testing.T) {
	rules := DefaultRules()
	rules.Lives = 3
	_, rec := newStackedGame(t, 4, "5s Qh Qd 9c 2h", rules)

	e, ok := rec.last(EventTypeGameStarted)
	require.True(t, ok)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"round_in_progress"`)

	var decoded GameStartedEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PhaseRoundInProgress, decoded.Phase)
	assert.Equal(t, 1, decoded.DealerSeat)
	assert.Equal(t, "p2", decoded.CurrentID)
	require.Len(t, decoded.Participants, 4)
	require.NotNil(t, decoded.Participants[0].Card)
	assert.Equal(t, "5♠", decoded.Participants[0].Card.String())
}

func TestTextDecodingRejectsUnknownNames(t *testing.T) {
	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("halftime")))
	require.NoError(t, p.UnmarshalText([]byte("game_over")))
	assert.Equal(t, PhaseGameOver, p)

	var trig Trigger
	assert.Error(t, trig.UnmarshalText([]byte("magic")))
	require.NoError(t, trig.UnmarshalText([]byte("timeout")))
	assert.Equal(t, ByTimeout, trig)
}
