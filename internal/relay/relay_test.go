package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecospy/ecospy-backend/internal/types"
)

type published struct {
	room    string
	ev      types.ServerEvent
	exclude string
}

type fakePublisher struct {
	calls []published
}

func (p *fakePublisher) Publish(room string, ev types.ServerEvent, excludeConnID string) {
	p.calls = append(p.calls, published{room: room, ev: ev, exclude: excludeConnID})
}

func TestBroadcastState_TagsAndSuppressesOrigin(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub)

	payload := json.RawMessage(`{"flipped":[2,7]}`)
	r.BroadcastState("ROOM01", 2, payload, "conn-a")

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "ROOM01", call.room)
	assert.Equal(t, "conn-a", call.exclude)
	assert.Equal(t, types.EvtRoomStateSync, call.ev.Event)

	data := call.ev.Data.(types.RoomStateSyncData)
	assert.Equal(t, 2, data.RoomNumber)
	assert.Equal(t, payload, data.StateData)
	assert.Equal(t, "conn-a", data.FromPlayer)
}

func TestBroadcastClue_TagsAndSuppressesOrigin(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub)

	clue := json.RawMessage(`{"region":"nord-ouest"}`)
	r.BroadcastClue("ROOM01", "conn-b", clue)

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "conn-b", call.exclude)
	assert.Equal(t, types.EvtClueShared, call.ev.Event)

	data := call.ev.Data.(types.ClueSharedData)
	assert.Equal(t, "conn-b", data.PlayerID)
	assert.Equal(t, clue, data.ClueData)
}
