// Package relay replicates transient per-stage puzzle state (card flips,
// selected options, shared clues) across the members of a room. It is a
// dumb pipe: payloads are opaque blobs, nothing is validated or stored
// server-side, and the origin of an update never re-receives it. Anything
// that decides win or loss goes through the session registry instead.
package relay

import (
	"encoding/json"

	"github.com/ecospy/ecospy-backend/internal/types"
)

// Publisher is the pub/sub transport the relay fans out through.
type Publisher interface {
	Publish(room string, ev types.ServerEvent, excludeConnID string)
}

type Relay struct {
	pub Publisher
}

func New(pub Publisher) *Relay {
	return &Relay{pub: pub}
}

// BroadcastState republishes one client's stage payload to every other
// member of the room, tagged with the origin so receivers can double-check
// the echo suppression on their side.
func (r *Relay) BroadcastState(code string, stage int, payload json.RawMessage, originConnID string) {
	r.pub.Publish(code, types.ServerEvent{
		Event: types.EvtRoomStateSync,
		Data: types.RoomStateSyncData{
			RoomNumber: stage,
			StateData:  payload,
			FromPlayer: originConnID,
		},
	}, originConnID)
}

// BroadcastClue fans a shared clue out to the rest of the room.
func (r *Relay) BroadcastClue(code, originConnID string, clue json.RawMessage) {
	r.pub.Publish(code, types.ServerEvent{
		Event: types.EvtClueShared,
		Data: types.ClueSharedData{
			PlayerID: originConnID,
			ClueData: clue,
		},
	}, originConnID)
}
