// Package broker is the in-process pub/sub layer: it tracks every live
// connection's outbox and which named room each connection has joined,
// and fans events out room-wide. It knows nothing about game rules.
package broker

import (
	"sync"

	"github.com/ecospy/ecospy-backend/internal/types"
)

const outboxSize = 16

type Broker struct {
	mu     sync.RWMutex
	conns  map[string]chan types.ServerEvent
	rooms  map[string]map[string]struct{}
	inRoom map[string]string // connID → room code
}

func New() *Broker {
	return &Broker{
		conns:  make(map[string]chan types.ServerEvent),
		rooms:  make(map[string]map[string]struct{}),
		inRoom: make(map[string]string),
	}
}

// Register allocates the outbox for a new connection. The caller owns
// draining it until Unregister closes it.
func (b *Broker) Register(connID string) chan types.ServerEvent {
	ch := make(chan types.ServerEvent, outboxSize)
	b.mu.Lock()
	b.conns[connID] = ch
	b.mu.Unlock()
	return ch
}

// Unregister drops the connection from its room (if any) and closes its
// outbox.
func (b *Broker) Unregister(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room, ok := b.inRoom[connID]; ok {
		b.leaveLocked(room, connID)
	}
	if ch, ok := b.conns[connID]; ok {
		delete(b.conns, connID)
		close(ch)
	}
}

// Join subscribes the connection to a room. A connection is in at most
// one room; joining again moves it.
func (b *Broker) Join(room, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.inRoom[connID]; ok && prev != room {
		b.leaveLocked(prev, connID)
	}
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[string]struct{})
	}
	b.rooms[room][connID] = struct{}{}
	b.inRoom[connID] = room
}

// Leave unsubscribes the connection from the room.
func (b *Broker) Leave(room, connID string) {
	b.mu.Lock()
	b.leaveLocked(room, connID)
	b.mu.Unlock()
}

func (b *Broker) leaveLocked(room, connID string) {
	delete(b.rooms[room], connID)
	if len(b.rooms[room]) == 0 {
		delete(b.rooms, room)
	}
	delete(b.inRoom, connID)
}

// Publish sends ev to every connection in the room except excludeConnID
// (pass "" to exclude nobody). A full outbox drops the event rather than
// blocking the publisher.
func (b *Broker) Publish(room string, ev types.ServerEvent, excludeConnID string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for connID := range b.rooms[room] {
		if connID == excludeConnID {
			continue
		}
		ch, ok := b.conns[connID]
		if !ok {
			continue
		}
		select {
		case ch <- ev:
		default:
			// Slow consumer; drop.
		}
	}
}

// Send delivers ev to a single connection.
func (b *Broker) Send(connID string, ev types.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.conns[connID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// Room returns the connection ids currently joined to room.
func (b *Broker) Room(room string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.rooms[room]))
	for connID := range b.rooms[room] {
		ids = append(ids, connID)
	}
	return ids
}
