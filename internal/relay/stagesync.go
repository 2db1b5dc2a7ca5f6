package relay

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
)

// Sender publishes this participant's stage payload to its teammates.
type Sender interface {
	SendState(stage int, payload json.RawMessage)
}

// StageSync is the participant-side half of the relay contract: a
// last-known payload cache per stage plus per-stage subscriber lists.
// Components that mount after a broadcast read LastKnown instead of
// waiting for the next one. There is no server copy of this state; a
// participant that missed everything recovers via Bootstrap.
type StageSync struct {
	selfID string
	sender Sender

	mu   sync.Mutex
	last map[int]json.RawMessage
	subs map[int]map[int]func(json.RawMessage)
	next int
}

func NewStageSync(selfID string, sender Sender) *StageSync {
	return &StageSync{
		selfID: selfID,
		sender: sender,
		last:   make(map[int]json.RawMessage),
		subs:   make(map[int]map[int]func(json.RawMessage)),
	}
}

// Subscribe registers fn for payloads of the given stage and returns its
// unsubscribe function. Subscribers are independent; removing one leaves
// the others in place.
func (s *StageSync) Subscribe(stage int, fn func(json.RawMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[stage] == nil {
		s.subs[stage] = make(map[int]func(json.RawMessage))
	}
	token := s.next
	s.next++
	s.subs[stage][token] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs[stage], token)
		s.mu.Unlock()
	}
}

// HandleSync feeds an inbound room-state-sync into the cache and the
// subscribers. Updates originating from this participant are ignored.
func (s *StageSync) HandleSync(stage int, payload json.RawMessage, fromPlayer string) {
	if fromPlayer == s.selfID {
		return
	}
	s.mu.Lock()
	s.last[stage] = payload
	fns := make([]func(json.RawMessage), 0, len(s.subs[stage]))
	for _, fn := range s.subs[stage] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so they may re-enter.
	for _, fn := range fns {
		fn(payload)
	}
}

// Publish records payload locally and sends it to teammates.
func (s *StageSync) Publish(stage int, payload json.RawMessage) {
	s.mu.Lock()
	s.last[stage] = payload
	s.mu.Unlock()
	s.sender.SendState(stage, payload)
}

// LastKnown returns the most recent payload seen for stage, or nil.
func (s *StageSync) LastKnown(stage int) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[stage]
}

// Bootstrap establishes a shared value first-writer-wins: when no payload
// is cached for the stage yet, compute is invoked and the result published
// for everyone else to adopt; a payload already received from a teammate
// is returned verbatim instead of recomputing.
func (s *StageSync) Bootstrap(stage int, compute func() json.RawMessage) json.RawMessage {
	s.mu.Lock()
	if existing, ok := s.last[stage]; ok {
		s.mu.Unlock()
		return existing
	}
	s.mu.Unlock()

	payload := compute()
	s.Publish(stage, payload)
	return payload
}

// Seed derives a deterministic shuffle seed from the room code and stage,
// so participants that bootstrap independently still agree on shared
// random state.
func Seed(code string, stage int) int64 {
	h := fnv.New64a()
	h.Write([]byte(code))
	h.Write([]byte(strconv.Itoa(stage)))
	return int64(h.Sum64())
}
