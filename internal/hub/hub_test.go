package hub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ecospy/ecospy-backend/internal/game"
	"github.com/ecospy/ecospy-backend/internal/types"
)

// delivery records one transport call made by the hub.
type delivery struct {
	kind    string // "send" | "publish"
	to      string // conn id for send, room for publish
	exclude string
	ev      types.ServerEvent
}

// fakeTransport feeds every hub effect into one channel so tests can
// assert on ordering without racing the actor goroutine.
type fakeTransport struct {
	deliveries chan delivery
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{deliveries: make(chan delivery, 64)}
}

func (f *fakeTransport) Join(room, connID string) {}
func (f *fakeTransport) Unregister(connID string) {}

func (f *fakeTransport) Publish(room string, ev types.ServerEvent, excludeConnID string) {
	f.deliveries <- delivery{kind: "publish", to: room, exclude: excludeConnID, ev: ev}
}

func (f *fakeTransport) Send(connID string, ev types.ServerEvent) {
	f.deliveries <- delivery{kind: "send", to: connID, ev: ev}
}

// helper: receive one delivery with a timeout so tests never hang
func recvDelivery(t *testing.T, ch <-chan delivery, within time.Duration) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(within):
		t.Fatalf("timed out waiting for delivery")
		return delivery{}
	}
}

func recvNamed(t *testing.T, ch <-chan delivery, event string) delivery {
	t.Helper()
	d := recvDelivery(t, ch, 500*time.Millisecond)
	if d.ev.Event != event {
		t.Fatalf("want event %q, got %q", event, d.ev.Event)
	}
	return d
}

func newTestHub(t *testing.T) (*Hub, *fakeTransport) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tr := newFakeTransport()
	h := NewHub(ctx, game.NewRegistry(), tr, nil, zap.NewNop())
	return h, tr
}

// createRoom drives the full create flow and returns the room code.
func createRoom(t *testing.T, h *Hub, tr *fakeTransport, connID, name string) string {
	t.Helper()
	h.Inbox() <- CreateRoom{ConnID: connID, PlayerName: name}
	d := recvNamed(t, tr.deliveries, types.EvtRoomCreated)
	if d.to != connID {
		t.Fatalf("room-created sent to %q, want %q", d.to, connID)
	}
	return d.ev.Data.(types.RoomSnapshot).Code
}

func TestHub_CreateAndJoin(t *testing.T) {
	h, tr := newTestHub(t)

	code := createRoom(t, h, tr, "conn-1", "Alice")

	h.Inbox() <- JoinRoom{ConnID: "conn-2", RoomCode: code, PlayerName: "Bob"}
	joined := recvNamed(t, tr.deliveries, types.EvtRoomJoined)
	if joined.to != "conn-2" {
		t.Fatalf("room-joined sent to %q", joined.to)
	}
	snap := joined.ev.Data.(types.RoomSnapshot)
	if len(snap.Players) != 2 || snap.Players[1].Name != "Bob" {
		t.Fatalf("unexpected roster: %+v", snap.Players)
	}

	// Whole room learns about the new roster.
	pj := recvNamed(t, tr.deliveries, types.EvtPlayerJoined)
	if pj.kind != "publish" || pj.to != code {
		t.Fatalf("player-joined should broadcast to %q, got %+v", code, pj)
	}
	if pj.ev.Data.(types.PlayerJoinedData).NewPlayer != "Bob" {
		t.Fatalf("unexpected player-joined payload: %+v", pj.ev.Data)
	}
}

func TestHub_JoinUnknownRoom(t *testing.T) {
	h, tr := newTestHub(t)

	h.Inbox() <- JoinRoom{ConnID: "conn-1", RoomCode: "NOPE42", PlayerName: "Bob"}
	d := recvNamed(t, tr.deliveries, types.EvtJoinError)
	if d.kind != "send" || d.to != "conn-1" {
		t.Fatalf("join-error must go to the origin only, got %+v", d)
	}
	if got := d.ev.Data.(types.JoinErrorData).Message; got != "Partie introuvable" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHub_StartGame_HostOnly(t *testing.T) {
	h, tr := newTestHub(t)
	code := createRoom(t, h, tr, "conn-1", "Alice")

	h.Inbox() <- JoinRoom{ConnID: "conn-2", RoomCode: code, PlayerName: "Bob"}
	recvNamed(t, tr.deliveries, types.EvtRoomJoined)
	recvNamed(t, tr.deliveries, types.EvtPlayerJoined)

	// Non-host start is rejected with a private error.
	h.Inbox() <- StartGame{ConnID: "conn-2", RoomCode: code}
	d := recvNamed(t, tr.deliveries, types.EvtError)
	if d.to != "conn-2" {
		t.Fatalf("error must target the caller, got %+v", d)
	}

	h.Inbox() <- StartGame{ConnID: "conn-1", RoomCode: code}
	started := recvNamed(t, tr.deliveries, types.EvtGameStarted)
	data := started.ev.Data.(types.GameStartedData)
	if data.CurrentRoom != 1 || data.StartTime == 0 {
		t.Fatalf("unexpected game-started payload: %+v", data)
	}
	if data.TimerSeconds != game.DisplayTimerSeconds {
		t.Fatalf("timerSeconds = %d, want %d", data.TimerSeconds, game.DisplayTimerSeconds)
	}
}

func TestHub_WrongAnswerGoesToOriginOnly(t *testing.T) {
	h, tr := newTestHub(t)
	code := createRoom(t, h, tr, "conn-1", "Alice")
	h.Inbox() <- StartGame{ConnID: "conn-1", RoomCode: code}
	recvNamed(t, tr.deliveries, types.EvtGameStarted)

	h.Inbox() <- SubmitAnswer{ConnID: "conn-1", RoomCode: code, RoomNumber: 1, Answer: "81"}
	d := recvNamed(t, tr.deliveries, types.EvtWrongAnswer)
	if d.kind != "send" || d.to != "conn-1" {
		t.Fatalf("wrong-answer must be private, got %+v", d)
	}
}

func TestHub_FullGameCompletes(t *testing.T) {
	h, tr := newTestHub(t)
	code := createRoom(t, h, tr, "conn-1", "Alice")
	h.Inbox() <- StartGame{ConnID: "conn-1", RoomCode: code}
	recvNamed(t, tr.deliveries, types.EvtGameStarted)

	answers := []any{"80", "8", "amazonie", "60"}
	for i, answer := range answers {
		h.Inbox() <- SubmitAnswer{ConnID: "conn-1", RoomCode: code, RoomNumber: i + 1, Answer: answer}
		d := recvNamed(t, tr.deliveries, types.EvtPuzzleSolved)
		solved := d.ev.Data.(types.PuzzleSolvedData)
		if solved.RoomNumber != i+1 || solved.NextRoom != i+2 {
			t.Fatalf("stage %d: unexpected payload %+v", i+1, solved)
		}
	}

	done := recvNamed(t, tr.deliveries, types.EvtGameCompleted)
	sum := done.ev.Data.(*game.Summary)
	if !sum.Success || sum.MaxTime != game.SummaryCeilingSeconds {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sum.SolvedPuzzles) != game.StageCount {
		t.Fatalf("want %d solved stages, got %d", game.StageCount, len(sum.SolvedPuzzles))
	}

	// The session is completed and further answers bounce.
	reply := make(chan *game.Session, 1)
	h.Inbox() <- GetSession{Code: code, Reply: reply}
	s := <-reply
	if s.Status != game.StatusCompleted {
		t.Fatalf("status = %v, want completed", s.Status)
	}
}

func TestHub_DisconnectBroadcastsDeparture(t *testing.T) {
	h, tr := newTestHub(t)
	code := createRoom(t, h, tr, "conn-1", "Alice")
	h.Inbox() <- JoinRoom{ConnID: "conn-2", RoomCode: code, PlayerName: "Bob"}
	recvNamed(t, tr.deliveries, types.EvtRoomJoined)
	recvNamed(t, tr.deliveries, types.EvtPlayerJoined)

	h.Inbox() <- Disconnect{ConnID: "conn-2"}
	d := recvNamed(t, tr.deliveries, types.EvtPlayerLeft)
	left := d.ev.Data.(types.PlayerLeftData)
	if left.LeftPlayer != "Bob" || len(left.Players) != 1 {
		t.Fatalf("unexpected player-left payload: %+v", left)
	}
}

func TestHub_Stats(t *testing.T) {
	h, tr := newTestHub(t)
	createRoom(t, h, tr, "conn-1", "Alice")
	createRoom(t, h, tr, "conn-2", "Bob")

	reply := make(chan StatsView, 1)
	h.Inbox() <- Stats{Reply: reply}
	stats := <-reply
	if stats.Rooms != 2 || stats.Players != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
