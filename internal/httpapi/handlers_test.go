package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ecospy/ecospy-backend/internal/broker"
	"github.com/ecospy/ecospy-backend/internal/game"
	"github.com/ecospy/ecospy-backend/internal/hub"
)

func TestHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br := broker.New()
	h := hub.NewHub(ctx, game.NewRegistry(), br, nil, zap.NewNop())

	h.Inbox() <- hub.CreateRoom{ConnID: "conn-1", PlayerName: "Alice"}

	// Stats is handled by the same actor loop, so by the time the reply
	// arrives the create above has been applied.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	Health(h)(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Rooms   int    `json:"rooms"`
		Players int    `json:"players"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "OK" || body.Rooms != 1 || body.Players != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}
