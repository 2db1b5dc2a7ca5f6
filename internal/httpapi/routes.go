package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecospy/ecospy-backend/internal/broker"
	"github.com/ecospy/ecospy-backend/internal/hub"
	"github.com/ecospy/ecospy-backend/internal/relay"
	"github.com/ecospy/ecospy-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, br *broker.Broker, rl *relay.Relay, log *zap.Logger, originPatterns []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", Health(h))
	r.Get("/ws", ws.Handler(h, br, rl, log.Named("ws"), originPatterns))
	return r
}
