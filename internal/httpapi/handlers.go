package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ecospy/ecospy-backend/internal/hub"
)

// Health reports liveness plus the registry sizes, matching the shape the
// operations dashboard already scrapes.
func Health(h *hub.Hub) http.HandlerFunc {
	type response struct {
		Status  string `json:"status"`
		Rooms   int    `json:"rooms"`
		Players int    `json:"players"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.StatsView, 1)
		h.Inbox() <- hub.Stats{Reply: reply}

		var stats hub.StatsView
		select {
		case stats = <-reply:
		case <-r.Context().Done():
			http.Error(w, "timeout", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{
			Status:  "OK",
			Rooms:   stats.Rooms,
			Players: stats.Players,
		})
	}
}
