// Package ws is the transport boundary: one WebSocket per client, JSON
// event envelopes in both directions. Mutating game events are forwarded
// to the hub; transient state updates go straight through the relay.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecospy/ecospy-backend/internal/broker"
	"github.com/ecospy/ecospy-backend/internal/hub"
	"github.com/ecospy/ecospy-backend/internal/relay"
	"github.com/ecospy/ecospy-backend/internal/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, br *broker.Broker, rl *relay.Relay, log *zap.Logger, allowedOrigins []string) http.HandlerFunc {
	patterns := hostPatterns(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: patterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := br.Register(connID)
		// Disconnect removes the player from its session and unregisters
		// the connection, which closes the outbox and stops the writer.
		defer func() { h.Inbox() <- hub.Disconnect{ConnID: connID} }()

		log.Info("client connected", zap.String("conn", connID))

		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for ev := range out {
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Error("encode event", zap.String("event", ev.Event), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected", zap.String("conn", connID))
				default:
					log.Info("client read ended", zap.String("conn", connID), zap.Error(err))
				}
				return
			}

			var ev types.ClientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				br.Send(connID, errorEvent("bad json"))
				continue
			}
			dispatch(h, br, rl, connID, ev)
		}
	}
}

func dispatch(h *hub.Hub, br *broker.Broker, rl *relay.Relay, connID string, ev types.ClientEvent) {
	switch ev.Event {
	case types.EvtCreateRoom:
		var d types.CreateRoomData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		h.Inbox() <- hub.CreateRoom{ConnID: connID, PlayerName: d.PlayerName}

	case types.EvtJoinRoom:
		var d types.JoinRoomData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		h.Inbox() <- hub.JoinRoom{ConnID: connID, RoomCode: roomKey(d.RoomCode), PlayerName: d.PlayerName}

	case types.EvtJoinPublicRoom:
		var d types.JoinPublicRoomData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		h.Inbox() <- hub.JoinPublicRoom{ConnID: connID, PlayerName: d.PlayerName}

	case types.EvtGetPublicRooms:
		h.Inbox() <- hub.ListPublicRooms{ConnID: connID}

	case types.EvtStartGame:
		var d types.StartGameData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		h.Inbox() <- hub.StartGame{ConnID: connID, RoomCode: roomKey(d.RoomCode)}

	case types.EvtSubmitAnswer:
		var d types.SubmitAnswerData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		h.Inbox() <- hub.SubmitAnswer{
			ConnID:     connID,
			RoomCode:   roomKey(d.RoomCode),
			RoomNumber: d.RoomNumber,
			Answer:     d.Answer,
		}

	case types.EvtSendMessage:
		// Pure chat relay: everyone in the room, sender included.
		var d types.SendMessageData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		br.Publish(roomKey(d.RoomCode), types.ServerEvent{
			Event: types.EvtNewMessage,
			Data: types.NewMessageData{
				PlayerName: d.PlayerName,
				Message:    d.Message,
				Timestamp:  time.Now().UnixMilli(),
			},
		}, "")

	case types.EvtShareClue:
		var d types.ShareClueData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		rl.BroadcastClue(roomKey(d.RoomCode), connID, d.ClueData)

	case types.EvtRoomStateUpdate:
		var d types.RoomStateUpdateData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		rl.BroadcastState(roomKey(d.RoomCode), d.RoomNumber, d.StateData, connID)

	case types.EvtRequestRoomState:
		// Nothing is stored server-side; acknowledge so the client can
		// fall back to its deterministic bootstrap.
		var d types.RequestRoomStateData
		if !decode(br, connID, ev.Data, &d) {
			return
		}
		br.Send(connID, types.ServerEvent{
			Event: types.EvtRoomStateRequested,
			Data:  types.RoomStateRequestedData{RoomNumber: d.RoomNumber},
		})

	default:
		br.Send(connID, errorEvent("unknown event"))
	}
}

func decode(br *broker.Broker, connID string, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		br.Send(connID, errorEvent("bad payload"))
		return false
	}
	return true
}

// Room codes are case-insensitive on the wire; the broker keys rooms by
// the canonical upper-case form.
func roomKey(code string) string { return strings.ToUpper(code) }

// hostPatterns converts configured origins (full URLs, per the
// ALLOWED_ORIGINS contract) into the host-only patterns that Accept
// matches the Origin header against. Entries without a scheme pass
// through unchanged.
func hostPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}

func errorEvent(msg string) types.ServerEvent {
	return types.ServerEvent{Event: types.EvtError, Data: types.ErrorData{Message: msg}}
}
