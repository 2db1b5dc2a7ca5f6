// Package hub serializes every session mutation through a single actor
// goroutine. Each inbound event is handled to completion before the next,
// which makes the registry's operations atomic with respect to each other
// without locking: the first correct answer for a stage wins, the racing
// one is judged against the stage the session has moved on to.
package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ecospy/ecospy-backend/internal/game"
	"github.com/ecospy/ecospy-backend/internal/types"
)

type Msg interface{ isHubMsg() }

type CreateRoom struct {
	ConnID     string
	PlayerName string
}

type JoinRoom struct {
	ConnID     string
	RoomCode   string
	PlayerName string
}

type JoinPublicRoom struct {
	ConnID     string
	PlayerName string
}

type ListPublicRooms struct {
	ConnID string
}

type StartGame struct {
	ConnID   string
	RoomCode string
}

type SubmitAnswer struct {
	ConnID     string
	RoomCode   string
	RoomNumber int
	Answer     any
}

type Disconnect struct {
	ConnID string
}

type StatsView struct {
	Rooms   int
	Players int
}

type Stats struct {
	Reply chan StatsView
}

// GetSession reflects registry state without data races; test-only.
type GetSession struct {
	Code  string
	Reply chan *game.Session
}

type Shutdown struct{}

func (CreateRoom) isHubMsg()      {}
func (JoinRoom) isHubMsg()        {}
func (JoinPublicRoom) isHubMsg()  {}
func (ListPublicRooms) isHubMsg() {}
func (StartGame) isHubMsg()       {}
func (SubmitAnswer) isHubMsg()    {}
func (Disconnect) isHubMsg()      {}
func (Stats) isHubMsg()           {}
func (GetSession) isHubMsg()      {}
func (Shutdown) isHubMsg()        {}

// Transport is the slice of the broker the hub needs: connection
// lifecycle plus room-scoped delivery.
type Transport interface {
	Join(room, connID string)
	Publish(room string, ev types.ServerEvent, excludeConnID string)
	Send(connID string, ev types.ServerEvent)
	Unregister(connID string)
}

// Archiver records completed-game summaries. May be left nil.
type Archiver interface {
	Record(ctx context.Context, code string, sum *game.Summary) error
}

type Hub struct {
	inbox    chan Msg
	registry *game.Registry
	tr       Transport
	archive  Archiver
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, reg *game.Registry, tr Transport, archive Archiver, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan Msg, 64),
		registry: reg,
		tr:       tr,
		archive:  archive,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				h.handleCreate(msg)
			case JoinRoom:
				h.handleJoin(msg.ConnID, msg.PlayerName, func() (*game.Session, error) {
					return h.registry.JoinSession(msg.RoomCode, msg.ConnID, msg.PlayerName)
				})
			case JoinPublicRoom:
				h.handleJoin(msg.ConnID, msg.PlayerName, func() (*game.Session, error) {
					s, _, err := h.registry.JoinPublicSession(msg.ConnID, msg.PlayerName)
					return s, err
				})
			case ListPublicRooms:
				h.tr.Send(msg.ConnID, types.ServerEvent{
					Event: types.EvtPublicRoomsList,
					Data:  h.registry.PublicSessions(),
				})
			case StartGame:
				h.handleStart(msg)
			case SubmitAnswer:
				h.handleAnswer(msg)
			case Disconnect:
				h.handleDisconnect(msg)
			case Stats:
				msg.Reply <- StatsView{
					Rooms:   h.registry.SessionCount(),
					Players: h.registry.PlayerCount(),
				}
			case GetSession:
				msg.Reply <- h.registry.Session(msg.Code)
			case Shutdown:
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) handleCreate(msg CreateRoom) {
	s, err := h.registry.CreateSession(msg.ConnID, msg.PlayerName, false)
	if err != nil {
		h.log.Error("create session failed", zap.Error(err))
		h.tr.Send(msg.ConnID, types.ServerEvent{
			Event: types.EvtError,
			Data:  types.ErrorData{Message: "Impossible de créer la partie"},
		})
		return
	}
	h.tr.Join(s.Code, msg.ConnID)
	h.tr.Send(msg.ConnID, types.ServerEvent{Event: types.EvtRoomCreated, Data: types.SnapshotOf(s)})
	h.log.Info("room created", zap.String("code", s.Code), zap.String("host", msg.PlayerName))
}

func (h *Hub) handleJoin(connID, name string, join func() (*game.Session, error)) {
	s, err := join()
	if err != nil {
		h.tr.Send(connID, types.ServerEvent{
			Event: types.EvtJoinError,
			Data:  types.JoinErrorData{Message: game.JoinErrorMessage(err)},
		})
		return
	}
	h.tr.Join(s.Code, connID)
	h.tr.Send(connID, types.ServerEvent{Event: types.EvtRoomJoined, Data: types.SnapshotOf(s)})
	h.tr.Publish(s.Code, types.ServerEvent{
		Event: types.EvtPlayerJoined,
		Data:  types.PlayerJoinedData{Players: s.Players, NewPlayer: name},
	}, "")
	h.log.Info("player joined", zap.String("code", s.Code), zap.String("player", name))
}

func (h *Hub) handleStart(msg StartGame) {
	s, err := h.registry.StartSession(msg.RoomCode, msg.ConnID)
	if err != nil {
		if errors.Is(err, game.ErrNotHost) {
			h.tr.Send(msg.ConnID, types.ServerEvent{
				Event: types.EvtError,
				Data:  types.ErrorData{Message: "Seul l'hôte peut démarrer la partie"},
			})
		}
		h.log.Warn("start rejected", zap.String("code", msg.RoomCode), zap.Error(err))
		return
	}
	h.tr.Publish(s.Code, types.ServerEvent{
		Event: types.EvtGameStarted,
		Data: types.GameStartedData{
			StartTime:    s.StartedAt.UnixMilli(),
			CurrentRoom:  s.CurrentStage,
			TimerSeconds: game.DisplayTimerSeconds,
		},
	}, "")
	h.log.Info("game started", zap.String("code", s.Code))
}

func (h *Hub) handleAnswer(msg SubmitAnswer) {
	res := h.registry.SubmitAnswer(msg.RoomCode, msg.RoomNumber, msg.Answer)
	if !res.Correct {
		h.tr.Send(msg.ConnID, types.ServerEvent{
			Event: types.EvtWrongAnswer,
			Data:  types.WrongAnswerData{Message: res.Message},
		})
		return
	}

	h.tr.Publish(msg.RoomCode, types.ServerEvent{
		Event: types.EvtPuzzleSolved,
		Data: types.PuzzleSolvedData{
			RoomNumber: res.Stage,
			NextRoom:   res.NextStage,
			Message:    res.Message,
		},
	}, "")
	h.log.Info("puzzle solved",
		zap.String("code", msg.RoomCode),
		zap.Int("stage", res.Stage),
		zap.Int("claimed", msg.RoomNumber))

	if !res.Completed {
		return
	}

	sum := h.registry.EndSession(msg.RoomCode)
	if sum == nil {
		return
	}
	h.tr.Publish(msg.RoomCode, types.ServerEvent{Event: types.EvtGameCompleted, Data: sum}, "")
	h.log.Info("game completed",
		zap.String("code", msg.RoomCode),
		zap.Int64("finalTime", sum.FinalTime))

	if h.archive != nil {
		code := msg.RoomCode
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.archive.Record(ctx, code, sum); err != nil {
				h.log.Error("archiving result failed", zap.String("code", code), zap.Error(err))
			}
		}()
	}
}

func (h *Hub) handleDisconnect(msg Disconnect) {
	dep := h.registry.RemovePlayer(msg.ConnID)
	if dep.Code != "" {
		h.tr.Publish(dep.Code, types.ServerEvent{
			Event: types.EvtPlayerLeft,
			Data:  types.PlayerLeftData{Players: dep.Players, LeftPlayer: dep.PlayerName},
		}, msg.ConnID)
		h.log.Info("player left", zap.String("code", dep.Code), zap.String("player", dep.PlayerName))
	}
	h.tr.Unregister(msg.ConnID)
}
