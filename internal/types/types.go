// Package types defines the JSON wire protocol: a single envelope shared
// by every event, plus one payload struct per event. Field names follow
// the client's existing camelCase contract.
package types

import (
	"encoding/json"

	"github.com/ecospy/ecospy-backend/internal/game"
)

// ClientEvent is the inbound envelope. Data is decoded per Event.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the outbound envelope.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client → server events.
const (
	EvtCreateRoom       = "create-room"
	EvtJoinRoom         = "join-room"
	EvtJoinPublicRoom   = "join-public-room"
	EvtGetPublicRooms   = "get-public-rooms"
	EvtStartGame        = "start-game"
	EvtSubmitAnswer     = "submit-answer"
	EvtSendMessage      = "send-message"
	EvtShareClue        = "share-clue"
	EvtRoomStateUpdate  = "room-state-update"
	EvtRequestRoomState = "request-room-state"
)

// Server → client events.
const (
	EvtRoomCreated        = "room-created"
	EvtRoomJoined         = "room-joined"
	EvtJoinError          = "join-error"
	EvtPlayerJoined       = "player-joined"
	EvtPlayerLeft         = "player-left"
	EvtPublicRoomsList    = "public-rooms-list"
	EvtGameStarted        = "game-started"
	EvtPuzzleSolved       = "puzzle-solved"
	EvtWrongAnswer        = "wrong-answer"
	EvtGameCompleted      = "game-completed"
	EvtNewMessage         = "new-message"
	EvtClueShared         = "clue-shared"
	EvtRoomStateSync      = "room-state-sync"
	EvtRoomStateRequested = "room-state-requested"
	EvtError              = "error"
)

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type JoinPublicRoomData struct {
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	RoomCode string `json:"roomCode"`
}

// SubmitAnswerData carries the final answer for a stage. Answer is left
// untyped: some puzzles send free text, others a computed numeric total.
type SubmitAnswerData struct {
	RoomCode   string `json:"roomCode"`
	RoomNumber int    `json:"roomNumber"`
	Answer     any    `json:"answer"`
	PlayerID   string `json:"playerId"`
}

type SendMessageData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

type ShareClueData struct {
	RoomCode string          `json:"roomCode"`
	PlayerID string          `json:"playerId"`
	ClueData json.RawMessage `json:"clueData"`
}

type RoomStateUpdateData struct {
	RoomCode   string          `json:"roomCode"`
	RoomNumber int             `json:"roomNumber"`
	StateData  json.RawMessage `json:"stateData"`
}

type RequestRoomStateData struct {
	RoomCode   string `json:"roomCode"`
	RoomNumber int    `json:"roomNumber"`
}

// RoomSnapshot mirrors the session object the client already consumes.
// Timestamps are Unix milliseconds, null until set.
type RoomSnapshot struct {
	Code          string             `json:"code"`
	Host          string             `json:"host"`
	Players       []game.Player      `json:"players"`
	Status        game.Status        `json:"status"`
	CurrentRoom   int                `json:"currentRoom"`
	StartTime     *int64             `json:"startTime"`
	EndTime       *int64             `json:"endTime"`
	SolvedPuzzles []game.SolvedStage `json:"solvedPuzzles"`
}

// SnapshotOf converts a session into its wire form.
func SnapshotOf(s *game.Session) RoomSnapshot {
	snap := RoomSnapshot{
		Code:          s.Code,
		Host:          s.Host,
		Players:       s.Players,
		Status:        s.Status,
		CurrentRoom:   s.CurrentStage,
		SolvedPuzzles: s.Solved,
	}
	if s.StartedAt != nil {
		ms := s.StartedAt.UnixMilli()
		snap.StartTime = &ms
	}
	if s.EndedAt != nil {
		ms := s.EndedAt.UnixMilli()
		snap.EndTime = &ms
	}
	return snap
}

type JoinErrorData struct {
	Message string `json:"message"`
}

type PlayerJoinedData struct {
	Players   []game.Player `json:"players"`
	NewPlayer string        `json:"newPlayer"`
}

type PlayerLeftData struct {
	Players    []game.Player `json:"players"`
	LeftPlayer string        `json:"leftPlayer"`
}

type GameStartedData struct {
	StartTime    int64 `json:"startTime"`
	CurrentRoom  int   `json:"currentRoom"`
	TimerSeconds int   `json:"timerSeconds"`
}

type PuzzleSolvedData struct {
	RoomNumber int    `json:"roomNumber"`
	NextRoom   int    `json:"nextRoom"`
	Message    string `json:"message"`
}

type WrongAnswerData struct {
	Message string `json:"message"`
}

type NewMessageData struct {
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type ClueSharedData struct {
	PlayerID string          `json:"playerId"`
	ClueData json.RawMessage `json:"clueData"`
}

type RoomStateSyncData struct {
	RoomNumber int             `json:"roomNumber"`
	StateData  json.RawMessage `json:"stateData"`
	FromPlayer string          `json:"fromPlayer"`
}

type RoomStateRequestedData struct {
	RoomNumber int `json:"roomNumber"`
}

type ErrorData struct {
	Message string `json:"message"`
}
