// Package game holds the authoritative session state: room creation and
// membership, the waiting/playing/completed lifecycle, and answer
// validation for the four puzzle stages. It does no networking and no
// locking of its own; a Registry must be owned by a single goroutine
// (the hub actor serializes every call).
package game

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrAlreadyStarted = errors.New("session already started")
	ErrAlreadyJoined  = errors.New("connection already in session")
	ErrFull           = errors.New("session full")
	ErrNotStartable   = errors.New("session not startable")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrCodeExhausted  = errors.New("could not allocate a unique room code")
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
)

const (
	// MaxPlayers is the room capacity; joins beyond this fail.
	MaxPlayers = 4

	// StageCount is the number of puzzle stages. CurrentStage runs 1..5;
	// reaching StageCount+1 means the game is won.
	StageCount = 4

	// SummaryCeilingSeconds is the ceiling reported in the end-of-game
	// summary (30 min). The client countdown shows DisplayTimerSeconds
	// (20 min) instead; the two literals intentionally disagree and are
	// both kept as-is.
	SummaryCeilingSeconds = 1800
	DisplayTimerSeconds   = 1200

	codeLength   = 6
	codeAttempts = 32
)

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// SolvedStage is one entry of the append-only audit trail. SolvedAt is
// Unix milliseconds.
type SolvedStage struct {
	RoomNumber int   `json:"roomNumber"`
	SolvedAt   int64 `json:"solvedAt"`
}

type Session struct {
	Code         string
	Host         string // connection id of the creator
	Players      []Player
	Status       Status
	CurrentStage int
	Public       bool
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
	Solved       []SolvedStage
}

// Summary is the end-of-game report broadcast as game-completed.
type Summary struct {
	Success       bool          `json:"success"`
	FinalTime     int64         `json:"finalTime"`
	MaxTime       int           `json:"maxTime"`
	Players       []Player      `json:"players"`
	SolvedPuzzles []SolvedStage `json:"solvedPuzzles"`
}

// PublicRoomInfo is one row of the public-room listing.
type PublicRoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Host    string `json:"host"`
}

// Departure reports the outcome of RemovePlayer. The zero value means the
// connection was not in any session.
type Departure struct {
	Code       string
	PlayerName string
	Players    []Player
}

// Registry owns the room-code → session map. It is not safe for
// concurrent use; see the package comment.
type Registry struct {
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

// CreateSession allocates a fresh room with the creator as host. Codes are
// checked against existing keys and regenerated on collision, with a bound
// so a pathological RNG cannot loop forever.
func (r *Registry) CreateSession(hostConnID, hostName string, public bool) (*Session, error) {
	var code string
	for i := 0; ; i++ {
		if i == codeAttempts {
			return nil, ErrCodeExhausted
		}
		c, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.sessions[c]; !taken {
			code = c
			break
		}
	}

	s := &Session{
		Code:         code,
		Host:         hostConnID,
		Players:      []Player{{ID: hostConnID, Name: hostName, IsHost: true}},
		Status:       StatusWaiting,
		CurrentStage: 1,
		Public:       public,
		CreatedAt:    time.Now(),
		Solved:       []SolvedStage{},
	}
	r.sessions[code] = s
	return s, nil
}

// Session returns the session for code, or nil. Codes are case-insensitive.
func (r *Registry) Session(code string) *Session {
	return r.sessions[strings.ToUpper(code)]
}

// JoinSession appends a non-host player. Only Waiting sessions with a free
// slot accept joins.
func (r *Registry) JoinSession(code, connID, name string) (*Session, error) {
	s := r.Session(code)
	if s == nil {
		return nil, ErrNotFound
	}
	if s.Status != StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrFull
	}
	// Players are unique by connection id; a double join would leave a
	// roster entry behind on disconnect.
	for _, p := range s.Players {
		if p.ID == connID {
			return nil, ErrAlreadyJoined
		}
	}
	s.Players = append(s.Players, Player{ID: connID, Name: name, IsHost: false})
	return s, nil
}

// JoinPublicSession joins the oldest public session still waiting with a
// free slot, creating a fresh public one (joiner as host) when none fits.
// The second return reports whether a session was created.
func (r *Registry) JoinPublicSession(connID, name string) (*Session, bool, error) {
	var best *Session
	for _, s := range r.sessions {
		if !s.Public || s.Status != StatusWaiting || len(s.Players) >= MaxPlayers {
			continue
		}
		if best == nil || s.CreatedAt.Before(best.CreatedAt) {
			best = s
		}
	}
	if best != nil {
		s, err := r.JoinSession(best.Code, connID, name)
		return s, false, err
	}
	s, err := r.CreateSession(connID, name, true)
	return s, true, err
}

// PublicSessions lists joinable public rooms, oldest first.
func (r *Registry) PublicSessions() []PublicRoomInfo {
	var rooms []*Session
	for _, s := range r.sessions {
		if s.Public && s.Status == StatusWaiting && len(s.Players) < MaxPlayers {
			rooms = append(rooms, s)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })

	infos := make([]PublicRoomInfo, 0, len(rooms))
	for _, s := range rooms {
		infos = append(infos, PublicRoomInfo{Code: s.Code, Players: len(s.Players), Host: s.Players[0].Name})
	}
	return infos
}

// StartSession moves a Waiting session to Playing and stamps StartedAt.
// Repeat calls and calls on missing sessions fail without mutating
// anything, so startedAt can never be rewound. Only the creating
// connection may start the game.
func (r *Registry) StartSession(code, connID string) (*Session, error) {
	s := r.Session(code)
	if s == nil {
		return nil, ErrNotFound
	}
	if s.Status != StatusWaiting {
		return nil, ErrNotStartable
	}
	if connID != s.Host {
		return nil, ErrNotHost
	}
	now := time.Now()
	s.Status = StatusPlaying
	s.StartedAt = &now
	return s, nil
}

// EndSession marks the session completed and returns the final summary,
// or nil when the code is unknown.
func (r *Registry) EndSession(code string) *Summary {
	s := r.Session(code)
	if s == nil {
		return nil
	}
	now := time.Now()
	s.Status = StatusCompleted
	s.EndedAt = &now

	var elapsed int64
	if s.StartedAt != nil {
		elapsed = int64(now.Sub(*s.StartedAt).Seconds())
	}
	return &Summary{
		Success:       true,
		FinalTime:     elapsed,
		MaxTime:       SummaryCeilingSeconds,
		Players:       s.Players,
		SolvedPuzzles: s.Solved,
	}
}

// RemovePlayer drops the connection from whichever session holds it and
// deletes the session once its roster is empty. The zero Departure means
// the connection was in no session.
func (r *Registry) RemovePlayer(connID string) Departure {
	for code, s := range r.sessions {
		for i, p := range s.Players {
			if p.ID != connID {
				continue
			}
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			if len(s.Players) == 0 {
				delete(r.sessions, code)
			}
			return Departure{Code: code, PlayerName: p.Name, Players: s.Players}
		}
	}
	return Departure{}
}

func (r *Registry) SessionCount() int { return len(r.sessions) }

func (r *Registry) PlayerCount() int {
	n := 0
	for _, s := range r.sessions {
		n += len(s.Players)
	}
	return n
}

// JoinErrorMessage maps a join failure to the user-visible message sent
// back in join-error.
func JoinErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Partie introuvable"
	case errors.Is(err, ErrAlreadyStarted):
		return "La partie a déjà commencé"
	case errors.Is(err, ErrAlreadyJoined):
		return "Vous êtes déjà dans cette partie"
	case errors.Is(err, ErrFull):
		return "Partie complète (4 joueurs max)"
	default:
		return err.Error()
	}
}
