package session

import (
	"sync"
	"time"

	"pokebattle/internal/battle"
)

// Status values reported by Info.
const (
	StatusWaiting = "WAITING"
	StatusPlaying = "PLAYING"
)

// Session is one live match. Player one holds battle.SidePlayer and moves
// first. All intent handling for a session runs under mu.
type Session struct {
	ID      string
	Created time.Time

	mu          sync.Mutex
	players     [2]*Player
	names       [2]string
	state       *battle.State
	turnStarted time.Time
	ended       bool
}

func sideIndex(side battle.Side) int {
	if side == battle.SidePlayer {
		return 0
	}
	return 1
}

// sideOf returns the side p plays for.
func (s *Session) sideOf(p *Player) (battle.Side, bool) {
	switch p {
	case s.players[0]:
		return battle.SidePlayer, true
	case s.players[1]:
		return battle.SideEnemy, true
	}
	return 0, false
}

func (s *Session) player(side battle.Side) *Player { return s.players[sideIndex(side)] }
func (s *Session) name(side battle.Side) string    { return s.names[sideIndex(side)] }

// Info is the lobby view of a session or of the matchmaking waiter.
type Info struct {
	GameID     string    `json:"gameId"`
	Status     string    `json:"status"`
	Players    []string  `json:"players"`
	Phase      string    `json:"phase,omitempty"`
	TurnNumber int       `json:"turnNumber,omitempty"`
	Turn       string    `json:"turn,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Info returns the session's lobby view.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		GameID:    s.ID,
		Status:    StatusPlaying,
		Players:   []string{s.names[0], s.names[1]},
		CreatedAt: s.Created,
	}
	if s.state != nil {
		info.Phase = string(s.state.Phase())
		info.TurnNumber = s.state.TurnNumber()
		info.Turn = s.name(s.state.Turn())
	}
	return info
}
