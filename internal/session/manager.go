package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pokebattle/internal/battle"
	"pokebattle/internal/logging"
	"pokebattle/internal/protocol"
)

// TeamVerifier checks a client-declared creature against a canonical roster.
type TeamVerifier interface {
	Verify(c battle.Creature) error
}

// waiter is the single queued player awaiting an opponent.
type waiter struct {
	gameID string
	player *Player
	name   string
	team   []battle.Creature
	since  time.Time
}

// Manager owns the matchmaking slot and the live session registry.
// Matchmaking and registry changes happen under mu; each session's intents
// are serialized by the session's own lock. A session lock may be held while
// taking mu, never the reverse, except for a session not yet published.
type Manager struct {
	mu       sync.Mutex
	waiting  *waiter
	sessions map[string]*Session
	byPlayer map[string]*Session

	battles  *battle.Service
	verifier TeamVerifier
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithVerifier rejects teams whose creatures do not match v.
func WithVerifier(v TeamVerifier) Option {
	return func(m *Manager) { m.verifier = v }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager.
func NewManager(battles *battle.Service, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]*Session),
		battles:  battles,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchmakePlayer queues p or pairs it with the waiting player. A non-empty
// req.GameID pairs only with the waiter holding that id.
func (m *Manager) MatchmakePlayer(p *Player, req protocol.TeamPayload) error {
	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidTeam, "playerName is required"))
	}
	creatures, err := protocol.Creatures(req.Team)
	if err != nil {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidTeam, "%v", err))
	}
	if m.verifier != nil {
		for _, c := range creatures {
			if err := m.verifier.Verify(c); err != nil {
				return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidTeam, "%v", err))
			}
		}
	}

	m.mu.Lock()
	if _, busy := m.byPlayer[p.ID]; busy || (m.waiting != nil && m.waiting.player == p) {
		m.mu.Unlock()
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeGameFull, "already in a game"))
	}

	if req.GameID != "" && (m.waiting == nil || m.waiting.gameID != req.GameID) {
		_, live := m.sessions[req.GameID]
		m.mu.Unlock()
		if live {
			return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeGameFull, "game %s already has two players", req.GameID))
		}
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeGameNotFound, "no waiting game %s", req.GameID))
	}

	if m.waiting == nil {
		w := &waiter{gameID: uuid.NewString(), player: p, name: name, team: creatures, since: m.now()}
		m.waiting = w
		m.mu.Unlock()
		m.log.Info("player waiting for opponent", logging.GameID(w.gameID), logging.PlayerID(p.ID), logging.PlayerName(name))
		m.send(p, protocol.MsgGameCreated, protocol.GameCreatedPayload{
			GameID: w.gameID, IsPlayerOne: true, Status: protocol.StatusWaiting,
		})
		return nil
	}

	w := m.waiting
	m.waiting = nil
	s, err := m.startSession(w, p, name, creatures)
	if err != nil {
		m.mu.Unlock()
		m.log.Error("battle setup failed", logging.GameID(w.gameID), zap.Error(err))
		setupErr := protocol.Errorf(protocol.CodeInvalidTeam, "battle setup failed: %v", err)
		m.send(w.player, protocol.MsgGameError, setupErr)
		m.send(p, protocol.MsgGameError, setupErr)
		return setupErr
	}
	// Hold the session lock until both sides have their opening frames so
	// no intent can overtake GAME_STARTED.
	s.mu.Lock()
	m.sessions[s.ID] = s
	m.byPlayer[w.player.ID] = s
	m.byPlayer[p.ID] = s
	m.mu.Unlock()
	defer s.mu.Unlock()

	m.log.Info("session started", logging.GameID(s.ID),
		zap.String("player_one", s.names[0]), zap.String("player_two", s.names[1]))
	for i, side := range []battle.Side{battle.SidePlayer, battle.SideEnemy} {
		m.send(s.player(side), protocol.MsgGameJoined, protocol.GameJoinedPayload{
			GameID: s.ID, IsPlayerOne: i == 0, OpponentName: s.name(side.Opponent()),
		})
	}
	for _, side := range []battle.Side{battle.SidePlayer, battle.SideEnemy} {
		m.send(s.player(side), protocol.MsgGameStarted, protocol.GameStartedPayload{
			State: protocol.NewSnapshot(s.ID, s.state, side),
		})
	}
	return nil
}

func (m *Manager) startSession(w *waiter, p *Player, name string, creatures []battle.Creature) (*Session, error) {
	one, err := battle.NewTeam(w.name, w.team)
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", w.name, err)
	}
	two, err := battle.NewTeam(name, creatures)
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", name, err)
	}
	m.battles.AssignMovesets(one)
	m.battles.AssignMovesets(two)
	st, err := battle.StartBattle(one, two)
	if err != nil {
		return nil, err
	}
	now := m.now()
	return &Session{
		ID:          w.gameID,
		Created:     now,
		players:     [2]*Player{w.player, p},
		names:       [2]string{w.name, name},
		state:       st,
		turnStarted: now,
	}, nil
}

// acquire looks up p's session and locks it. The caller unlocks.
func (m *Manager) acquire(p *Player) (*Session, battle.Side, error) {
	m.mu.Lock()
	s := m.byPlayer[p.ID]
	m.mu.Unlock()
	if s == nil {
		return nil, 0, protocol.Errorf(protocol.CodeGameNotFound, "not in a game")
	}
	s.mu.Lock()
	side, ok := s.sideOf(p)
	if s.ended || !ok {
		s.mu.Unlock()
		return nil, 0, protocol.Errorf(protocol.CodeGameNotFound, "game %s is over", s.ID)
	}
	return s, side, nil
}

// checkTurn enforces the preconditions shared by moves and switches.
func checkTurn(s *Session, side battle.Side) *protocol.Error {
	if s.state == nil {
		return protocol.Errorf(protocol.CodeInvalidMove, "battle has not started")
	}
	if s.state.Turn() != side {
		return protocol.Errorf(protocol.CodeNotYourTurn, "waiting for %s", s.name(side.Opponent()))
	}
	return nil
}

// ProcessMove resolves the turn owner's moveIndex-th move.
func (m *Manager) ProcessMove(p *Player, moveIndex int) error {
	s, side, err := m.acquire(p)
	if err != nil {
		return m.reject(p, protocol.MsgError, err)
	}
	defer s.mu.Unlock()

	if perr := checkTurn(s, side); perr != nil {
		return m.reject(p, protocol.MsgError, perr)
	}
	if s.state.MustSwitch() {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "switch out your fainted creature first"))
	}
	res, err := m.battles.ExecuteMoveIndex(s.state, moveIndex)
	if err != nil {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "%v", err))
	}
	if err := s.state.AdvanceAfterMove(); err != nil {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "%v", err))
	}
	m.afterAction(s, res.Message)
	return nil
}

// ProcessSwitchPokemon makes the turn owner's member index active.
func (m *Manager) ProcessSwitchPokemon(p *Player, index int) error {
	s, side, err := m.acquire(p)
	if err != nil {
		return m.reject(p, protocol.MsgError, err)
	}
	defer s.mu.Unlock()

	if perr := checkTurn(s, side); perr != nil {
		return m.reject(p, protocol.MsgError, perr)
	}
	team := s.state.Team(side)
	if !m.battles.SwitchActive(team, index) {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "%v: %d", battle.ErrInvalidSwitch, index))
	}
	if err := s.state.AdvanceAfterSwitch(); err != nil {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "%v", err))
	}
	m.afterAction(s, fmt.Sprintf("%s sent out %s!", s.name(side), team.Active().Name()))
	return nil
}

// ProcessForfeit ends p's battle in the opponent's favour regardless of
// whose turn it is.
func (m *Manager) ProcessForfeit(p *Player, reason string) error {
	s, side, err := m.acquire(p)
	if err != nil {
		return m.reject(p, protocol.MsgError, err)
	}
	defer s.mu.Unlock()

	if err := s.state.End(side.Opponent(), battle.OutcomeForfeit); err != nil {
		return m.reject(p, protocol.MsgError, protocol.Errorf(protocol.CodeGameNotFound, "%v", err))
	}
	m.log.Info("player forfeited", logging.GameID(s.ID), logging.PlayerName(s.name(side)), zap.String("reason", reason))
	m.finish(s)
	return nil
}

// HandleDisconnect clears the waiting slot if p held it, or ends p's
// battle with the opponent winning by DISCONNECT.
func (m *Manager) HandleDisconnect(p *Player) {
	m.mu.Lock()
	if m.waiting != nil && m.waiting.player == p {
		gameID := m.waiting.gameID
		m.waiting = nil
		m.mu.Unlock()
		m.log.Info("waiting player left", logging.GameID(gameID), logging.PlayerID(p.ID))
		return
	}
	m.mu.Unlock()

	s, side, err := m.acquire(p)
	if err != nil {
		return
	}
	defer s.mu.Unlock()
	if err := s.state.End(side.Opponent(), battle.OutcomeDisconnect); err != nil {
		m.log.Error("end battle on disconnect", logging.GameID(s.ID), zap.Error(err))
		return
	}
	m.finish(s)
}

// afterAction broadcasts the result of a resolved intent and either ends
// the battle or marks the turn boundary. Caller holds s.mu.
func (m *Manager) afterAction(s *Session, message string) {
	for _, side := range []battle.Side{battle.SidePlayer, battle.SideEnemy} {
		m.send(s.player(side), protocol.MsgBattleStateUpdate, protocol.BattleStateUpdatePayload{
			State:         protocol.NewSnapshot(s.ID, s.state, side),
			ActionMessage: message,
		})
	}
	if s.state.IsOver() {
		m.finish(s)
		return
	}
	s.turnStarted = m.now()
	for _, p := range s.players {
		m.send(p, protocol.MsgTurnComplete, nil)
	}
}

// finish announces the result and removes the session. Caller holds s.mu.
func (m *Manager) finish(s *Session) {
	winner, outcome, _ := s.state.Result()
	end := protocol.BattleEndPayload{
		WinnerName: s.name(winner),
		LoserName:  s.name(winner.Opponent()),
		Outcome:    string(outcome),
	}
	for _, p := range s.players {
		m.send(p, protocol.MsgBattleEnd, end)
	}
	s.ended = true

	m.mu.Lock()
	delete(m.sessions, s.ID)
	for _, p := range s.players {
		if m.byPlayer[p.ID] == s {
			delete(m.byPlayer, p.ID)
		}
	}
	m.mu.Unlock()
	m.log.Info("session ended", logging.GameID(s.ID), logging.Outcome(end.Outcome),
		zap.String("winner", end.WinnerName), zap.Int("turns", s.state.TurnNumber()))
}

// ExpireLoop auto-forfeits turn owners idle for longer than timeout,
// checking every interval until ctx is done.
func (m *Manager) ExpireLoop(ctx context.Context, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.ExpireIdle(timeout); n > 0 {
				m.log.Info("expired idle turns", zap.Int("sessions", n))
			}
		}
	}
}

// ExpireIdle forfeits every battle whose current turn has been pending
// longer than timeout. It returns the number of battles ended.
func (m *Manager) ExpireIdle(timeout time.Duration) int {
	expired := 0
	now := m.now()
	for _, s := range m.snapshot() {
		s.mu.Lock()
		if !s.ended && now.Sub(s.turnStarted) > timeout {
			idle := s.state.Turn()
			if err := s.state.End(idle.Opponent(), battle.OutcomeForfeit); err == nil {
				m.log.Warn("turn timed out", logging.GameID(s.ID), logging.PlayerName(s.name(idle)))
				m.finish(s)
				expired++
			}
		}
		s.mu.Unlock()
	}
	return expired
}

func (m *Manager) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Get returns a live session by game id.
func (m *Manager) Get(gameID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[gameID]
	return s, ok
}

// List returns the waiting game, if any, and every live session, oldest
// first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	var infos []Info
	if w := m.waiting; w != nil {
		infos = append(infos, Info{
			GameID:    w.gameID,
			Status:    StatusWaiting,
			Players:   []string{w.name},
			CreatedAt: w.since,
		})
	}
	m.mu.Unlock()

	for _, s := range m.snapshot() {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].GameID < infos[j].GameID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

func (m *Manager) send(p *Player, t protocol.Type, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		m.log.Error("encode message", logging.MsgType(string(t)), zap.Error(err))
		return
	}
	if p.Deliver(data) {
		return
	}
	if carriesState(t) && p.Evict() {
		m.log.Warn("outbox full, evicting player", logging.PlayerID(p.ID), logging.MsgType(string(t)))
		return
	}
	m.log.Warn("dropped outbound message", logging.PlayerID(p.ID), logging.MsgType(string(t)))
}

// carriesState reports whether losing a frame of type t would leave the
// client with a stale view of its battle.
func carriesState(t protocol.Type) bool {
	switch t {
	case protocol.MsgGameJoined, protocol.MsgGameStarted, protocol.MsgBattleStateUpdate,
		protocol.MsgTurnComplete, protocol.MsgBattleEnd:
		return true
	}
	return false
}

// reject replies to p with err and returns it. Errors that are not
// *protocol.Error are sent as INVALID_MOVE.
func (m *Manager) reject(p *Player, t protocol.Type, err error) error {
	var perr *protocol.Error
	if !errors.As(err, &perr) {
		perr = protocol.Errorf(protocol.CodeInvalidMove, "%v", err)
	}
	m.log.Warn("rejected intent", logging.PlayerID(p.ID), logging.ErrorCode(string(perr.Code)), zap.String("reason", perr.Message))
	m.send(p, t, perr)
	return perr
}
