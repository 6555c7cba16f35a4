package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Side identifies one of the two teams in a battle.
type Side int

const (
	SidePlayer Side = iota
	SideEnemy
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

func (s Side) String() string {
	if s == SidePlayer {
		return "PLAYER"
	}
	return "ENEMY"
}

// Phase is the battle's position in its state machine.
type Phase string

const (
	PhaseOngoing        Phase = "ONGOING"
	PhasePokemonFainted Phase = "POKEMON_FAINTED"
	PhaseEnded          Phase = "ENDED"
)

// Outcome classifies how a battle ended.
type Outcome string

const (
	OutcomeNormal     Outcome = "NORMAL"
	OutcomeForfeit    Outcome = "FORFEIT"
	OutcomeDisconnect Outcome = "DISCONNECT"
)

const (
	eventFaint   = "faint"
	eventReplace = "replace"
	eventEnd     = "end"
)

var (
	ErrBattleOver       = errors.New("battle is over")
	ErrMustSwitch       = errors.New("fainted creature must be switched out")
	ErrNoFaintPending   = errors.New("no fainted creature awaiting a switch")
	ErrAttackerFainted  = errors.New("attacking creature has fainted")
	ErrDefenderFainted  = errors.New("defending creature has already fainted")
	ErrInvalidMoveIndex = errors.New("invalid move index")
	ErrInvalidSwitch    = errors.New("cannot switch to that creature")
)

// State is the authoritative state of one battle. It is not safe for
// concurrent use; its owner serializes access.
type State struct {
	Player *Team
	Enemy  *Team

	turn       Side
	turnNumber int
	phase      *fsm.FSM
	winner     Side
	outcome    Outcome
}

// StartBattle creates a battle with the player side moving first.
func StartBattle(player, enemy *Team) (*State, error) {
	if player == nil || enemy == nil {
		return nil, fmt.Errorf("start battle: both teams are required")
	}
	if player.IsDefeated() || enemy.IsDefeated() {
		return nil, fmt.Errorf("start battle: a team has no healthy members")
	}
	ongoing, fainted, ended := string(PhaseOngoing), string(PhasePokemonFainted), string(PhaseEnded)
	return &State{
		Player:     player,
		Enemy:      enemy,
		turn:       SidePlayer,
		turnNumber: 1,
		phase: fsm.NewFSM(ongoing, fsm.Events{
			{Name: eventFaint, Src: []string{ongoing}, Dst: fainted},
			{Name: eventReplace, Src: []string{fainted}, Dst: ongoing},
			{Name: eventEnd, Src: []string{ongoing, fainted}, Dst: ended},
		}, fsm.Callbacks{}),
	}, nil
}

// Turn returns the side allowed to act.
func (s *State) Turn() Side { return s.turn }

// TurnNumber counts resolved actions, starting at 1.
func (s *State) TurnNumber() int { return s.turnNumber }

// Phase returns the current phase.
func (s *State) Phase() Phase { return Phase(s.phase.Current()) }

// IsOver reports whether the battle has ended.
func (s *State) IsOver() bool { return s.Phase() == PhaseEnded }

// MustSwitch reports whether the turn owner has to replace a fainted creature.
func (s *State) MustSwitch() bool { return s.Phase() == PhasePokemonFainted }

// Team returns the team on side.
func (s *State) Team(side Side) *Team {
	if side == SidePlayer {
		return s.Player
	}
	return s.Enemy
}

// Attacker returns the turn owner's active combatant.
func (s *State) Attacker() *Combatant { return s.Team(s.turn).Active() }

// Defender returns the other side's active combatant.
func (s *State) Defender() *Combatant { return s.Team(s.turn.Opponent()).Active() }

// Result returns the winner and outcome once the battle has ended.
func (s *State) Result() (winner Side, outcome Outcome, over bool) {
	if !s.IsOver() {
		return 0, "", false
	}
	return s.winner, s.outcome, true
}

func (s *State) fire(event string) error {
	return s.phase.Event(context.Background(), event)
}

// markFainted moves ONGOING to POKEMON_FAINTED.
func (s *State) markFainted() error {
	return s.fire(eventFaint)
}

// End terminates the battle from any live phase.
func (s *State) End(winner Side, outcome Outcome) error {
	if s.IsOver() {
		return ErrBattleOver
	}
	if err := s.fire(eventEnd); err != nil {
		return fmt.Errorf("end battle: %w", err)
	}
	s.winner = winner
	s.outcome = outcome
	return nil
}

func (s *State) passTurn() {
	s.turn = s.turn.Opponent()
	s.turnNumber++
}

// AdvanceAfterMove finishes a resolved move. A knockout of the last healthy
// defender ends the battle for the attacker; any other knockout hands the
// turn to the fainted side, which must switch before anything else. Without
// a knockout the turn simply passes.
func (s *State) AdvanceAfterMove() error {
	switch s.Phase() {
	case PhaseEnded:
		return ErrBattleOver
	case PhasePokemonFainted:
		defender := s.Team(s.turn.Opponent())
		if !defender.HasHealthyBench() {
			return s.End(s.turn, OutcomeNormal)
		}
	}
	s.passTurn()
	return nil
}

// AdvanceAfterSwitch finishes a switch by the turn owner. A mandatory
// switch returns the battle to ONGOING. Either way the turn passes, so a
// forced replacement never grants an extra action.
func (s *State) AdvanceAfterSwitch() error {
	switch s.Phase() {
	case PhaseEnded:
		return ErrBattleOver
	case PhasePokemonFainted:
		if s.Team(s.turn).Active().IsFainted() {
			return ErrMustSwitch
		}
		if err := s.fire(eventReplace); err != nil {
			return fmt.Errorf("replace fainted creature: %w", err)
		}
	}
	s.passTurn()
	return nil
}
