// Package practice runs battles in-process against the AI, using the same
// combat core as networked matches.
package practice

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pokebattle/internal/battle"
	"pokebattle/internal/logging"
)

// DefaultMaxTurns stops runaway battles.
const DefaultMaxTurns = 1000

// ErrTurnLimit is returned when a battle does not finish within the limit.
var ErrTurnLimit = errors.New("turn limit reached")

// Action is one side's choice for its turn.
type Action struct {
	Switch bool
	Index  int // move index, or team index when Switch is set
}

// Chooser picks the action for side. A nil Chooser means the AI policy.
type Chooser func(st *battle.State, side battle.Side) Action

// Sampler draws random creatures from a roster.
type Sampler interface {
	RandomSample(n int) ([]battle.Creature, error)
}

// Result summarizes a finished practice battle.
type Result struct {
	Winner     battle.Side
	WinnerName string
	LoserName  string
	Outcome    battle.Outcome
	Turns      int
	Log        []string
}

// Driver runs practice battles.
type Driver struct {
	battles  *battle.Service
	log      *zap.Logger
	MaxTurns int
}

// New creates a driver.
func New(battles *battle.Service, log *zap.Logger) *Driver {
	return &Driver{battles: battles, log: log, MaxTurns: DefaultMaxTurns}
}

// RandomTeams draws two disjoint teams of size members from roster.
func RandomTeams(roster Sampler, size int) (player, enemy []battle.Creature, err error) {
	if size < 1 || size > battle.MaxTeamSize {
		return nil, nil, fmt.Errorf("team size %d out of range 1-%d", size, battle.MaxTeamSize)
	}
	drawn, err := roster.RandomSample(size * 2)
	if err != nil {
		return nil, nil, fmt.Errorf("sample roster: %w", err)
	}
	if len(drawn) < size*2 {
		return nil, nil, fmt.Errorf("roster has %d creatures, need %d", len(drawn), size*2)
	}
	return drawn[:size], drawn[size : size*2], nil
}

// Run plays player against enemy until one side is defeated. choose picks
// the player's actions; the enemy always uses the AI policy. Fainted
// creatures are replaced automatically for both sides.
func (d *Driver) Run(ctx context.Context, player, enemy *battle.Team, choose Chooser) (Result, error) {
	for _, t := range []*battle.Team{player, enemy} {
		if len(t.Active().Moves) == 0 {
			d.battles.AssignMovesets(t)
		}
	}
	st, err := battle.StartBattle(player, enemy)
	if err != nil {
		return Result{}, err
	}
	log := d.log.With(zap.String("player", player.Owner), zap.String("enemy", enemy.Owner))

	var res Result
	for !st.IsOver() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if st.TurnNumber() > d.MaxTurns {
			return res, fmt.Errorf("%w: %d", ErrTurnLimit, d.MaxTurns)
		}
		line, err := d.step(st, choose)
		if err != nil {
			return res, fmt.Errorf("turn %d: %w", st.TurnNumber(), err)
		}
		res.Log = append(res.Log, line)
		log.Debug("practice turn", zap.Int("turn", st.TurnNumber()), zap.String("action", line))
	}

	winner, outcome, _ := st.Result()
	res.Winner = winner
	res.WinnerName = st.Team(winner).Owner
	res.LoserName = st.Team(winner.Opponent()).Owner
	res.Outcome = outcome
	res.Turns = st.TurnNumber()
	log.Info("practice battle finished", zap.String("winner", res.WinnerName),
		logging.Outcome(string(outcome)), zap.Int("turns", res.Turns))
	return res, nil
}

// step resolves one action by the turn owner and advances the battle.
func (d *Driver) step(st *battle.State, choose Chooser) (string, error) {
	side := st.Turn()
	team := st.Team(side)

	if st.MustSwitch() {
		if !d.battles.AutoSwitchToNextAlive(team) {
			return "", battle.ErrInvalidSwitch
		}
		line := fmt.Sprintf("%s sent out %s!", team.Owner, team.Active().Name())
		return line, st.AdvanceAfterSwitch()
	}

	if side == battle.SidePlayer && choose != nil {
		act := choose(st, side)
		if act.Switch {
			if !d.battles.SwitchActive(team, act.Index) {
				return "", fmt.Errorf("%w: %d", battle.ErrInvalidSwitch, act.Index)
			}
			line := fmt.Sprintf("%s sent out %s!", team.Owner, team.Active().Name())
			return line, st.AdvanceAfterSwitch()
		}
		res, err := d.battles.ExecuteMoveIndex(st, act.Index)
		if err != nil {
			return "", err
		}
		return res.Message, st.AdvanceAfterMove()
	}

	res, err := d.battles.ExecuteEnemyTurn(st)
	if err != nil {
		return "", err
	}
	return res.Message, st.AdvanceAfterMove()
}
