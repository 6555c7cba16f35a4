package practice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pokebattle/internal/battle"
)

type fixedRand struct{}

func (fixedRand) Intn(int) int     { return 0 }
func (fixedRand) Float64() float64 { return 1 }

func creature(name string, hp, power int) battle.Creature {
	return battle.Creature{
		Name: name, Type1: battle.TypeNormal,
		Stats: battle.Stats{HP: hp, Attack: power, Defense: power, SpAttack: power, SpDefense: power, Speed: 50},
	}
}

func newTeam(t *testing.T, owner string, cs ...battle.Creature) *battle.Team {
	t.Helper()
	team, err := battle.NewTeam(owner, cs)
	require.NoError(t, err)
	return team
}

func newDriver() *Driver {
	return New(battle.NewService(battle.DefaultCatalog(), fixedRand{}), zap.NewNop())
}

func TestRunAutoSwitchesAndFinishes(t *testing.T) {
	d := newDriver()
	player := newTeam(t, "ash", creature("Snorlax", 200, 200))
	enemy := newTeam(t, "gary", creature("Magikarp", 1, 1), creature("Feebas", 1, 1))

	res, err := d.Run(context.Background(), player, enemy, nil)
	require.NoError(t, err)
	assert.Equal(t, battle.SidePlayer, res.Winner)
	assert.Equal(t, "ash", res.WinnerName)
	assert.Equal(t, "gary", res.LoserName)
	assert.Equal(t, battle.OutcomeNormal, res.Outcome)
	assert.True(t, enemy.IsDefeated())

	// KO, forced switch, KO.
	require.Len(t, res.Log, 3)
	assert.Contains(t, res.Log[0], "Magikarp fainted!")
	assert.Equal(t, "gary sent out Feebas!", res.Log[1])
	assert.Contains(t, res.Log[2], "Feebas fainted!")
}

func TestRunWithChooser(t *testing.T) {
	d := newDriver()
	player := newTeam(t, "ash", creature("Pidgey", 40, 40), creature("Snorlax", 200, 200))
	enemy := newTeam(t, "gary", creature("Magikarp", 1, 1))

	calls := 0
	choose := func(st *battle.State, side battle.Side) Action {
		calls++
		if st.Team(side).ActiveIndex() == 0 {
			return Action{Switch: true, Index: 1}
		}
		return Action{Index: 0}
	}
	res, err := d.Run(context.Background(), player, enemy, choose)
	require.NoError(t, err)
	assert.Equal(t, "ash", res.WinnerName)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "ash sent out Snorlax!", res.Log[0])
}

func TestRunRejectsBadChoice(t *testing.T) {
	d := newDriver()
	player := newTeam(t, "ash", creature("Snorlax", 200, 200))
	enemy := newTeam(t, "gary", creature("Lapras", 200, 200))

	_, err := d.Run(context.Background(), player, enemy, func(*battle.State, battle.Side) Action {
		return Action{Index: 9}
	})
	assert.ErrorIs(t, err, battle.ErrInvalidMoveIndex)

	player = newTeam(t, "ash", creature("Snorlax", 200, 200))
	enemy = newTeam(t, "gary", creature("Lapras", 200, 200))
	_, err = d.Run(context.Background(), player, enemy, func(*battle.State, battle.Side) Action {
		return Action{Switch: true, Index: 0}
	})
	assert.ErrorIs(t, err, battle.ErrInvalidSwitch)
}

func TestRunTurnLimit(t *testing.T) {
	d := newDriver()
	d.MaxTurns = 3
	player := newTeam(t, "ash", creature("Shuckle", 255, 10))
	enemy := newTeam(t, "gary", creature("Chansey", 255, 10))
	_, err := d.Run(context.Background(), player, enemy, nil)
	assert.ErrorIs(t, err, ErrTurnLimit)
}

func TestRunHonoursContext(t *testing.T) {
	d := newDriver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	player := newTeam(t, "ash", creature("Snorlax", 200, 200))
	enemy := newTeam(t, "gary", creature("Lapras", 200, 200))
	_, err := d.Run(ctx, player, enemy, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type stubSampler struct {
	creatures []battle.Creature
	err       error
}

func (s stubSampler) RandomSample(n int) ([]battle.Creature, error) {
	if s.err != nil {
		return nil, s.err
	}
	if n > len(s.creatures) {
		n = len(s.creatures)
	}
	return s.creatures[:n], nil
}

func TestRandomTeams(t *testing.T) {
	var pool []battle.Creature
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		pool = append(pool, creature(n, 50, 50))
	}
	p, e, err := RandomTeams(stubSampler{creatures: pool}, 3)
	require.NoError(t, err)
	assert.Len(t, p, 3)
	assert.Len(t, e, 3)
	assert.Equal(t, "d", e[0].Name)

	_, _, err = RandomTeams(stubSampler{creatures: pool}, 4)
	assert.Error(t, err, "not enough creatures for two teams")
	_, _, err = RandomTeams(stubSampler{creatures: pool}, 0)
	assert.Error(t, err)
	_, _, err = RandomTeams(stubSampler{err: errors.New("db down")}, 1)
	assert.Error(t, err)
}
