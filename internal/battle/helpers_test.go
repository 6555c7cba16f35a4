package battle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws. Once a script runs out, Intn returns 0
// (always hits, first choice) and Float64 returns 1 (no variance).
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 1
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func creature(name string, t1, t2 Type, hp, atk, def int) Creature {
	return Creature{
		Name:  name,
		Type1: t1,
		Type2: t2,
		Stats: Stats{HP: hp, Attack: atk, Defense: def, SpAttack: atk, SpDefense: def, Speed: 50},
	}
}

func newTestTeam(t *testing.T, owner string, cs ...Creature) *Team {
	t.Helper()
	team, err := NewTeam(owner, cs)
	require.NoError(t, err)
	return team
}

// newDuel builds a one-on-one battle where every combatant knows only move.
func newDuel(t *testing.T, player, enemy Creature, move Move) *State {
	t.Helper()
	p := newTestTeam(t, "ash", player)
	e := newTestTeam(t, "gary", enemy)
	for _, m := range append(p.Members(), e.Members()...) {
		m.Moves = []Move{move}
	}
	st, err := StartBattle(p, e)
	require.NoError(t, err)
	return st
}
