package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveMembers() []Creature {
	return []Creature{
		creature("bulbasaur", TypeGrass, TypePoison, 45, 49, 49),
		creature("charmander", TypeFire, "", 39, 52, 43),
		creature("squirtle", TypeWater, "", 44, 48, 65),
		creature("pikachu", TypeElectric, "", 35, 55, 40),
		creature("eevee", TypeNormal, "", 55, 55, 50),
	}
}

func TestNewTeamSizeLimits(t *testing.T) {
	_, err := NewTeam("ash", nil)
	assert.Error(t, err)

	_, err = NewTeam("ash", append(fiveMembers(), creature("mew", TypePsychic, "", 100, 100, 100)))
	assert.Error(t, err)

	team, err := NewTeam("ash", fiveMembers())
	require.NoError(t, err)
	assert.Equal(t, 5, team.Size())
	assert.Equal(t, 0, team.ActiveIndex())
}

func TestNewTeamRejectsInvalidCreature(t *testing.T) {
	bad := creature("missingno", "bird", "", 33, 136, 0)
	_, err := NewTeam("ash", []Creature{bad})
	assert.Error(t, err)
}

func TestCombatantHPClamp(t *testing.T) {
	c := NewCombatant(creature("pikachu", TypeElectric, "", 40, 55, 40))
	assert.Equal(t, 100, c.MaxHP)
	assert.Equal(t, 100, c.CurrentHP)

	assert.Equal(t, 30, c.ApplyDamage(30))
	assert.Equal(t, 70.0, c.HPPercent())
	assert.Equal(t, 0, c.ApplyDamage(-5))
	assert.Equal(t, 70, c.ApplyDamage(500))
	assert.Equal(t, 0, c.CurrentHP)
	assert.True(t, c.IsFainted())
}

func TestSwitchRejection(t *testing.T) {
	team := newTestTeam(t, "ash", fiveMembers()...)
	team.Member(2).ApplyDamage(1000)
	hpBefore := team.Member(0).CurrentHP

	assert.False(t, team.SwitchTo(0), "already active")
	assert.False(t, team.SwitchTo(2), "fainted")
	assert.False(t, team.SwitchTo(7), "out of range")
	assert.False(t, team.SwitchTo(-1), "negative")
	assert.Equal(t, 0, team.ActiveIndex())
	assert.Equal(t, hpBefore, team.Member(0).CurrentHP)

	assert.True(t, team.SwitchTo(3))
	assert.Equal(t, 3, team.ActiveIndex())
}

func TestHPPersistsAcrossSwitches(t *testing.T) {
	team := newTestTeam(t, "ash", fiveMembers()...)
	team.Active().ApplyDamage(20)
	require.True(t, team.SwitchTo(1))
	require.True(t, team.SwitchTo(0))
	assert.Equal(t, team.Active().MaxHP-20, team.Active().CurrentHP)
}

func TestAutoSwitchToNextAlive(t *testing.T) {
	team := newTestTeam(t, "ash", fiveMembers()...)
	team.Member(0).ApplyDamage(1000)
	team.Member(1).ApplyDamage(1000)

	require.True(t, team.AutoSwitchToNextAlive())
	assert.Equal(t, 2, team.ActiveIndex())

	for _, m := range team.Members() {
		if m != team.Active() {
			m.ApplyDamage(1000)
		}
	}
	assert.False(t, team.AutoSwitchToNextAlive())
	assert.Equal(t, 2, team.ActiveIndex())
	assert.False(t, team.IsDefeated())
}

func TestDefeatDetection(t *testing.T) {
	team := newTestTeam(t, "ash", fiveMembers()...)
	for i, m := range team.Members() {
		if i != 4 {
			m.ApplyDamage(1000)
		}
	}
	assert.False(t, team.IsDefeated(), "one member left, even though it is not active")
	assert.Equal(t, 1, team.AliveCount())

	team.Member(4).ApplyDamage(1000)
	assert.True(t, team.IsDefeated())
	assert.False(t, team.HasHealthyBench())
}
