package battle

import "fmt"

// MaxTeamSize is the largest roster a side may bring.
const MaxTeamSize = 5

// Team is an ordered roster plus the index of the active member.
type Team struct {
	Owner   string
	members []*Combatant
	active  int
}

// NewTeam builds a team of fresh combatants from creatures.
func NewTeam(owner string, creatures []Creature) (*Team, error) {
	if len(creatures) == 0 {
		return nil, fmt.Errorf("team %s is empty", owner)
	}
	if len(creatures) > MaxTeamSize {
		return nil, fmt.Errorf("team %s has %d members, max is %d", owner, len(creatures), MaxTeamSize)
	}
	t := &Team{Owner: owner, members: make([]*Combatant, 0, len(creatures))}
	for _, c := range creatures {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("team %s: %w", owner, err)
		}
		t.members = append(t.members, NewCombatant(c))
	}
	return t, nil
}

// Members returns the combatants in roster order.
func (t *Team) Members() []*Combatant {
	return t.members
}

// Size returns the number of members.
func (t *Team) Size() int { return len(t.members) }

// Member returns the combatant at i, or nil when out of range.
func (t *Team) Member(i int) *Combatant {
	if i < 0 || i >= len(t.members) {
		return nil
	}
	return t.members[i]
}

// ActiveIndex returns the index of the active combatant.
func (t *Team) ActiveIndex() int { return t.active }

// Active returns the active combatant.
func (t *Team) Active() *Combatant { return t.members[t.active] }

// CanSwitchTo reports whether i names a healthy, inactive member.
func (t *Team) CanSwitchTo(i int) bool {
	m := t.Member(i)
	return m != nil && i != t.active && !m.IsFainted()
}

// SwitchTo makes member i active. It fails without mutating anything when
// the target is out of range, fainted, or already active.
func (t *Team) SwitchTo(i int) bool {
	if !t.CanSwitchTo(i) {
		return false
	}
	t.active = i
	return true
}

// AutoSwitchToNextAlive activates the first healthy member, scanning from
// index 0 and skipping the current active one. It returns false and leaves
// the team untouched when no such member exists.
func (t *Team) AutoSwitchToNextAlive() bool {
	for i := range t.members {
		if t.CanSwitchTo(i) {
			t.active = i
			return true
		}
	}
	return false
}

// HasHealthyBench reports whether any inactive member can still fight.
func (t *Team) HasHealthyBench() bool {
	for i := range t.members {
		if t.CanSwitchTo(i) {
			return true
		}
	}
	return false
}

// AliveCount returns how many members have HP left.
func (t *Team) AliveCount() int {
	n := 0
	for _, m := range t.members {
		if !m.IsFainted() {
			n++
		}
	}
	return n
}

// IsDefeated reports whether every member has fainted.
func (t *Team) IsDefeated() bool {
	return t.AliveCount() == 0
}
