package battle

import (
	"fmt"
	"strings"
)

// Level is the fixed level every creature battles at.
const Level = 50

// MaxBaseStat bounds every base stat. It keeps the HP and damage
// arithmetic far from integer overflow.
const MaxBaseStat = 255

// Stats are a creature's base stats.
type Stats struct {
	HP        int `json:"hp" yaml:"hp"`
	Attack    int `json:"attack" yaml:"attack"`
	Defense   int `json:"defense" yaml:"defense"`
	SpAttack  int `json:"spAttack" yaml:"sp_attack"`
	SpDefense int `json:"spDefense" yaml:"sp_defense"`
	Speed     int `json:"speed" yaml:"speed"`
}

// Creature is one roster entry.
type Creature struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Type1      Type   `json:"type1" yaml:"type1"`
	Type2      Type   `json:"type2,omitempty" yaml:"type2"`
	Stats      Stats  `json:"stats" yaml:"stats"`
	Generation int    `json:"generation" yaml:"generation"`
}

// Validate checks the fields combat depends on.
func (c Creature) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("creature %d has no name", c.ID)
	}
	if !c.Type1.Valid() {
		return fmt.Errorf("%s: unknown primary type %q", c.Name, c.Type1)
	}
	if c.Type2 != "" && !c.Type2.Valid() {
		return fmt.Errorf("%s: unknown secondary type %q", c.Name, c.Type2)
	}
	s := c.Stats
	if s.HP <= 0 || s.Attack <= 0 || s.Defense <= 0 || s.SpAttack <= 0 || s.SpDefense <= 0 || s.Speed <= 0 {
		return fmt.Errorf("%s: stats must be positive", c.Name)
	}
	if max(s.HP, s.Attack, s.Defense, s.SpAttack, s.SpDefense, s.Speed) > MaxBaseStat {
		return fmt.Errorf("%s: stats must not exceed %d", c.Name, MaxBaseStat)
	}
	return nil
}

// MaxHPFor is the level-50 HP stat without IVs or EVs.
func MaxHPFor(baseHP int) int {
	return baseHP*2*Level/100 + Level + 10
}

// Combatant is a creature's battle-time state. HP persists across switches.
type Combatant struct {
	Creature  Creature `json:"creature"`
	MaxHP     int      `json:"maxHp"`
	CurrentHP int      `json:"currentHp"`
	Moves     []Move   `json:"moves"`
}

// NewCombatant wraps c at full HP.
func NewCombatant(c Creature) *Combatant {
	hp := MaxHPFor(c.Stats.HP)
	return &Combatant{Creature: c, MaxHP: hp, CurrentHP: hp}
}

func (c *Combatant) Name() string { return c.Creature.Name }

// IsFainted reports whether HP reached zero.
func (c *Combatant) IsFainted() bool {
	return c.CurrentHP <= 0
}

// HPPercent returns current HP as a percentage of max HP.
func (c *Combatant) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.CurrentHP) * 100 / float64(c.MaxHP)
}

// ApplyDamage lowers HP by n, clamped at zero, and returns the HP actually lost.
func (c *Combatant) ApplyDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > c.CurrentHP {
		n = c.CurrentHP
	}
	c.CurrentHP -= n
	return n
}
