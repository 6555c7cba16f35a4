package battle

import (
	"fmt"
	"math"
	"strings"
)

// MovesetSize is the number of moves every combatant carries.
const MovesetSize = 4

// MoveResult describes one resolved move.
type MoveResult struct {
	Attacker      string  `json:"attacker"`
	Defender      string  `json:"defender"`
	Move          Move    `json:"move"`
	Hit           bool    `json:"hit"`
	Damage        int     `json:"damage"`
	Effectiveness float64 `json:"effectiveness"`
	Fainted       bool    `json:"fainted"`
	Message       string  `json:"message"`
}

// Service resolves moves. It holds no battle state and never touches the
// network, so human-vs-AI and human-vs-human battles share it.
type Service struct {
	catalog *Catalog
	rng     Rand
}

// NewService creates a service over catalog drawing from rng.
func NewService(catalog *Catalog, rng Rand) *Service {
	return &Service{catalog: catalog, rng: rng}
}

// Catalog returns the move catalog the service draws movesets from.
func (s *Service) Catalog() *Catalog { return s.catalog }

// GenerateMoveset picks two moves of the creature's primary type, one of its
// secondary type (or primary again when it has none), and one normal-type
// filler. Gaps are padded with FillerMove.
func (s *Service) GenerateMoveset(c Creature) []Move {
	set := make([]Move, 0, MovesetSize)
	seen := make(map[string]bool, MovesetSize)
	pick := func(t Type, n int) {
		var pool []Move
		for _, m := range s.catalog.MovesOfType(t) {
			if !seen[m.Name] {
				pool = append(pool, m)
			}
		}
		for ; n > 0 && len(pool) > 0; n-- {
			i := s.rng.Intn(len(pool))
			set = append(set, pool[i])
			seen[pool[i].Name] = true
			pool = append(pool[:i], pool[i+1:]...)
		}
	}
	pick(c.Type1, 2)
	if c.Type2 != "" && c.Type2 != c.Type1 {
		pick(c.Type2, 1)
	} else {
		pick(c.Type1, 1)
	}
	pick(TypeNormal, MovesetSize-len(set))
	for len(set) < MovesetSize {
		set = append(set, FillerMove)
	}
	return set
}

// AssignMovesets gives every member of t a generated moveset.
func (s *Service) AssignMovesets(t *Team) {
	for _, m := range t.Members() {
		m.Moves = s.GenerateMoveset(m.Creature)
	}
}

// CalculateDamage applies the level-50 damage formula. variance is the
// random factor in [0.85, 1.0]. The result is floored and never below 1.
func CalculateDamage(attacker, defender Creature, move Move, effectiveness, variance float64) int {
	atk, def := attacker.Stats.Attack, defender.Stats.Defense
	if move.Category == Special {
		atk, def = attacker.Stats.SpAttack, defender.Stats.SpDefense
	}
	if def <= 0 {
		def = 1
	}
	base := float64(2*Level/5+2)*float64(move.Power)*float64(atk)/float64(def)/50 + 2
	dmg := int(math.Floor(base * effectiveness * variance))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// ExecuteMove resolves move from the turn owner's active combatant against
// the opponent's. It neither switches creatures nor passes the turn; a
// knockout only moves the phase to POKEMON_FAINTED.
func (s *Service) ExecuteMove(st *State, move Move) (MoveResult, error) {
	switch st.Phase() {
	case PhaseEnded:
		return MoveResult{}, ErrBattleOver
	case PhasePokemonFainted:
		return MoveResult{}, ErrMustSwitch
	}
	atk, def := st.Attacker(), st.Defender()
	if atk.IsFainted() {
		return MoveResult{}, ErrAttackerFainted
	}
	if def.IsFainted() {
		return MoveResult{}, ErrDefenderFainted
	}

	res := MoveResult{Attacker: atk.Name(), Defender: def.Name(), Move: move}
	used := fmt.Sprintf("%s used %s!", atk.Name(), move.DisplayName())

	if s.rng.Intn(100) >= move.Accuracy {
		res.Message = used + " But it missed!"
		return res, nil
	}

	res.Hit = true
	res.Effectiveness = Effectiveness(move.Type, def.Creature.Type1, def.Creature.Type2)
	variance := 0.85 + 0.15*s.rng.Float64()
	dmg := CalculateDamage(atk.Creature, def.Creature, move, res.Effectiveness, variance)
	res.Damage = def.ApplyDamage(dmg)

	parts := []string{used}
	if note := effectivenessNote(res.Effectiveness); note != "" {
		parts = append(parts, note)
	}
	parts = append(parts, fmt.Sprintf("%s took %d damage.", def.Name(), res.Damage))
	if def.IsFainted() {
		res.Fainted = true
		parts = append(parts, fmt.Sprintf("%s fainted!", def.Name()))
		if err := st.markFainted(); err != nil {
			return res, fmt.Errorf("mark fainted: %w", err)
		}
	}
	res.Message = strings.Join(parts, " ")
	return res, nil
}

// ExecuteMoveIndex resolves the turn owner's idx-th move.
func (s *Service) ExecuteMoveIndex(st *State, idx int) (MoveResult, error) {
	if st.IsOver() {
		return MoveResult{}, ErrBattleOver
	}
	moves := st.Attacker().Moves
	if idx < 0 || idx >= len(moves) {
		return MoveResult{}, fmt.Errorf("%w: %d", ErrInvalidMoveIndex, idx)
	}
	return s.ExecuteMove(st, moves[idx])
}

// ExecuteEnemyTurn is the whole AI policy: a uniformly random move from
// the turn owner's moveset.
func (s *Service) ExecuteEnemyTurn(st *State) (MoveResult, error) {
	if st.IsOver() {
		return MoveResult{}, ErrBattleOver
	}
	moves := st.Attacker().Moves
	if len(moves) == 0 {
		return s.ExecuteMove(st, FillerMove)
	}
	return s.ExecuteMove(st, moves[s.rng.Intn(len(moves))])
}

// SwitchActive activates member idx of t; see Team.SwitchTo.
func (s *Service) SwitchActive(t *Team, idx int) bool {
	return t.SwitchTo(idx)
}

// AutoSwitchToNextAlive activates the first healthy bench member of t.
func (s *Service) AutoSwitchToNextAlive(t *Team) bool {
	return t.AutoSwitchToNextAlive()
}

func effectivenessNote(m float64) string {
	switch {
	case m == 0:
		return "It had almost no effect..."
	case m > 1:
		return "It's super effective!"
	case m < 1:
		return "It's not very effective..."
	}
	return ""
}
