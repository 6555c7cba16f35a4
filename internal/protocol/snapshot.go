package protocol

import (
	"fmt"

	"pokebattle/internal/battle"
)

// CreatureSnapshot is a client-declared roster entry. It carries the full
// base stats so the server never queries the roster mid-match.
type CreatureSnapshot struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Type1      string       `json:"type1"`
	Type2      string       `json:"type2,omitempty"`
	Stats      battle.Stats `json:"stats"`
	Generation int          `json:"generation,omitempty"`
}

// Creature converts the snapshot, validating types and stats.
func (c CreatureSnapshot) Creature() (battle.Creature, error) {
	t1, ok := battle.ParseType(c.Type1)
	if !ok || t1 == "" {
		return battle.Creature{}, fmt.Errorf("%s: unknown primary type %q", c.Name, c.Type1)
	}
	t2, ok := battle.ParseType(c.Type2)
	if !ok {
		return battle.Creature{}, fmt.Errorf("%s: unknown secondary type %q", c.Name, c.Type2)
	}
	if t2 == t1 {
		t2 = ""
	}
	cr := battle.Creature{
		ID:         c.ID,
		Name:       c.Name,
		Type1:      t1,
		Type2:      t2,
		Stats:      c.Stats,
		Generation: c.Generation,
	}
	if err := cr.Validate(); err != nil {
		return battle.Creature{}, err
	}
	return cr, nil
}

// SnapshotOf is the inverse of CreatureSnapshot.Creature.
func SnapshotOf(c battle.Creature) CreatureSnapshot {
	return CreatureSnapshot{
		ID:         c.ID,
		Name:       c.Name,
		Type1:      string(c.Type1),
		Type2:      string(c.Type2),
		Stats:      c.Stats,
		Generation: c.Generation,
	}
}

// Creatures converts a whole declared team.
func Creatures(team []CreatureSnapshot) ([]battle.Creature, error) {
	if len(team) == 0 {
		return nil, fmt.Errorf("team is empty")
	}
	if len(team) > battle.MaxTeamSize {
		return nil, fmt.Errorf("team has %d members, max is %d", len(team), battle.MaxTeamSize)
	}
	out := make([]battle.Creature, 0, len(team))
	for _, s := range team {
		c, err := s.Creature()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MoveView is a move as shown to its owner.
type MoveView struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	Power       int    `json:"power"`
	Accuracy    int    `json:"accuracy"`
	Category    string `json:"category"`
}

// MemberView is one team member. Stats and moves are only filled in for
// the recipient's own team.
type MemberView struct {
	Index     int           `json:"index"`
	Name      string        `json:"name"`
	Type1     string        `json:"type1"`
	Type2     string        `json:"type2,omitempty"`
	CurrentHP int           `json:"currentHp"`
	MaxHP     int           `json:"maxHp"`
	Fainted   bool          `json:"fainted"`
	Active    bool          `json:"active"`
	Stats     *battle.Stats `json:"stats,omitempty"`
	Moves     []MoveView    `json:"moves,omitempty"`
}

// TeamView is one side of the battle.
type TeamView struct {
	Owner       string       `json:"owner"`
	ActiveIndex int          `json:"activeIndex"`
	Members     []MemberView `json:"members"`
}

// BattleSnapshot is the battle as seen by one participant.
type BattleSnapshot struct {
	GameID     string   `json:"gameId"`
	TurnNumber int      `json:"turnNumber"`
	Phase      string   `json:"phase"`
	YourTurn   bool     `json:"yourTurn"`
	MustSwitch bool     `json:"mustSwitch"`
	You        TeamView `json:"you"`
	Opponent   TeamView `json:"opponent"`
}

// NewSnapshot renders st from side's perspective. The opponent's stats
// and moves stay hidden.
func NewSnapshot(gameID string, st *battle.State, side battle.Side) BattleSnapshot {
	yourTurn := st.Turn() == side && !st.IsOver()
	return BattleSnapshot{
		GameID:     gameID,
		TurnNumber: st.TurnNumber(),
		Phase:      string(st.Phase()),
		YourTurn:   yourTurn,
		MustSwitch: yourTurn && st.MustSwitch(),
		You:        teamView(st.Team(side), true),
		Opponent:   teamView(st.Team(side.Opponent()), false),
	}
}

func teamView(t *battle.Team, own bool) TeamView {
	tv := TeamView{Owner: t.Owner, ActiveIndex: t.ActiveIndex()}
	for i, m := range t.Members() {
		mv := MemberView{
			Index:     i,
			Name:      m.Name(),
			Type1:     string(m.Creature.Type1),
			Type2:     string(m.Creature.Type2),
			CurrentHP: m.CurrentHP,
			MaxHP:     m.MaxHP,
			Fainted:   m.IsFainted(),
			Active:    i == t.ActiveIndex(),
		}
		if own {
			stats := m.Creature.Stats
			mv.Stats = &stats
			for _, mo := range m.Moves {
				mv.Moves = append(mv.Moves, MoveView{
					Name:        mo.Name,
					DisplayName: mo.DisplayName(),
					Type:        string(mo.Type),
					Power:       mo.Power,
					Accuracy:    mo.Accuracy,
					Category:    string(mo.Category),
				})
			}
		}
		tv.Members = append(tv.Members, mv)
	}
	return tv
}
