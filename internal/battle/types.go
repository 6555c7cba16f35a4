package battle

import "strings"

// Type is an elemental type shared by creatures and moves.
type Type string

const (
	TypeNormal   Type = "normal"
	TypeFire     Type = "fire"
	TypeWater    Type = "water"
	TypeElectric Type = "electric"
	TypeGrass    Type = "grass"
	TypeIce      Type = "ice"
	TypeFighting Type = "fighting"
	TypePoison   Type = "poison"
	TypeGround   Type = "ground"
	TypeFlying   Type = "flying"
	TypePsychic  Type = "psychic"
	TypeBug      Type = "bug"
	TypeRock     Type = "rock"
	TypeGhost    Type = "ghost"
	TypeDragon   Type = "dragon"
	TypeDark     Type = "dark"
	TypeSteel    Type = "steel"
)

// AllTypes lists the 17 types of the effectiveness chart in chart order.
var AllTypes = []Type{
	TypeNormal, TypeFire, TypeWater, TypeElectric, TypeGrass, TypeIce,
	TypeFighting, TypePoison, TypeGround, TypeFlying, TypePsychic, TypeBug,
	TypeRock, TypeGhost, TypeDragon, TypeDark, TypeSteel,
}

// ParseType normalizes s ("Fire", " fire ") to a Type. The empty string
// parses to the empty Type, which is how a missing secondary type is stored.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return "", true
	}
	_, ok := chart[t]
	return t, ok
}

// Valid reports whether t is one of the 17 chart types.
func (t Type) Valid() bool {
	_, ok := chart[t]
	return ok
}

// chart holds every attack-type × defender-type pair whose multiplier is
// not 1. Missing pairs are neutral.
var chart = map[Type]map[Type]float64{
	TypeNormal: {
		TypeRock: 0.5, TypeGhost: 0, TypeSteel: 0.5,
	},
	TypeFire: {
		TypeFire: 0.5, TypeWater: 0.5, TypeGrass: 2, TypeIce: 2,
		TypeBug: 2, TypeRock: 0.5, TypeDragon: 0.5, TypeSteel: 2,
	},
	TypeWater: {
		TypeFire: 2, TypeWater: 0.5, TypeGrass: 0.5, TypeGround: 2,
		TypeRock: 2, TypeDragon: 0.5,
	},
	TypeElectric: {
		TypeWater: 2, TypeElectric: 0.5, TypeGrass: 0.5, TypeGround: 0,
		TypeFlying: 2, TypeDragon: 0.5,
	},
	TypeGrass: {
		TypeFire: 0.5, TypeWater: 2, TypeGrass: 0.5, TypePoison: 0.5,
		TypeGround: 2, TypeFlying: 0.5, TypeBug: 0.5, TypeRock: 2,
		TypeDragon: 0.5, TypeSteel: 0.5,
	},
	TypeIce: {
		TypeFire: 0.5, TypeWater: 0.5, TypeGrass: 2, TypeIce: 0.5,
		TypeGround: 2, TypeFlying: 2, TypeDragon: 2, TypeSteel: 0.5,
	},
	TypeFighting: {
		TypeNormal: 2, TypeIce: 2, TypePoison: 0.5, TypeFlying: 0.5,
		TypePsychic: 0.5, TypeBug: 0.5, TypeRock: 2, TypeGhost: 0,
		TypeDark: 2, TypeSteel: 2,
	},
	TypePoison: {
		TypeGrass: 2, TypePoison: 0.5, TypeGround: 0.5, TypeRock: 0.5,
		TypeGhost: 0.5, TypeSteel: 0,
	},
	TypeGround: {
		TypeFire: 2, TypeElectric: 2, TypeGrass: 0.5, TypePoison: 2,
		TypeFlying: 0, TypeBug: 0.5, TypeRock: 2, TypeSteel: 2,
	},
	TypeFlying: {
		TypeElectric: 0.5, TypeGrass: 2, TypeFighting: 2, TypeBug: 2,
		TypeRock: 0.5, TypeSteel: 0.5,
	},
	TypePsychic: {
		TypeFighting: 2, TypePoison: 2, TypePsychic: 0.5, TypeDark: 0,
		TypeSteel: 0.5,
	},
	TypeBug: {
		TypeFire: 0.5, TypeGrass: 2, TypeFighting: 0.5, TypePoison: 0.5,
		TypeFlying: 0.5, TypePsychic: 2, TypeGhost: 0.5, TypeDark: 2,
		TypeSteel: 0.5,
	},
	TypeRock: {
		TypeFire: 2, TypeIce: 2, TypeFighting: 0.5, TypeGround: 0.5,
		TypeFlying: 2, TypeBug: 2, TypeSteel: 0.5,
	},
	TypeGhost: {
		TypeNormal: 0, TypePsychic: 2, TypeGhost: 2, TypeDark: 0.5,
		TypeSteel: 0.5,
	},
	TypeDragon: {
		TypeDragon: 2, TypeSteel: 0.5,
	},
	TypeDark: {
		TypeFighting: 0.5, TypePsychic: 2, TypeGhost: 2, TypeDark: 0.5,
		TypeSteel: 0.5,
	},
	TypeSteel: {
		TypeFire: 0.5, TypeWater: 0.5, TypeElectric: 0.5, TypeIce: 2,
		TypeRock: 2, TypeSteel: 0.5,
	},
}

// SingleMultiplier is the chart value for one attacking and one defending
// type. Unknown types are neutral.
func SingleMultiplier(attack, defender Type) float64 {
	row, ok := chart[attack]
	if !ok {
		return 1
	}
	if m, ok := row[defender]; ok {
		return m
	}
	return 1
}

// Effectiveness multiplies the single-type multipliers of both defending
// types, so a dual-typed defender can yield 0, 0.25, 0.5, 1, 2 or 4.
// An empty defender2 counts as neutral.
func Effectiveness(attack, defender1, defender2 Type) float64 {
	m := SingleMultiplier(attack, defender1)
	if defender2 != "" {
		m *= SingleMultiplier(attack, defender2)
	}
	return m
}
