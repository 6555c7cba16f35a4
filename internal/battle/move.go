package battle

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category selects which attack/defense stats a move uses.
type Category string

const (
	Physical Category = "physical"
	Special  Category = "special"
)

// ParseCategory normalizes s to a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Physical:
		return Physical, true
	case Special:
		return Special, true
	}
	return "", false
}

// Move is an immutable catalog entry.
type Move struct {
	Name     string   `json:"name" yaml:"name"`
	Type     Type     `json:"type" yaml:"type"`
	Power    int      `json:"power" yaml:"power"`
	Accuracy int      `json:"accuracy" yaml:"accuracy"` // 0-100
	Category Category `json:"category" yaml:"category"`
}

// FillerMove pads a moveset when the catalog has nothing better.
var FillerMove = Move{Name: "tackle", Type: TypeNormal, Power: 40, Accuracy: 100, Category: Physical}

// DisplayName renders catalog keys such as "thunder-punch" as "Thunder Punch".
func (m Move) DisplayName() string {
	return displayName(m.Name)
}

func (m Move) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("move has no name")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("move %s: unknown type %q", m.Name, m.Type)
	}
	if m.Power <= 0 {
		return fmt.Errorf("move %s: power must be positive, got %d", m.Name, m.Power)
	}
	if m.Accuracy < 1 || m.Accuracy > 100 {
		return fmt.Errorf("move %s: accuracy %d out of range", m.Name, m.Accuracy)
	}
	if m.Category != Physical && m.Category != Special {
		return fmt.Errorf("move %s: unknown category %q", m.Name, m.Category)
	}
	return nil
}

// cases.Caser is stateful, so a fresh one is built per call.
func displayName(key string) string {
	words := strings.ReplaceAll(strings.TrimSpace(key), "-", " ")
	return cases.Title(language.English).String(words)
}
