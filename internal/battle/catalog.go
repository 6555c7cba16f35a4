package battle

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog holds every known move, keyed by lowercased name.
// It is filled once at startup and only read afterwards.
type Catalog struct {
	mu     sync.RWMutex
	moves  map[string]Move
	byType map[Type][]Move
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		moves:  make(map[string]Move),
		byType: make(map[Type][]Move),
	}
}

// Register adds a move. Duplicate names and invalid moves are rejected.
func (c *Catalog) Register(m Move) error {
	if err := m.validate(); err != nil {
		return err
	}
	key := strings.ToLower(m.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.moves[key]; exists {
		return fmt.Errorf("move %q already registered", m.Name)
	}
	c.moves[key] = m
	list := append(c.byType[m.Type], m)
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	c.byType[m.Type] = list
	return nil
}

// Lookup returns a move by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Move, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.moves[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// MovesOfType returns the moves of type t sorted by name.
func (c *Catalog) MovesOfType(t Type) []Move {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.byType[t]
	out := make([]Move, len(list))
	copy(out, list)
	return out
}

// All returns every move sorted by name.
func (c *Catalog) All() []Move {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Move, 0, len(c.moves))
	for _, m := range c.moves {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered moves.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.moves)
}

type moveRecord struct {
	Type     string `yaml:"type"`
	Power    int    `yaml:"power"`
	Accuracy int    `yaml:"accuracy"`
	Category string `yaml:"category"`
}

// LoadCatalog decodes a name → {type, power, accuracy, category} document.
// JSON documents are accepted too. A missing accuracy means the move never
// misses. Records that cannot deal damage, such as status moves or moves of
// an unknown type, are skipped and logged at Debug. Only a decode failure or
// a document with no usable move is an error.
func LoadCatalog(r io.Reader, log *zap.Logger) (*Catalog, error) {
	var records map[string]moveRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode move catalog: %w", err)
	}
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	c := NewCatalog()
	skipped := 0
	for _, name := range names {
		m, err := records[name].move(name)
		if err == nil {
			err = c.Register(m)
		}
		if err != nil {
			log.Debug("skipping move", zap.String("move", name), zap.Error(err))
			skipped++
		}
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("move catalog has no usable moves (%d skipped)", skipped)
	}
	return c, nil
}

func (rec moveRecord) move(name string) (Move, error) {
	t, ok := ParseType(rec.Type)
	if !ok || t == "" {
		return Move{}, fmt.Errorf("unknown type %q", rec.Type)
	}
	cat, ok := ParseCategory(rec.Category)
	if !ok {
		return Move{}, fmt.Errorf("not a damaging category %q", rec.Category)
	}
	acc := rec.Accuracy
	if acc == 0 {
		acc = 100
	}
	return Move{Name: strings.ToLower(name), Type: t, Power: rec.Power, Accuracy: acc, Category: cat}, nil
}

// Source opens the raw catalog document.
type Source func() (io.ReadCloser, error)

// FileSource reads the catalog from a file on disk.
func FileSource(path string) Source {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// LoadCatalogOrDefault loads from src and falls back to DefaultCatalog on
// any failure. The failure is logged, never returned.
func LoadCatalogOrDefault(src Source, log *zap.Logger) *Catalog {
	rc, err := src()
	if err != nil {
		log.Warn("move catalog unavailable, using built-in moves", zap.Error(err))
		return DefaultCatalog()
	}
	defer rc.Close()
	c, err := LoadCatalog(rc, log)
	if err != nil {
		log.Warn("move catalog unreadable, using built-in moves", zap.Error(err))
		return DefaultCatalog()
	}
	log.Info("move catalog loaded", zap.Int("moves", c.Len()))
	return c
}

var fallbackMoves = []Move{
	FillerMove,
	{Name: "body-slam", Type: TypeNormal, Power: 85, Accuracy: 100, Category: Physical},
	{Name: "ember", Type: TypeFire, Power: 40, Accuracy: 100, Category: Special},
	{Name: "flamethrower", Type: TypeFire, Power: 90, Accuracy: 100, Category: Special},
	{Name: "water-gun", Type: TypeWater, Power: 40, Accuracy: 100, Category: Special},
	{Name: "surf", Type: TypeWater, Power: 90, Accuracy: 100, Category: Special},
	{Name: "thunder-shock", Type: TypeElectric, Power: 40, Accuracy: 100, Category: Special},
	{Name: "thunderbolt", Type: TypeElectric, Power: 90, Accuracy: 100, Category: Special},
	{Name: "vine-whip", Type: TypeGrass, Power: 45, Accuracy: 100, Category: Physical},
	{Name: "razor-leaf", Type: TypeGrass, Power: 55, Accuracy: 95, Category: Physical},
	{Name: "ice-beam", Type: TypeIce, Power: 90, Accuracy: 100, Category: Special},
	{Name: "karate-chop", Type: TypeFighting, Power: 50, Accuracy: 100, Category: Physical},
	{Name: "sludge", Type: TypePoison, Power: 65, Accuracy: 100, Category: Special},
	{Name: "earthquake", Type: TypeGround, Power: 100, Accuracy: 100, Category: Physical},
	{Name: "wing-attack", Type: TypeFlying, Power: 60, Accuracy: 100, Category: Physical},
	{Name: "confusion", Type: TypePsychic, Power: 50, Accuracy: 100, Category: Special},
	{Name: "bug-bite", Type: TypeBug, Power: 60, Accuracy: 100, Category: Physical},
	{Name: "rock-throw", Type: TypeRock, Power: 50, Accuracy: 90, Category: Physical},
	{Name: "shadow-ball", Type: TypeGhost, Power: 80, Accuracy: 100, Category: Special},
	{Name: "dragon-claw", Type: TypeDragon, Power: 80, Accuracy: 100, Category: Physical},
	{Name: "bite", Type: TypeDark, Power: 60, Accuracy: 100, Category: Physical},
	{Name: "metal-claw", Type: TypeSteel, Power: 50, Accuracy: 95, Category: Physical},
}

// DefaultCatalog returns the built-in set: at least one move per type.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, m := range fallbackMoves {
		if err := c.Register(m); err != nil {
			panic(err)
		}
	}
	return c
}
