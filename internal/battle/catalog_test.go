package battle

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogYAML = `
thunderbolt:
  type: Electric
  power: 90
  accuracy: 100
  category: special
thunder-punch:
  type: electric
  power: 75
  accuracy: 100
  category: physical
swift:
  type: normal
  power: 60
  category: special
`

func TestLoadCatalogYAML(t *testing.T) {
	c, err := LoadCatalog(strings.NewReader(catalogYAML), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	m, ok := c.Lookup("ThunderBolt")
	require.True(t, ok)
	assert.Equal(t, TypeElectric, m.Type)
	assert.Equal(t, Special, m.Category)

	swift, ok := c.Lookup("swift")
	require.True(t, ok)
	assert.Equal(t, 100, swift.Accuracy, "missing accuracy means never misses")

	electric := c.MovesOfType(TypeElectric)
	require.Len(t, electric, 2)
	assert.Equal(t, "thunder-punch", electric[0].Name)
	assert.Equal(t, "thunderbolt", electric[1].Name)
}

func TestLoadCatalogJSON(t *testing.T) {
	doc := `{"ember": {"type": "fire", "power": 40, "accuracy": 100, "category": "special"}}`
	c, err := LoadCatalog(strings.NewReader(doc), zap.NewNop())
	require.NoError(t, err)
	_, ok := c.Lookup("ember")
	assert.True(t, ok)
}

func TestLoadCatalogSkipsUnusableRecords(t *testing.T) {
	doc := `
hydro-cannon: {type: water, power: 150, accuracy: 90, category: special}
thunderbolt: {type: electric, power: 90, accuracy: 100, category: special}
growl: {type: normal, power: 0, accuracy: 100, category: status}
swords-dance: {type: normal, category: status}
moonblast: {type: fairy, power: 95, accuracy: 100, category: special}
`
	c, err := LoadCatalog(strings.NewReader(doc), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	_, ok := c.Lookup("hydro-cannon")
	assert.True(t, ok)
	_, ok = c.Lookup("growl")
	assert.False(t, ok)

	src := func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(doc)), nil }
	c = LoadCatalogOrDefault(src, zap.NewNop())
	assert.Equal(t, 2, c.Len(), "usable records replace the built-in set")
	_, ok = c.Lookup("surf")
	assert.False(t, ok)
}

func TestLoadCatalogRejectsBadRecords(t *testing.T) {
	docs := map[string]string{
		"unknown type":     "x: {type: cosmic, power: 10, accuracy: 100, category: special}",
		"unknown category": "x: {type: fire, power: 10, accuracy: 100, category: status}",
		"zero power":       "x: {type: fire, power: 0, accuracy: 100, category: special}",
		"empty":            "{}",
		"not a map":        "[1, 2, 3]",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(doc), zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(FillerMove))
	assert.Error(t, c.Register(Move{Name: "TACKLE", Type: TypeNormal, Power: 35, Accuracy: 95, Category: Physical}))
}

func TestLoadCatalogOrDefaultFallsBack(t *testing.T) {
	missing := func() (io.ReadCloser, error) { return nil, errors.New("no such file") }
	c := LoadCatalogOrDefault(missing, zap.NewNop())
	assert.Equal(t, len(fallbackMoves), c.Len())

	garbage := func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("::::")), nil }
	c = LoadCatalogOrDefault(garbage, zap.NewNop())
	assert.Equal(t, len(fallbackMoves), c.Len())

	good := func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(catalogYAML)), nil }
	c = LoadCatalogOrDefault(good, zap.NewNop())
	assert.Equal(t, 3, c.Len())
}

func TestDefaultCatalogCoversEveryType(t *testing.T) {
	c := DefaultCatalog()
	for _, typ := range AllTypes {
		assert.NotEmpty(t, c.MovesOfType(typ), "no fallback move for %s", typ)
	}
}

func TestMoveDisplayName(t *testing.T) {
	assert.Equal(t, "Thunder Punch", Move{Name: "thunder-punch"}.DisplayName())
	assert.Equal(t, "Surf", Move{Name: "surf"}.DisplayName())
}
