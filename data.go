// Package pokebattle carries the data files compiled into the server: the
// move catalog and the roster seed.
package pokebattle

import (
	"bytes"
	"embed"
	"io"

	"pokebattle/internal/battle"
)

//go:embed data/moves.yaml data/roster.yaml
var DataFS embed.FS

const (
	MovesFile  = "data/moves.yaml"
	RosterFile = "data/roster.yaml"
)

// Open returns a reader over an embedded data file.
func Open(name string) (io.ReadCloser, error) {
	data, err := DataFS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Source binds Open to name for battle.LoadCatalogOrDefault.
func Source(name string) battle.Source {
	return func() (io.ReadCloser, error) { return Open(name) }
}
