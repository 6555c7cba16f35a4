package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"pokebattle/internal/battle"
)

// ErrNotFound is returned when no creature matches a lookup.
var ErrNotFound = errors.New("creature not found")

// Store is the read-only roster of creature base stats, backed by SQLite.
// It is written only by Seed at startup.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a second pooled connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS creatures (
			id         INTEGER PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE COLLATE NOCASE,
			type1      TEXT NOT NULL,
			type2      TEXT NOT NULL DEFAULT '',
			hp         INTEGER NOT NULL,
			attack     INTEGER NOT NULL,
			defense    INTEGER NOT NULL,
			sp_attack  INTEGER NOT NULL,
			sp_defense INTEGER NOT NULL,
			speed      INTEGER NOT NULL,
			generation INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_creatures_type1 ON creatures(type1);
		CREATE INDEX IF NOT EXISTS idx_creatures_generation ON creatures(generation);
	`)
	return err
}

const creatureColumns = "id, name, type1, type2, hp, attack, defense, sp_attack, sp_defense, speed, generation"

type scanner interface {
	Scan(dest ...any) error
}

func scanCreature(row scanner) (battle.Creature, error) {
	var c battle.Creature
	var t1, t2 string
	err := row.Scan(&c.ID, &c.Name, &t1, &t2,
		&c.Stats.HP, &c.Stats.Attack, &c.Stats.Defense,
		&c.Stats.SpAttack, &c.Stats.SpDefense, &c.Stats.Speed, &c.Generation)
	if err != nil {
		return battle.Creature{}, err
	}
	c.Type1, c.Type2 = battle.Type(t1), battle.Type(t2)
	return c, nil
}

// Seed upserts creatures by id in one transaction and returns how many
// rows were written.
func (s *Store) Seed(creatures []battle.Creature) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`
		INSERT INTO creatures (` + creatureColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type1 = excluded.type1, type2 = excluded.type2,
			hp = excluded.hp, attack = excluded.attack, defense = excluded.defense,
			sp_attack = excluded.sp_attack, sp_defense = excluded.sp_defense,
			speed = excluded.speed, generation = excluded.generation
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()
	for _, c := range creatures {
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("seed creature %d: %w", c.ID, err)
		}
		_, err := stmt.Exec(c.ID, c.Name, string(c.Type1), string(c.Type2),
			c.Stats.HP, c.Stats.Attack, c.Stats.Defense,
			c.Stats.SpAttack, c.Stats.SpDefense, c.Stats.Speed, c.Generation)
		if err != nil {
			return 0, fmt.Errorf("seed creature %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(creatures), nil
}

// Count returns the number of creatures in the roster.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM creatures").Scan(&n)
	return n, err
}

// Get retrieves a creature by id.
func (s *Store) Get(id int) (battle.Creature, error) {
	c, err := scanCreature(s.db.QueryRow("SELECT "+creatureColumns+" FROM creatures WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Creature{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return c, err
}

// GetByName retrieves a creature by name, case-insensitively.
func (s *Store) GetByName(name string) (battle.Creature, error) {
	c, err := scanCreature(s.db.QueryRow("SELECT "+creatureColumns+" FROM creatures WHERE name = ?", strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Creature{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, err
}

// Filter narrows Find. Zero fields do not filter.
type Filter struct {
	Type       battle.Type // matches either type slot
	Generation int
	Limit      int
}

// Find returns creatures matching f ordered by id.
func (s *Store) Find(f Filter) ([]battle.Creature, error) {
	var where []string
	var args []any
	if f.Type != "" {
		where = append(where, "(type1 = ? OR type2 = ?)")
		args = append(args, string(f.Type), string(f.Type))
	}
	if f.Generation > 0 {
		where = append(where, "generation = ?")
		args = append(args, f.Generation)
	}
	q := "SELECT " + creatureColumns + " FROM creatures"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return s.query(q, args...)
}

// RandomSample returns up to n distinct random creatures.
func (s *Store) RandomSample(n int) ([]battle.Creature, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.query("SELECT "+creatureColumns+" FROM creatures ORDER BY RANDOM() LIMIT ?", n)
}

func (s *Store) query(q string, args ...any) ([]battle.Creature, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []battle.Creature
	for rows.Next() {
		c, err := scanCreature(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Verify checks a client-declared creature against the roster entry with
// the same id.
func (s *Store) Verify(c battle.Creature) error {
	want, err := s.Get(c.ID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(want.Name, c.Name) || want.Type1 != c.Type1 || want.Type2 != c.Type2 || want.Stats != c.Stats {
		return fmt.Errorf("%s (id %d) does not match the roster entry", c.Name, c.ID)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
