// Package store keeps a library of named grids and a cache of compiled
// programs in a SQLite database.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// ErrProgramNotFound indicates the requested program doesn't exist.
var ErrProgramNotFound = errors.New("program not found")

var log = commonlog.GetLogger("codel.store")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL UNIQUE,
		width   INTEGER NOT NULL,
		height  INTEGER NOT NULL,
		grid    TEXT NOT NULL,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compiled (
		digest TEXT PRIMARY KEY,
		data   BLOB NOT NULL
	)`,
}

// Store is a SQLite-backed program library.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// ProgramInfo describes a stored program without its grid.
type ProgramInfo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	log.Debugf("opened %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// ---------------------------------------------------------------------------
// Program library
// ---------------------------------------------------------------------------

// SaveProgram stores g under name, replacing any grid already saved under
// that name. The program keeps its ID across saves.
func (s *Store) SaveProgram(name string, g *grid.Grid) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("saving program: empty name")
	}
	if g == nil {
		return "", fmt.Errorf("saving program %q: %w", name, grid.ErrEmptyGrid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	id := uuid.NewString()
	err := s.db.QueryRow(`INSERT INTO programs (id, name, width, height, grid, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			grid = excluded.grid,
			updated = excluded.updated
		RETURNING id`,
		id, name, g.Width, g.Height, g.Format(), now, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("saving program %q: %w", name, err)
	}
	return id, nil
}

// LoadProgram returns the grid saved under name.
func (s *Store) LoadProgram(name string) (*grid.Grid, error) {
	var text string
	err := s.db.QueryRow("SELECT grid FROM programs WHERE name = ?", name).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	g, err := grid.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("decoding program %q: %w", name, err)
	}
	return g, nil
}

// ListPrograms returns every stored program ordered by name.
func (s *Store) ListPrograms() ([]ProgramInfo, error) {
	rows, err := s.db.Query(`SELECT id, name, width, height, created, updated
		FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramInfo
	for rows.Next() {
		var info ProgramInfo
		var created, updated int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Width, &info.Height, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		info.Created = time.UnixMilli(created)
		info.Updated = time.UnixMilli(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteProgram removes the program saved under name.
func (s *Store) DeleteProgram(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM programs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Compiled program cache
// ---------------------------------------------------------------------------

// CachedProgram returns the compiled program with the given digest. The
// boolean is false on a cache miss.
func (s *Store) CachedProgram(digest [32]byte) (*compiler.Program, bool, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM compiled WHERE digest = ?",
		hex.EncodeToString(digest[:])).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying compiled program: %w", err)
	}
	prog, err := compiler.UnmarshalProgram(data)
	if err != nil {
		log.Warningf("dropping unreadable cache entry %x: %v", digest[:4], err)
		return nil, false, nil
	}
	return prog, true, nil
}

// CacheProgram stores prog under its digest.
func (s *Store) CacheProgram(prog *compiler.Program) error {
	data, err := compiler.MarshalProgram(prog)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec("INSERT OR REPLACE INTO compiled (digest, data) VALUES (?, ?)",
		prog.DigestString(), data)
	if err != nil {
		return fmt.Errorf("caching program: %w", err)
	}
	return nil
}

// Compile returns the program for g compiled with opts, from the cache when
// it is there and compiling and caching it otherwise.
func (s *Store) Compile(g *grid.Grid, opts compiler.Options) (*compiler.Program, error) {
	digest := compiler.Digest(g, opts)
	if prog, ok, err := s.CachedProgram(digest); err != nil {
		return nil, err
	} else if ok {
		log.Debugf("cache hit %x", digest[:4])
		return prog, nil
	}

	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(ectx, opts)
	if err != nil {
		return nil, err
	}
	if err := s.CacheProgram(prog); err != nil {
		return nil, err
	}
	return prog, nil
}
