package tablestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/kristinelam/gotransit"
)

// Store persists interpolation tables in a single SQLite table, one row per
// table layout, with the grids as a JSON blob.
type Store struct {
	db   *sql.DB
	path string
}

// Entry describes a stored table without its grids.
type Entry struct {
	Key       gotransit.TableKey
	CreatedAt time.Time
	Bytes     int
}

type payload struct {
	KT []float64 `json:"kt"`
	ZT []float64 `json:"zt"`
	LE []float64 `json:"le"`
	LD []float64 `json:"ld"`
	ED []float64 `json:"ed"`
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "gotransit.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tables (
		key TEXT PRIMARY KEY,
		kmin REAL NOT NULL,
		kmax REAL NOT NULL,
		nk INTEGER NOT NULL,
		nz INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the table stored under key. A miss wraps
// gotransit.ErrTableNotFound.
func (s *Store) Load(ctx context.Context, key gotransit.TableKey) (*gotransit.Table, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tables WHERE key = ?`, key.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", gotransit.ErrTableNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("select table: %w", err)
	}
	var p payload
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", key, err)
	}
	return gotransit.NewTable(key, p.KT, p.ZT, p.LE, p.LD, p.ED)
}

// Save stores t, replacing any table with the same layout.
func (s *Store) Save(ctx context.Context, t *gotransit.Table) error {
	blob, err := json.Marshal(payload{KT: t.KT, ZT: t.ZT, LE: t.LE, LD: t.LD, ED: t.ED})
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	key := t.Key()
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO tables (key, kmin, kmax, nk, nz, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.String(), key.KMin, key.KMax, key.NK, key.NZ, time.Now().UTC().Format(time.RFC3339), blob)
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	return nil
}

// List returns the stored tables ordered by key.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kmin, kmax, nk, nz, created_at, length(payload) FROM tables ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("select tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.Key.KMin, &e.Key.KMax, &e.Key.NK, &e.Key.NZ, &created, &e.Bytes); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the table stored under key.
func (s *Store) Delete(ctx context.Context, key gotransit.TableKey) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tables WHERE key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", gotransit.ErrTableNotFound, key)
	}
	return nil
}
