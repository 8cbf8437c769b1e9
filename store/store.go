// Package store persists serialized component graphs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/martinemde/genbridge/serialize"
)

// ErrNotFound is returned when no graph has the requested name.
var ErrNotFound = errors.New("graph not found")

// Graph is the metadata of a stored graph.
type Graph struct {
	Name        string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store handles SQLite operations for graphs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS graphs (
    name TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_graphs_updated ON graphs(updated_at DESC);
`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores n under name, replacing any previous graph of that name.
// It returns the graph's fingerprint.
func (s *Store) Put(ctx context.Context, name string, n *serialize.Node) (string, error) {
	if name == "" {
		return "", errors.New("graph name is required")
	}
	body, err := serialize.CanonicalJSON(n)
	if err != nil {
		return "", err
	}
	fp, err := serialize.Fingerprint(n)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO graphs (name, fingerprint, body, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    fingerprint = excluded.fingerprint,
    body = excluded.body,
    updated_at = excluded.updated_at`,
		name, fp, string(body), now, now)
	if err != nil {
		return "", fmt.Errorf("put graph %s: %w", name, err)
	}
	return fp, nil
}

// Get returns the graph stored under name.
func (s *Store) Get(ctx context.Context, name string) (*serialize.Node, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM graphs WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", name, err)
	}
	return serialize.ParseJSON([]byte(body))
}

// List returns the metadata of every stored graph, most recently updated
// first.
func (s *Store) List(ctx context.Context) ([]Graph, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, fingerprint, created_at, updated_at
FROM graphs
ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer rows.Close()

	var out []Graph
	for rows.Next() {
		var g Graph
		var created, updated string
		if err := rows.Scan(&g.Name, &g.Fingerprint, &created, &updated); err != nil {
			return nil, err
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		g.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Delete removes the graph stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete graph %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
