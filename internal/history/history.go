// Package history keeps a local SQLite log of scoring runs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

const (
	// DefaultLimit is used by List when limit <= 0.
	DefaultLimit = 20

	insertRunSQL = `INSERT INTO run (
			id, source, content_hash, num_rows, num_cols, score, label, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectRunSQL = `SELECT id, source, content_hash, num_rows, num_cols, score, label, created_at FROM run`
)

var (
	//go:embed sql/*
	f embed.FS

	// ErrNotFound is returned by Get for an unknown run id.
	ErrNotFound = errors.New("run not found")
)

// Run is one recorded scoring.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	Source      string    `json:"source" yaml:"source"`
	ContentHash string    `json:"content_hash" yaml:"content_hash"`
	Rows        int       `json:"rows" yaml:"rows"`
	Cols        int       `json:"cols" yaml:"cols"`
	Score       float64   `json:"score" yaml:"score"`
	Label       string    `json:"label" yaml:"label"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewRun describes scoring ds from source with result rep.
func NewRun(source string, ds *dataset.Dataset, rep *quality.Report) Run {
	return Run{
		Source:      source,
		ContentHash: ds.Hash(),
		Rows:        ds.NumRows(),
		Cols:        ds.NumCols(),
		Score:       rep.Total,
		Label:       rep.Label(),
	}
}

// Store is a run log backed by one SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path not specified")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// createdLayout is fixed-width so created_at sorts chronologically as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record stores r, assigning an id and timestamp when unset, and returns the
// stored run.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	_, err := s.db.ExecContext(ctx, insertRunSQL,
		r.ID, r.Source, r.ContentHash, r.Rows, r.Cols, r.Score, r.Label,
		r.CreatedAt.Format(createdLayout))
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx, selectRunSQL+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// ForContent returns runs whose dataset hashed to hash, newest first.
func (s *Store) ForContent(ctx context.Context, hash string) ([]Run, error) {
	return s.query(ctx, selectRunSQL+` WHERE content_hash = ? ORDER BY created_at DESC, rowid DESC`, hash)
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	runs, err := s.query(ctx, selectRunSQL+` WHERE id = ?`, id)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return runs[0], nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Source, &r.ContentHash, &r.Rows, &r.Cols, &r.Score, &r.Label, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", created, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
