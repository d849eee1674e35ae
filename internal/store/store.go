// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper records and their workflow status in SQLite.
// Each paper is keyed by its identity fingerprint and carries exactly one
// status; status changes go through Transition and are appended to a
// history table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

const (
	defaultDataDir = "data"
	dbFile         = "triage.db"
	timeFmt        = time.RFC3339Nano
)

var (
	// ErrNotFound is returned when no paper has the requested id.
	ErrNotFound = errors.New("paper not found")

	// ErrInvalidTransition is returned when the workflow forbids a move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusMismatch is returned when a paper is not in the expected
	// source status.
	ErrStatusMismatch = errors.New("paper is not in the expected status")

	// ErrAmbiguous is returned when an id prefix matches several papers.
	ErrAmbiguous = errors.New("id prefix matches several papers")
)

// Store manages the triage SQLite database.
type Store struct {
	db      *sql.DB
	dataDir string
	now     func() time.Time
}

// Open opens or creates the database at cfg.DataDir/triage.db and creates
// the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = defaultDataDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the directory holding the database.
func (s *Store) DataDir() string {
	return s.dataDir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			affiliations TEXT NOT NULL,
			journal TEXT,
			review TEXT,
			status TEXT NOT NULL,
			source_id TEXT,
			date_added TEXT NOT NULL,
			date_updated TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_paper_id ON transitions(paper_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			source_id TEXT PRIMARY KEY,
			papers INTEGER NOT NULL,
			processed_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Contains reports whether the paper with id is stored with status.
func (s *Store) Contains(ctx context.Context, id identity.ID, status types.Status) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM papers WHERE id = ? AND status = ?`, string(id), string(status),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking paper %s: %w", id, err)
	}
	return n > 0, nil
}

// IDs returns the ids of every paper whose status is one of statuses.
func (s *Store) IDs(ctx context.Context, statuses ...types.Status) (map[identity.ID]bool, error) {
	ids := make(map[identity.ID]bool)
	if len(statuses) == 0 {
		return ids, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM papers WHERE status IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids[identity.ID(id)] = true
	}
	return ids, rows.Err()
}

// Upsert stores rec under id with status, replacing the record fields of an
// existing row. Repeating the same call leaves the store unchanged apart
// from date_updated.
func (s *Store) Upsert(ctx context.Context, id identity.ID, rec types.PaperRecord, status types.Status) error {
	return s.Put(ctx, types.StoredPaper{PaperRecord: rec, ID: string(id), Status: status})
}

// Put stores p. An existing row keeps its date_added and first source id.
func (s *Store) Put(ctx context.Context, p types.StoredPaper) error {
	if !p.Status.Valid() {
		return fmt.Errorf("storing paper %s: unknown status %q", p.ID, p.Status)
	}
	if p.ID == "" {
		return fmt.Errorf("storing paper %q: empty id", p.Title)
	}

	authorsJSON, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return fmt.Errorf("marshaling authors: %w", err)
	}
	affilsJSON, err := json.Marshal(nonNil(p.Affiliations))
	if err != nil {
		return fmt.Errorf("marshaling affiliations: %w", err)
	}

	now := s.now().UTC()
	added := p.Added
	if added.IsZero() {
		added = now
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, authors, affiliations, journal, review, status, source_id, date_added, date_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, affiliations=excluded.affiliations,
			journal=excluded.journal, review=excluded.review, status=excluded.status,
			source_id=COALESCE(NULLIF(papers.source_id, ''), excluded.source_id),
			date_updated=excluded.date_updated`,
		p.ID, p.Title, string(authorsJSON), string(affilsJSON), p.Journal, p.Review,
		string(p.Status), p.SourceID, added.Format(timeFmt), now.Format(timeFmt),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.ID, err)
	}
	return nil
}

const paperColumns = `id, title, authors, affiliations, journal, review, status, source_id, date_added, date_updated`

// Get returns the paper with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id identity.ID) (types.StoredPaper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, string(id))
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredPaper{}, fmt.Errorf("getting paper %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.StoredPaper{}, fmt.Errorf("getting paper %s: %w", id, err)
	}
	return p, nil
}

// Resolve expands a paper id prefix of at least four characters into the
// full id.
func (s *Store) Resolve(ctx context.Context, prefix string) (identity.ID, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 || strings.ContainsAny(prefix, "%_") {
		return "", fmt.Errorf("resolving %q: id prefix must be at least 4 characters", prefix)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM papers WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("resolving %s: %w", prefix, ErrNotFound)
	case 1:
		return identity.ID(ids[0]), nil
	default:
		return "", fmt.Errorf("resolving %s: %w", prefix, ErrAmbiguous)
	}
}

// List returns the papers with status, oldest first. An empty status lists
// every paper.
func (s *Store) List(ctx context.Context, status types.Status) ([]types.StoredPaper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY date_added, title`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var papers []types.StoredPaper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// Counts returns the number of papers per status.
func (s *Store) Counts(ctx context.Context) (map[types.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM papers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.Status(st)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (types.StoredPaper, error) {
	var (
		p                     types.StoredPaper
		authors, affils       string
		journal, review, src  sql.NullString
		status, added, update string
	)
	if err := row.Scan(&p.ID, &p.Title, &authors, &affils, &journal, &review, &status, &src, &added, &update); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return p, fmt.Errorf("decoding authors: %w", err)
	}
	if err := json.Unmarshal([]byte(affils), &p.Affiliations); err != nil {
		return p, fmt.Errorf("decoding affiliations: %w", err)
	}
	p.Journal = journal.String
	p.Review = review.String
	p.SourceID = src.String
	p.Status = types.Status(status)
	p.Added, _ = time.Parse(timeFmt, added)
	p.Updated, _ = time.Parse(timeFmt, update)
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
