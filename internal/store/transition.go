// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// Transition is one recorded status change.
type Transition struct {
	ID      string       `json:"id" yaml:"id"`
	PaperID string       `json:"paper_id" yaml:"paper_id"`
	From    types.Status `json:"from" yaml:"from"`
	To      types.Status `json:"to" yaml:"to"`
	At      time.Time    `json:"at" yaml:"at"`
}

// Transition moves the paper with id from one status to another and records
// the change. It fails with ErrNotFound, ErrStatusMismatch when the paper is
// not currently in from, or ErrInvalidTransition when the workflow has no
// edge from -> to.
func (s *Store) Transition(ctx context.Context, id identity.ID, from, to types.Status) error {
	if !types.CanTransition(from, to) {
		return fmt.Errorf("moving %s from %s to %s: %w", id, from, to, ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM papers WHERE id = ?`, string(id)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("moving %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading status of %s: %w", id, err)
	}
	if types.Status(current) != from {
		return fmt.Errorf("moving %s from %s (currently %s): %w", id, from, current, ErrStatusMismatch)
	}

	now := s.now().UTC().Format(timeFmt)
	if _, err := tx.ExecContext(ctx,
		`UPDATE papers SET status = ?, date_updated = ? WHERE id = ?`, string(to), now, string(id),
	); err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transitions (id, paper_id, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), string(id), string(from), string(to), now,
	); err != nil {
		return fmt.Errorf("recording transition of %s: %w", id, err)
	}

	return tx.Commit()
}

// History returns the recorded transitions of a paper, oldest first.
func (s *Store) History(ctx context.Context, id identity.ID) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paper_id, from_status, to_status, at FROM transitions
		 WHERE paper_id = ? ORDER BY at, rowid`, string(id))
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", id, err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t        Transition
			from, to string
			at       string
		)
		if err := rows.Scan(&t.ID, &t.PaperID, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		t.From = types.Status(from)
		t.To = types.Status(to)
		t.At, _ = time.Parse(timeFmt, at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkProcessed records that the message with sourceID has been run
// through the pipeline and yielded the given number of papers.
func (s *Store) MarkProcessed(ctx context.Context, sourceID string, papers int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (source_id, papers, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET papers=excluded.papers, processed_at=excluded.processed_at`,
		sourceID, papers, s.now().UTC().Format(timeFmt),
	)
	if err != nil {
		return fmt.Errorf("marking message %s processed: %w", sourceID, err)
	}
	return nil
}

// Processed reports whether the message with sourceID was already handled.
func (s *Store) Processed(ctx context.Context, sourceID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE source_id = ?`, sourceID,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking message %s: %w", sourceID, err)
	}
	return n > 0, nil
}
