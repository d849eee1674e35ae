// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// LegacyFile pairs a per-status CSV file from the old dashboard with the
// status its rows receive.
type LegacyFile struct {
	Name   string
	Status types.Status
}

// LegacyFiles lists the old per-status files in import order. When the same
// paper appears in several files the first occurrence wins.
var LegacyFiles = []LegacyFile{
	{"declined_papers.csv", types.StatusDeclined},
	{"optioned_papers.csv", types.StatusOptioned},
	{"solicited_papers.csv", types.StatusSolicited},
	{"solicited_accepted.csv", types.StatusAccepted},
	{"solicited_declined.csv", types.StatusDeclined},
}

// MigrateSummary holds counts from a legacy import.
type MigrateSummary struct {
	Imported   int
	Duplicates int
	Skipped    int
	Failed     int
}

// ImportLegacy loads the LegacyFiles found in dir. A row's id is computed
// from title and first_author so that it matches the ids the pipeline
// produces; the legacy paper_id column is used only when those are missing.
// Rows with neither are skipped. Papers already in the store are left untouched. Progress lines
// go to w.
func (s *Store) ImportLegacy(ctx context.Context, dir string, w io.Writer) (MigrateSummary, error) {
	var summary MigrateSummary

	existing, err := s.IDs(ctx, types.Statuses...)
	if err != nil {
		return summary, err
	}

	for _, lf := range LegacyFiles {
		path := filepath.Join(dir, lf.Name)
		rows, err := readLegacyCSV(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lf.Name, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "migrating %s (%d rows) as %s\n", lf.Name, len(rows), lf.Status)
		for _, row := range rows {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}

			p, ok := legacyPaper(row, lf.Status)
			if !ok {
				summary.Skipped++
				continue
			}
			id := identity.ID(p.ID)
			if existing[id] {
				summary.Duplicates++
				continue
			}
			if err := s.Put(ctx, p); err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
				summary.Failed++
				continue
			}
			existing[id] = true
			summary.Imported++
		}
	}

	fmt.Fprintf(w, "\nimported: %d, duplicates: %d, skipped: %d, failed: %d\n",
		summary.Imported, summary.Duplicates, summary.Skipped, summary.Failed)
	return summary, nil
}

// readLegacyCSV returns the data rows of a CSV file keyed by header name.
func readLegacyCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// legacyPaper converts one legacy row. ok is false when no id can be
// determined.
func legacyPaper(row map[string]string, status types.Status) (types.StoredPaper, bool) {
	title := row["title"]
	first := row["first_author"]
	authors := splitList(row["authors"])
	if len(authors) == 0 && first != "" {
		authors = []string{first}
	}
	if first == "" && len(authors) > 0 {
		first = authors[0]
	}

	// Legacy ids hashed accented titles without folding them, so they
	// differ from identity.Of for non-ASCII titles.
	id := strings.ToLower(row["paper_id"])
	if title != "" && first != "" {
		id = identity.Of(title, first).String()
	}
	if id == "" {
		return types.StoredPaper{}, false
	}

	affils := make([]string, len(authors))
	copy(affils, splitPositional(row["affiliations"]))

	return types.StoredPaper{
		PaperRecord: types.PaperRecord{
			Title:        title,
			Authors:      authors,
			Affiliations: affils,
			Journal:      row["journal"],
		},
		ID:     id,
		Status: status,
	}, true
}

// splitPositional splits a ";" list keeping empty entries, so each entry
// stays aligned with the author at the same position.
func splitPositional(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
