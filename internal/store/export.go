// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// csvHeader matches the columns of the legacy master CSV, plus review.
var csvHeader = []string{
	"paper_id", "title", "first_author", "authors", "journal", "affiliations",
	"status", "date_added", "date_updated", "review",
}

// ExportYAML writes the papers with status (all when empty) as a YAML list.
// A paper without a journal is written with "journal: null".
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, status types.Status) error {
	papers, err := s.exportPapers(ctx, status)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(outputs(papers)); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the papers with status (all when empty) as a JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, status types.Status) error {
	papers, err := s.exportPapers(ctx, status)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outputs(papers)); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// ExportCSV writes the papers with status (all when empty) in the master
// CSV layout. Lists are joined with "; ".
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, status types.Status) error {
	papers, err := s.exportPapers(ctx, status)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range papers {
		if err := cw.Write([]string{
			p.ID,
			p.Title,
			p.FirstAuthor(),
			strings.Join(p.Authors, "; "),
			p.Journal,
			strings.Join(p.Affiliations, "; "),
			string(p.Status),
			p.Added.Format(timeFmt),
			p.Updated.Format(timeFmt),
			p.Review,
		}); err != nil {
			return fmt.Errorf("writing CSV row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile writes an export in format to dataDir/export.<format> and
// returns its path.
func (s *Store) ExportFile(ctx context.Context, format string, status types.Status) (string, error) {
	path := filepath.Join(s.dataDir, "export."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := s.Export(ctx, f, format, status); err != nil {
		return "", err
	}
	return path, f.Close()
}

// Export writes papers to w in the named format.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, status types.Status) error {
	switch format {
	case FormatYAML:
		return s.ExportYAML(ctx, w, status)
	case FormatJSON:
		return s.ExportJSON(ctx, w, status)
	case FormatCSV:
		return s.ExportCSV(ctx, w, status)
	default:
		return fmt.Errorf("unknown export format %q: use yaml, json or csv", format)
	}
}

func (s *Store) exportPapers(ctx context.Context, status types.Status) ([]types.StoredPaper, error) {
	papers, err := s.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if papers == nil {
		papers = []types.StoredPaper{}
	}
	return papers, nil
}

func outputs(papers []types.StoredPaper) []types.OutputPaper {
	out := make([]types.OutputPaper, 0, len(papers))
	for _, p := range papers {
		out = append(out, p.Output())
	}
	return out
}
