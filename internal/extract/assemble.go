// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Assembler turns a tagged block into paper records. Errors describe papers
// that were skipped because assembling them failed; they never abort the
// block.
type Assembler interface {
	Assemble(block TaggedBlock) ([]types.PaperRecord, []error)
}

// MarkerAssembler walks marker lines with a small state machine: the
// pending title, journal, authors line and affiliations line.
type MarkerAssembler struct {
	Authors      Segmenter
	Affiliations Segmenter
}

// NewMarkerAssembler builds a MarkerAssembler using the token counts in cfg.
func NewMarkerAssembler(cfg types.ParseConfig) *MarkerAssembler {
	return &MarkerAssembler{
		Authors:      NewAuthorSegmenter(cfg),
		Affiliations: NewAffiliationSegmenter(),
	}
}

// pending is the paper segment being collected.
type pending struct {
	ordinal      int
	title        string
	journal      string
	authors      string
	hasAuthors   bool
	affiliations string
	hasAffils    bool
}

// Assemble emits one record per "# Title:" marker that has an authors line.
// Titles without authors are dropped.
func (a *MarkerAssembler) Assemble(block TaggedBlock) ([]types.PaperRecord, []error) {
	var (
		records []types.PaperRecord
		errs    []error
		cur     *pending
		ordinal int
	)

	flush := func() {
		if cur == nil {
			return
		}
		rec, ok, err := a.finalize(cur, block.Review[cur.ordinal])
		if err != nil {
			errs = append(errs, err)
			return
		}
		if ok {
			records = append(records, rec)
		}
	}

	for _, line := range strings.Split(block.Text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, titleMarker):
			flush()
			cur = &pending{ordinal: ordinal, title: markerValue(line, titleMarker)}
			ordinal++
		case cur == nil:
			continue
		case strings.HasPrefix(line, publicationMarker):
			cur.journal = markerValue(line, publicationMarker)
		case strings.HasPrefix(line, authorMarker), strings.HasPrefix(line, authorsMarker):
			cur.authors = afterColon(line)
			cur.hasAuthors = true
		case strings.HasPrefix(line, affiliationMarker), strings.HasPrefix(line, "# Affiliations:"):
			cur.affiliations = afterColon(line)
			cur.hasAffils = true
		}
	}
	flush()

	return records, errs
}

// finalize converts a pending segment into a record. ok is false when the
// segment has no title or no author names.
func (a *MarkerAssembler) finalize(p *pending, review string) (rec types.PaperRecord, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok = types.PaperRecord{}, false
			err = fmt.Errorf("assembling paper %q: %v", p.title, r)
		}
	}()

	if p.title == "" || !p.hasAuthors {
		return types.PaperRecord{}, false, nil
	}

	authors := a.Authors.Split(p.authors)
	if len(authors) == 0 {
		return types.PaperRecord{}, false, nil
	}
	var affils []string
	if p.hasAffils {
		affils = a.Affiliations.Split(p.affiliations)
	}

	return types.PaperRecord{
		Title:        p.title,
		Authors:      authors,
		Affiliations: Align(affils, len(authors)),
		Journal:      p.journal,
		Review:       review,
	}, true, nil
}

func markerValue(line, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, marker))
}

func afterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}
