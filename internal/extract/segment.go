// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// trailingRefRe matches a parenthesized number at the end of a line, e.g. "(3)".
var trailingRefRe = regexp.MustCompile(`\s*\(\d+\)\s*$`)

// Segmenter splits a "comma list + final and" line into entries.
type Segmenter struct {
	// FinalTokens is the token count kept for the entry after the final "and".
	FinalTokens int

	// FinalTokensWithInitial replaces FinalTokens when the second token of
	// that entry is a middle initial.
	FinalTokensWithInitial int

	// BoundFinal enables the token bound. Author lines are bounded; the
	// final entry of an affiliation list is kept whole.
	BoundFinal bool
}

// NewAuthorSegmenter returns a Segmenter for author lines.
func NewAuthorSegmenter(cfg types.ParseConfig) Segmenter {
	cfg = cfg.WithDefaults()
	return Segmenter{
		FinalTokens:            cfg.FinalNameTokens,
		FinalTokensWithInitial: cfg.FinalNameTokensWithInitial,
		BoundFinal:             true,
	}
}

// NewAffiliationSegmenter returns a Segmenter for affiliation lines.
func NewAffiliationSegmenter() Segmenter {
	return Segmenter{}
}

// Split returns the entries of line in order. "A, B, and C" yields
// [A B C]; a line with neither a comma nor " and " is a single entry.
// A trailing "(N)" reference is removed first.
func (s Segmenter) Split(line string) []string {
	line = trailingRefRe.ReplaceAllString(strings.TrimSpace(line), "")
	if line == "" {
		return nil
	}

	frags := strings.Split(line, ",")
	var out []string
	for _, f := range frags[:len(frags)-1] {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}

	last := " " + strings.TrimSpace(frags[len(frags)-1])
	i := strings.LastIndex(last, " and ")
	if i < 0 {
		if last = strings.TrimSpace(last); last != "" {
			out = append(out, last)
		}
		return out
	}

	if before := strings.TrimSpace(last[:i]); before != "" {
		out = append(out, before)
	}
	if after := s.bound(strings.TrimSpace(last[i+len(" and "):])); after != "" {
		out = append(out, after)
	}
	return out
}

// bound trims the entry after the final "and" to its name tokens. Anything
// beyond is affiliation leakage and is dropped from this field.
func (s Segmenter) bound(entry string) string {
	if !s.BoundFinal {
		return entry
	}
	tokens := strings.Fields(entry)
	n := s.FinalTokens
	if len(tokens) > 1 && isMiddleInitial(tokens[1]) {
		n = s.FinalTokensWithInitial
	}
	if n <= 0 || n > len(tokens) {
		n = len(tokens)
	}
	return strings.Join(tokens[:n], " ")
}

// Align pads affiliations with empty strings, or truncates it from the end,
// so that it has exactly n entries.
func Align(affiliations []string, n int) []string {
	out := make([]string, n)
	copy(out, affiliations)
	return out
}
