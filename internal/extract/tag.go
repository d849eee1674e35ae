// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

const (
	titleMarker       = "# Title:"
	publicationMarker = "# Publication:"
	authorsMarker     = "# Authors:"
	authorMarker      = "# Author:"
	affiliationMarker = "# Affiliation:"
)

// TaggedBlock is a cleaned body rewritten into marker lines. Each
// "# Title:" line starts a new paper segment.
type TaggedBlock struct {
	// Text holds the marker-annotated lines.
	Text string

	// Review maps a title ordinal (0-based position among "# Title:" lines)
	// to a note describing a low-confidence author/affiliation split.
	Review map[int]string
}

// boilerplateRe matches metadata lines that end a title.
var boilerplateRe = regexp.MustCompile(`^(Posted:|Downloads|Number of pages:|Keywords:|Last Revised:)`)

// middleInitialRe matches a single capital letter followed by a period.
var middleInitialRe = regexp.MustCompile(`^[A-Z]\.$`)

// Review notes attached to low-confidence splits.
const (
	reviewUnsplitSole    = "sole author line could not be separated from its affiliation"
	reviewKeywordSplit   = "affiliation split by keyword far from the name"
	reviewLeakNoKeyword  = "text after the last author has no institution keyword"
	reviewAndInAffil     = "final \"and\" belongs to the affiliation text"
	reviewShortFinalName = "last author has fewer tokens than expected"
)

// Tagger rewrites cleaned bodies into marker lines.
type Tagger struct {
	keywords      map[string]bool
	minName       int
	maxName       int
	finalTokens   int
	initialTokens int
}

// NewTagger builds a Tagger from the split heuristics in cfg.
func NewTagger(cfg types.ParseConfig) *Tagger {
	cfg = cfg.WithDefaults()
	kw := make(map[string]bool, len(cfg.AffiliationKeywords))
	for _, k := range cfg.AffiliationKeywords {
		kw[k] = true
	}
	return &Tagger{
		keywords:      kw,
		minName:       cfg.MinNameTokens,
		maxName:       cfg.MaxNameTokens,
		finalTokens:   cfg.FinalNameTokens,
		initialTokens: cfg.FinalNameTokensWithInitial,
	}
}

// Tag runs title collapsing, author tagging, author block flattening and
// author/affiliation splitting over a cleaned block.
func (t *Tagger) Tag(block CleanedBlock) TaggedBlock {
	lines := splitLines(string(block))
	lines = collapseTitles(lines)
	lines = tagAuthorLines(lines)
	return t.finish(lines)
}

// finish flattens "# Authors:" blocks and splits affiliations out of them.
func (t *Tagger) finish(lines []string) TaggedBlock {
	lines = flattenAuthorBlocks(lines)
	lines, review := t.splitAffiliations(lines)
	return TaggedBlock{Text: strings.Join(lines, "\n"), Review: review}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func isMarker(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// collapseTitles replaces each lone "N." line and the non-blank lines after
// it with a single "# Title:" line. Collection stops at a blank line, a
// metadata line, or an existing marker.
func collapseTitles(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !numberedMarkerRe.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		i++
		var title []string
		for i < len(lines) {
			line := strings.TrimSpace(lines[i])
			if line == "" || boilerplateRe.MatchString(line) || isMarker(line) {
				break
			}
			title = append(title, line)
			i++
		}
		out = append(out, strings.TrimSpace(titleMarker+" "+strings.Join(title, " ")))
	}
	return out
}

// tagAuthorLines marks the first content line after each title (skipping
// blanks and an optional publication line) as "# Authors:".
func tagAuthorLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !strings.HasPrefix(lines[i], titleMarker) {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			out = append(out, lines[j])
			j++
		}
		if j < len(lines) && strings.HasPrefix(lines[j], publicationMarker) {
			out = append(out, lines[j])
			j++
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				out = append(out, lines[j])
				j++
			}
		}
		if j < len(lines) && !isMarker(lines[j]) {
			out = append(out, authorsMarker+" "+strings.TrimSpace(lines[j]))
			j++
		}
		i = j - 1
	}
	return out
}

// flattenAuthorBlocks joins each "# Authors:" line with the lines that
// follow it into one "# Author:" line. The block ends at the next marker or
// at the second blank line; blank lines inside the block are dropped.
func flattenAuthorBlocks(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		line := lines[i]
		if !strings.HasPrefix(line, authorsMarker) {
			out = append(out, line)
			i++
			continue
		}
		block := []string{strings.TrimSpace(strings.TrimPrefix(line, authorsMarker))}
		i++
		blankSeen := false
		for i < len(lines) {
			cur := strings.TrimSpace(lines[i])
			if strings.HasPrefix(cur, "#") {
				break
			}
			if cur == "" {
				if blankSeen {
					break
				}
				blankSeen = true
				i++
				continue
			}
			block = append(block, cur)
			i++
		}
		out = append(out, authorMarker+" "+strings.TrimSpace(strings.Join(block, " ")))
	}
	return out
}

// splitAffiliations separates institution text that leaked onto "# Author:"
// lines into a following "# Affiliation:" line.
func (t *Tagger) splitAffiliations(lines []string) ([]string, map[int]string) {
	out := make([]string, 0, len(lines))
	review := make(map[int]string)
	title := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), titleMarker) {
			title++
		}
		if !strings.HasPrefix(line, authorMarker) {
			out = append(out, line)
			continue
		}
		// An explicit affiliation line already follows.
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], affiliationMarker) {
			out = append(out, line)
			continue
		}
		content := strings.TrimSpace(strings.TrimPrefix(line, authorMarker))
		authors, affil, note := t.SplitAuthorLine(content)
		out = append(out, authorMarker+" "+authors)
		if affil != "" {
			out = append(out, affiliationMarker+" "+affil)
		}
		if note != "" && title >= 0 {
			review[title] = note
		}
	}
	if len(review) == 0 {
		review = nil
	}
	return out, review
}

// SplitAuthorLine separates the names on a flattened author line from any
// institution text that follows the last name. It returns the names, the
// affiliation text ("" when none), and a review note when the split relied
// on a weak heuristic. Lines that cannot be split confidently come back
// unchanged with an empty affiliation.
func (t *Tagger) SplitAuthorLine(content string) (authors, affiliation, note string) {
	if !strings.Contains(content, " and ") && !strings.Contains(content, ",") {
		return t.splitSoleAuthor(content)
	}

	idx, fromAffil := t.conjunction(content)
	if idx < 0 {
		authors, affiliation, note = t.splitCommaList(content)
		if fromAffil && note == "" {
			note = reviewAndInAffil
		}
		return authors, affiliation, note
	}

	before := content[:idx]
	tokens := strings.Fields(content[idx+len(" and "):])
	n := t.finalNameLength(tokens)
	if n == 0 {
		return content, "", ""
	}

	last := strings.TrimRight(strings.Join(tokens[:n], " "), ",;")
	rest := strings.TrimSpace(strings.TrimLeft(strings.Join(tokens[n:], " "), ",; "))

	switch {
	case fromAffil:
		note = reviewAndInAffil
	case n < t.finalTokens && rest != "":
		note = reviewShortFinalName
	case rest != "" && rest != NoAffiliation && !t.hasKeyword(strings.Fields(rest)):
		note = reviewLeakNoKeyword
	}
	return before + " and " + last, rest, note
}

// conjunction returns the byte offset of the " and " that introduces the
// last author. That is the final " and " unless the text before it already
// contains institution keywords, in which case the conjunction sits inside
// leaked affiliation text and an earlier one is used. When every " and "
// follows a keyword none introduces an author: the offset is -1 and the
// flag is set.
func (t *Tagger) conjunction(content string) (int, bool) {
	var offsets []int
	for from := 0; ; {
		i := strings.Index(content[from:], " and ")
		if i < 0 {
			break
		}
		offsets = append(offsets, from+i)
		from += i + 1
	}
	if len(offsets) == 0 {
		return -1, false
	}
	for k := len(offsets) - 1; k >= 0; k-- {
		if !t.hasKeyword(strings.Fields(content[:offsets[k]])) {
			return offsets[k], k != len(offsets)-1
		}
	}
	return -1, true
}

// finalNameLength returns how many tokens belong to the last author: the
// configured count, or the larger count when the second token is a middle
// initial. A token ending in a comma or semicolon closes the name early.
func (t *Tagger) finalNameLength(tokens []string) int {
	n := t.finalTokens
	if len(tokens) > 1 && isMiddleInitial(tokens[1]) {
		n = t.initialTokens
	}
	if n > len(tokens) {
		n = len(tokens)
	}
	for i := 0; i < n; i++ {
		if strings.HasSuffix(tokens[i], ",") || strings.HasSuffix(tokens[i], ";") {
			return i + 1
		}
	}
	return n
}

// splitCommaList handles a comma list without a conjunction. The first
// fragment that names an institution starts the affiliation text; without
// one the line is left as a list of names.
func (t *Tagger) splitCommaList(content string) (string, string, string) {
	frags := strings.Split(content, ",")
	for i := 1; i < len(frags); i++ {
		if t.hasKeyword(strings.Fields(frags[i])) {
			names := strings.TrimSpace(strings.Join(frags[:i], ","))
			affil := strings.TrimSpace(strings.Join(frags[i:], ","))
			return names, affil, ""
		}
	}
	return content, "", ""
}

// splitSoleAuthor handles a single-author line whose affiliation follows the
// name with no delimiter. Name prefixes of increasing length are tried; the
// first whose remainder contains an affiliation keyword wins. A prefix that
// ends on a middle initial is not a complete name and is passed over.
func (t *Tagger) splitSoleAuthor(content string) (string, string, string) {
	tokens := strings.Fields(content)
	if len(tokens) < t.minName+2 {
		return content, "", ""
	}
	for n := t.minName; n <= t.maxName && n < len(tokens); n++ {
		if isMiddleInitial(tokens[n-1]) {
			continue
		}
		rest := tokens[n:]
		if !t.hasKeyword(rest) {
			continue
		}
		note := ""
		if !t.hasKeyword(rest[:min(3, len(rest))]) {
			note = reviewKeywordSplit
		}
		return strings.Join(tokens[:n], " "), strings.Join(rest, " "), note
	}
	if len(tokens) > t.initialTokens {
		return content, "", reviewUnsplitSole
	}
	return content, "", ""
}

func (t *Tagger) hasKeyword(words []string) bool {
	for _, w := range words {
		if t.keywords[strings.Trim(w, ",;.()")] {
			return true
		}
	}
	return false
}

func isMiddleInitial(token string) bool {
	return middleInitialRe.MatchString(strings.TrimRight(token, ",;"))
}
