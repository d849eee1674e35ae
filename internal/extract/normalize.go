// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns notification email bodies into paper records.
//
// A body passes through three stages: the Normalizer strips markup and
// boilerplate, the Tagger rewrites the cleaned text into marker lines
// (# Title:, # Publication:, # Author:, # Affiliation:), and the Assembler
// walks the markers and emits one PaperRecord per title. Author and
// affiliation lines are split into entries by a Segmenter. Every stage is a
// pure string transformation; malformed input degrades the output and is
// never reported as an error.
package extract

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// CleanedBlock is a message body with markup and boilerplate removed and
// publication venues rewritten as "# Publication:" lines.
type CleanedBlock string

// NoAffiliation replaces the repository's "affiliation not provided" placeholder.
const NoAffiliation = "No affiliation"

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)

	// pagesPostedRe matches the "Number of pages / Posted / Last Revised"
	// metadata line, which may wrap before "Posted:".
	pagesPostedRe = regexp.MustCompile(`(?m)^Number of pages:\s*\d+\s+Posted:\s*\d{1,2} [A-Z][a-z]{2} \d{4}(?:\s+Last Revised:\s*\d{1,2} [A-Z][a-z]{2} \d{4})?[ \t]*$`)

	postedRe     = regexp.MustCompile(`(?m)^Posted:[ \t]*(\S.*?)[ \t]*$`)
	postedDateRe = regexp.MustCompile(`^\d{1,2} [A-Z][a-z]{2,8}\.? \d{4}$`)
	downloadsRe  = regexp.MustCompile(`(?m)^Downloads[ \t]*\d+[ \t]*$`)

	// keywordsRe matches a "Keywords:" line and, when present, the single
	// non-blank continuation line after it.
	keywordsRe = regexp.MustCompile(`(?m)^Keywords:.*(?:\n([ \t]*\S.*))?`)

	bodyPreviewRe = regexp.MustCompile(`(?m)^Body preview:[ \t]*$`)
	versionsRe    = regexp.MustCompile(`\[image: Multiple version icon\][ \t]*There are \d+ versions of this paper\.?`)

	noAffiliationRe = regexp.MustCompile(`(?i)\*?\baffiliation\s+not\s+provided(?:\s+to\s+SSRN)?\b\*?`)

	publicationTwoLineRe = regexp.MustCompile(`(?m)^[ \t]*\*([^*\n]+)\n([^*\n]+)\*[ \t]*$\s*`)
	publicationOneLineRe = regexp.MustCompile(`(?m)^[ \t]*\*([^*\n]+)\*[ \t]*$\s*`)

	blankRunRe = regexp.MustCompile(`(\n\s*){2,}`)

	numberedMarkerRe = regexp.MustCompile(`^\s*\d+\.\s*$`)
)

// Normalizer strips markup and boilerplate from raw message bodies.
type Normalizer struct {
	topicTagRe *regexp.Regexp
}

// NewNormalizer builds a Normalizer whose topic-tag vocabulary comes from cfg.
func NewNormalizer(cfg types.ParseConfig) *Normalizer {
	n := &Normalizer{}
	var alts []string
	for _, tag := range cfg.TopicTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			alts = append(alts, regexp.QuoteMeta(tag))
		}
	}
	if len(alts) > 0 {
		n.topicTagRe = regexp.MustCompile(`(?m)^(?:` + strings.Join(alts, "|") + `)[ \t]*$`)
	}
	return n
}

// Normalize cleans one message body. The rules run in a fixed order because
// later rules rely on earlier ones: tags, metadata footers, the missing
// affiliation placeholder, publication markers, blank-line collapsing.
// Normalize is idempotent.
func (n *Normalizer) Normalize(body string) CleanedBlock {
	text := strings.ReplaceAll(body, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = htmlTagRe.ReplaceAllString(text, "")
	text = n.stripFooters(text)
	text = noAffiliationRe.ReplaceAllString(text, NoAffiliation)
	text = rewritePublications(text)
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	return CleanedBlock(strings.TrimSpace(text))
}

func (n *Normalizer) stripFooters(text string) string {
	text = pagesPostedRe.ReplaceAllString(text, "")
	text = postedRe.ReplaceAllStringFunc(text, func(line string) string {
		m := postedRe.FindStringSubmatch(line)
		if postedDateRe.MatchString(m[1]) {
			return ""
		}
		if _, err := dateparse.ParseAny(m[1]); err != nil {
			return line
		}
		return ""
	})
	text = downloadsRe.ReplaceAllString(text, "")
	if n.topicTagRe != nil {
		text = n.topicTagRe.ReplaceAllString(text, "")
	}
	text = keywordsRe.ReplaceAllStringFunc(text, func(match string) string {
		m := keywordsRe.FindStringSubmatch(match)
		// A numbered title marker is never a keyword continuation.
		if m[1] != "" && numberedMarkerRe.MatchString(m[1]) {
			return "\n" + m[1]
		}
		return ""
	})
	text = bodyPreviewRe.ReplaceAllString(text, "")
	text = versionsRe.ReplaceAllString(text, "")
	return text
}

// rewritePublications turns "*Venue*" blocks into "# Publication: Venue"
// followed by a blank line. The two-line form runs first so a venue wrapped
// across lines is not half-matched by the single-line rule.
func rewritePublications(text string) string {
	text = publicationTwoLineRe.ReplaceAllStringFunc(text, func(match string) string {
		m := publicationTwoLineRe.FindStringSubmatch(match)
		return publicationLine(strings.TrimSpace(m[1]) + " " + strings.TrimSpace(m[2]))
	})
	return publicationOneLineRe.ReplaceAllStringFunc(text, func(match string) string {
		m := publicationOneLineRe.FindStringSubmatch(match)
		return publicationLine(m[1])
	})
}

func publicationLine(venue string) string {
	venue = strings.TrimSpace(venue)
	if venue == "" {
		return "\n"
	}
	return publicationMarker + " " + venue + "\n\n"
}

var (
	downloadsTrailerRe = regexp.MustCompile(`(,)?\s*Downloads,?\s*\d+\s*$`)
	commaCountRe       = regexp.MustCompile(`,\s*\d+\s*$`)
	trailingCountRe    = regexp.MustCompile(`(?:,|\band\b)?\s*\d+\s*$`)
)

// TrimDownloadsTrailer removes download counters that leak onto the end of
// an author or affiliation entry ("Jane Doe, Downloads 12", "Yale 3").
func TrimDownloadsTrailer(s string) string {
	s = strings.TrimSpace(downloadsTrailerRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(commaCountRe.ReplaceAllString(s, ""))
	return strings.TrimSpace(trailingCountRe.ReplaceAllString(s, ""))
}
