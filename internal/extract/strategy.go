// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Format names, as reported in Extraction.Format.
const (
	FormatTagged    = "tagged"
	FormatNumbered  = "numbered"
	FormatFlattened = "flattened"
	FormatNone      = "none"
)

// Format is one historical layout of notification bodies. Match sniffs the
// raw body; Tag produces the marker lines the Assembler consumes.
type Format interface {
	Name() string
	Match(body string) bool
	Tag(body string) TaggedBlock
}

var (
	markerLineRe   = regexp.MustCompile(`(?m)^[ \t]*# (?:Title|Authors?):`)
	numberedLineRe = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]*$`)
	labelTitleRe   = regexp.MustCompile(`(?mi)^[ \t]*Title:[ \t]*\S`)
	labelAuthorRe  = regexp.MustCompile(`(?mi)^[ \t]*Authors?:[ \t]*\S`)
	labelRe        = regexp.MustCompile(`(?i)^(Title|Authors?|Affiliations?|Journal|Publication|Venue):\s*(.*)$`)
)

// taggedFormat handles bodies that already carry marker lines, such as
// bodies cached by an earlier run.
type taggedFormat struct {
	tagger *Tagger
}

func (taggedFormat) Name() string { return FormatTagged }

func (taggedFormat) Match(body string) bool { return markerLineRe.MatchString(body) }

func (f taggedFormat) Tag(body string) TaggedBlock {
	text := strings.ReplaceAll(body, "\r\n", "\n")
	lines := splitLines(strings.TrimSpace(text))
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return f.tagger.finish(lines)
}

// numberedFormat handles SSRN digests: numbered titles, "Posted:" footers,
// asterisk-delimited venues, author lines with leaked affiliations.
type numberedFormat struct {
	normalizer *Normalizer
	tagger     *Tagger
}

func (numberedFormat) Name() string { return FormatNumbered }

func (numberedFormat) Match(body string) bool { return numberedLineRe.MatchString(body) }

func (f numberedFormat) Tag(body string) TaggedBlock {
	return f.tagger.Tag(f.normalizer.Normalize(body))
}

// flattenedFormat handles labelled digests where each paper is a
// "Title:" line followed by "Authors:" with a flattened comma list and
// optional "Affiliations:" and "Journal:" lines.
type flattenedFormat struct {
	normalizer *Normalizer
	tagger     *Tagger
}

func (flattenedFormat) Name() string { return FormatFlattened }

func (flattenedFormat) Match(body string) bool {
	return labelTitleRe.MatchString(body) && labelAuthorRe.MatchString(body)
}

func (f flattenedFormat) Tag(body string) TaggedBlock {
	cleaned := f.normalizer.Normalize(body)
	var out []string
	cont := false
	for _, line := range splitLines(string(cleaned)) {
		line = strings.TrimSpace(line)
		if m := labelRe.FindStringSubmatch(line); m != nil {
			out = append(out, labelMarker(m[1])+" "+strings.TrimSpace(m[2]))
			cont = true
			continue
		}
		if line == "" || isMarker(line) {
			out = append(out, line)
			cont = false
			continue
		}
		if cont {
			out[len(out)-1] += " " + line
			continue
		}
		out = append(out, line)
	}
	return f.tagger.finish(out)
}

func labelMarker(label string) string {
	switch strings.ToLower(label) {
	case "title":
		return titleMarker
	case "author", "authors":
		return authorsMarker
	case "affiliation", "affiliations":
		return affiliationMarker
	default:
		return publicationMarker
	}
}

// Extraction is the result of extracting one message body.
type Extraction struct {
	// Format is the name of the layout that matched, or FormatNone.
	Format string

	// Records holds the extracted papers in body order.
	Records []types.PaperRecord

	// Errors describes papers skipped because assembly failed.
	Errors []error
}

// Extractor selects a Format by sniffing each body and assembles records.
type Extractor struct {
	formats   []Format
	assembler Assembler
}

// New builds an Extractor with the tagged, numbered and flattened formats,
// tried in that order.
func New(cfg types.ParseConfig) *Extractor {
	cfg = cfg.WithDefaults()
	n := NewNormalizer(cfg)
	t := NewTagger(cfg)
	return &Extractor{
		formats: []Format{
			taggedFormat{tagger: t},
			numberedFormat{normalizer: n, tagger: t},
			flattenedFormat{normalizer: n, tagger: t},
		},
		assembler: NewMarkerAssembler(cfg),
	}
}

// Sniff returns the first format that matches body, or nil.
func (e *Extractor) Sniff(body string) Format {
	for _, f := range e.formats {
		if f.Match(body) {
			return f
		}
	}
	return nil
}

// Tag sniffs body and returns the format name and tagged block. A body no
// format recognizes yields FormatNone and an empty block.
func (e *Extractor) Tag(body string) (string, TaggedBlock) {
	f := e.Sniff(body)
	if f == nil {
		return FormatNone, TaggedBlock{}
	}
	return f.Name(), f.Tag(body)
}

// Extract runs the full pipeline over one body.
func (e *Extractor) Extract(body string) Extraction {
	name, block := e.Tag(body)
	if name == FormatNone {
		return Extraction{Format: FormatNone}
	}
	records, errs := e.assembler.Assemble(block)
	return Extraction{Format: name, Records: records, Errors: errs}
}
