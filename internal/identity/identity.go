// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity computes the stable fingerprint that keys a paper in the
// workflow status store. The fingerprint is persisted; any change to the
// normalization below invalidates every stored key.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// ID is a paper fingerprint: 32 lowercase hex characters.
type ID string

// String returns the fingerprint text.
func (id ID) String() string { return string(id) }

// stripMarks decomposes runes and drops the combining marks, turning "é" into "e".
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// RemoveAccents returns s with diacritics removed.
func RemoveAccents(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeTitle keeps only letters, digits, underscores and whitespace,
// trims, and lowercases. Diacritics are removed first.
func NormalizeTitle(title string) string {
	title = RemoveAccents(title)
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}

// NormalizeAuthor reduces a name to "first last" in lowercase without
// diacritics. Commas count as whitespace; middle names and initials are
// dropped. A single token passes through lowercased.
func NormalizeAuthor(name string) string {
	name = RemoveAccents(name)
	words := strings.Fields(strings.ReplaceAll(name, ",", " "))
	switch len(words) {
	case 0:
		return ""
	case 1:
		return strings.ToLower(words[0])
	default:
		return strings.ToLower(words[0] + " " + words[len(words)-1])
	}
}

// Of returns the fingerprint of a (title, first author) pair.
func Of(title, firstAuthor string) ID {
	sum := md5.Sum([]byte(NormalizeTitle(title) + NormalizeAuthor(firstAuthor)))
	return ID(hex.EncodeToString(sum[:]))
}

// OfRecord returns the fingerprint of an extracted paper.
func OfRecord(p types.PaperRecord) ID {
	return Of(p.Title, p.FirstAuthor())
}

// Key is the pre-hash dedup key of a paper, useful for in-memory grouping
// and for diagnosing unexpected collisions.
type Key struct {
	Title  string
	Author string
}

// KeyOf returns the normalized components of a paper's identity.
func KeyOf(p types.PaperRecord) Key {
	return Key{Title: NormalizeTitle(p.Title), Author: NormalizeAuthor(p.FirstAuthor())}
}
