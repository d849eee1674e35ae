// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package solicit holds the editors' list of authors they want to solicit.
// Names are compared by their normalized first/last key: "José M. García"
// on the list matches an extracted "Jose Garcia".
package solicit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/paper-triage/internal/identity"
)

// Set is a set of normalized author keys.
type Set struct {
	keys map[string]bool
}

// NewSet builds a Set from full names.
func NewSet(names ...string) *Set {
	s := &Set{keys: make(map[string]bool, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a full name. Names that normalize to nothing are ignored.
func (s *Set) Add(name string) {
	if key := identity.NormalizeAuthor(name); key != "" {
		s.keys[key] = true
	}
}

// Contains reports whether name matches an author in the set.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	key := identity.NormalizeAuthor(name)
	return key != "" && s.keys[key]
}

// Len returns the number of distinct keys.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Read loads a Set from CSV. The first row is a header; the first column of
// every following row is a full name.
func Read(r io.Reader) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	s := NewSet()
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing solicitable authors: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) > 0 {
			s.Add(strings.TrimSpace(rec[0]))
		}
	}
	return s, nil
}

// Load reads a Set from a CSV file. An empty path or a missing file yields
// an empty Set.
func Load(path string) (*Set, error) {
	if path == "" {
		return NewSet(), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening solicitable authors: %w", err)
	}
	defer f.Close()
	return Read(f)
}
