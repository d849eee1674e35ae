// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sort"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// AuthorMatcher reports whether an author is on the editors' solicitable
// list.
type AuthorMatcher interface {
	Contains(name string) bool
}

// Display tiers, lowest first.
const (
	TierSolicitable = iota
	TierForthcoming
	TierOther
)

// Solicitable reports whether any author of rec is matched by m.
func Solicitable(rec types.PaperRecord, m AuthorMatcher) bool {
	if m == nil {
		return false
	}
	for _, a := range rec.Authors {
		if m.Contains(a) {
			return true
		}
	}
	return false
}

// Tier places rec in a display tier: papers with a solicitable author,
// then papers whose journal line says "forthcoming", then the rest.
func Tier(rec types.PaperRecord, m AuthorMatcher) int {
	switch {
	case Solicitable(rec, m):
		return TierSolicitable
	case strings.Contains(strings.ToLower(rec.Journal), "forthcoming"):
		return TierForthcoming
	default:
		return TierOther
	}
}

// Sort orders items by tier and then by title. record extracts the paper
// record from an item.
func Sort[T any](items []T, record func(T) types.PaperRecord, m AuthorMatcher) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := record(items[i]), record(items[j])
		ti, tj := Tier(ri, m), Tier(rj, m)
		if ti != tj {
			return ti < tj
		}
		return ri.Title < rj.Title
	})
}
