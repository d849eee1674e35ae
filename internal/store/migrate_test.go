// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestImportLegacy(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	legacyID := identity.Of("Old Paper", "Jane Doe").String()

	writeFile(t, dir, "declined_papers.csv",
		"paper_id,title,first_author,authors,norm_title,norm_first_author\n"+
			legacyID+",Old Paper,Jane Doe,Jane Doe; John Roe,old paper,jane doe\n"+
			",,,,,\n")
	writeFile(t, dir, "optioned_papers.csv",
		"title,first_author,authors,journal,affiliations\n"+
			"Old Paper,Jane Doe,Jane Doe,,\n"+
			"New Idea,Ann Lee,Ann Lee; Bo Chen,Forthcoming in J,Yale University\n")
	writeFile(t, dir, "solicited_papers.csv",
		"paper_id,title,first_author,authors\n"+
			"FALLBACK-ID,,,\n")
	writeFile(t, dir, "solicited_accepted.csv",
		"paper_id,title,first_author,authors\n"+
			"stale-id,Accepted Paper,Cy Diaz,Cy Diaz\n")

	var buf bytes.Buffer
	summary, err := s.ImportLegacy(ctx, dir, &buf)
	require.NoError(t, err)
	assert.Equal(t, MigrateSummary{Imported: 4, Duplicates: 1, Skipped: 1}, summary)
	assert.Contains(t, buf.String(), "imported: 4")

	old, err := s.Get(ctx, identity.ID(legacyID))
	require.NoError(t, err)
	assert.Equal(t, types.StatusDeclined, old.Status)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, old.Authors)
	assert.Equal(t, []string{"", ""}, old.Affiliations)

	idea, err := s.Get(ctx, identity.Of("New Idea", "Ann Lee"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusOptioned, idea.Status)
	assert.Equal(t, "Forthcoming in J", idea.Journal)
	assert.Equal(t, []string{"Yale University", ""}, idea.Affiliations)

	accepted, err := s.Get(ctx, identity.Of("Accepted Paper", "Cy Diaz"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, accepted.Status)

	_, err = s.Get(ctx, "stale-id")
	assert.ErrorIs(t, err, ErrNotFound)

	fallback, err := s.Get(ctx, "fallback-id")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSolicited, fallback.Status)
}

func TestImportLegacyRecomputesAccentedIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	// The legacy id was hashed with the accents still in the title.
	writeFile(t, dir, "declined_papers.csv",
		"paper_id,title,first_author,authors\n"+
			"9aeac2a6d1c0c1b6f0a4f1e2a3b4c5d6,Café Rules,José García,José García\n")

	_, err := s.ImportLegacy(ctx, dir, &bytes.Buffer{})
	require.NoError(t, err)

	actioned, err := s.IDs(ctx, types.ActionedStatuses...)
	require.NoError(t, err)
	assert.True(t, actioned[identity.Of("Café Rules", "José García")])
	assert.True(t, actioned[identity.Of("Cafe Rules", "jose garcia")])
	assert.Len(t, actioned, 1)
}

func TestImportLegacyKeepsAffiliationPositions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, "optioned_papers.csv",
		"title,first_author,authors,affiliations\n"+
			"Two Authors,Jane Doe,Jane Doe; John Roe,; Acme University\n"+
			"Too Many,Ann Lee,Ann Lee,Yale University; Harvard University\n")

	_, err := s.ImportLegacy(ctx, dir, &bytes.Buffer{})
	require.NoError(t, err)

	two, err := s.Get(ctx, identity.Of("Two Authors", "Jane Doe"))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Acme University"}, two.Affiliations)

	many, err := s.Get(ctx, identity.Of("Too Many", "Ann Lee"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Yale University"}, many.Affiliations)
}

func TestImportLegacyKeepsExistingPapers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	id := put(t, s, record("Old Paper", "Jane Doe"), types.StatusOptioned)
	writeFile(t, dir, "declined_papers.csv", "title,first_author\nOld Paper,Jane Doe\n")

	summary, err := s.ImportLegacy(ctx, dir, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Duplicates)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOptioned, got.Status)
}

func TestImportLegacyEmptyDir(t *testing.T) {
	s := testStore(t)
	summary, err := s.ImportLegacy(context.Background(), t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, MigrateSummary{}, summary)
}
