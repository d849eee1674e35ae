// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func record(title string, authors ...string) types.PaperRecord {
	return types.PaperRecord{
		Title:        title,
		Authors:      authors,
		Affiliations: make([]string, len(authors)),
	}
}

func put(t *testing.T, s *Store, rec types.PaperRecord, status types.Status) identity.ID {
	t.Helper()
	id := identity.OfRecord(rec)
	require.NoError(t, s.Upsert(context.Background(), id, rec, status))
	return id
}

// --- tests ---

func TestUpsertAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := types.PaperRecord{
		Title:        "Does X Cause Y?",
		Authors:      []string{"A. Smith", "B. Jones"},
		Affiliations: []string{"Acme University", ""},
		Journal:      "Journal of Z",
		Review:       "check split",
	}
	id := put(t, s, rec, types.StatusNew)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec, got.PaperRecord)
	assert.Equal(t, string(id), got.ID)
	assert.Equal(t, types.StatusNew, got.Status)
	assert.False(t, got.Added.IsZero())

	ok, err := s.Contains(ctx, id, types.StatusNew)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Contains(ctx, id, types.StatusDeclined)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := record("Title", "Jane Doe")
	id := put(t, s, rec, types.StatusNew)
	first, err := s.Get(ctx, id)
	require.NoError(t, err)

	put(t, s, rec, types.StatusNew)
	second, err := s.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first.PaperRecord, second.PaperRecord)
	assert.Equal(t, first.Added, second.Added)
	assert.True(t, second.Updated.After(first.Updated))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPutKeepsFirstSource(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := types.StoredPaper{PaperRecord: record("T", "Jane Doe"), ID: "abc", Status: types.StatusNew, SourceID: "msg-1"}
	require.NoError(t, s.Put(ctx, p))
	p.SourceID = "msg-2"
	require.NoError(t, s.Put(ctx, p))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", got.SourceID)
}

func TestPutRejectsBadInput(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, types.StoredPaper{PaperRecord: record("T", "A"), ID: "x", Status: "maybe"}))
	assert.Error(t, s.Put(ctx, types.StoredPaper{PaperRecord: record("T", "A"), Status: types.StatusNew}))
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"abcd1111", "abcd2222", "ef012345"} {
		require.NoError(t, s.Put(ctx, types.StoredPaper{PaperRecord: record(id, "Jane Doe"), ID: id, Status: types.StatusNew}))
	}

	got, err := s.Resolve(ctx, "ef01")
	require.NoError(t, err)
	assert.Equal(t, identity.ID("ef012345"), got)

	got, err = s.Resolve(ctx, "ABCD1111")
	require.NoError(t, err)
	assert.Equal(t, identity.ID("abcd1111"), got)

	_, err = s.Resolve(ctx, "abcd")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = s.Resolve(ctx, "9999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Resolve(ctx, "ab")
	assert.Error(t, err)
}

func TestIDsAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := put(t, s, record("Alpha", "Ann Lee"), types.StatusNew)
	b := put(t, s, record("Beta", "Bo Chen"), types.StatusDeclined)
	c := put(t, s, record("Gamma", "Cy Diaz"), types.StatusOptioned)

	ids, err := s.IDs(ctx, types.ActionedStatuses...)
	require.NoError(t, err)
	assert.Equal(t, map[identity.ID]bool{b: true, c: true}, ids)

	ids, err = s.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	news, err := s.List(ctx, types.StatusNew)
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, string(a), news[0].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, []string{all[0].Title, all[1].Title, all[2].Title})

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Status]int{types.StatusNew: 1, types.StatusDeclined: 1, types.StatusOptioned: 1}, counts)
}

func TestTransition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := put(t, s, record("Title", "Jane Doe"), types.StatusNew)

	require.NoError(t, s.Transition(ctx, id, types.StatusNew, types.StatusOptioned))
	require.NoError(t, s.Transition(ctx, id, types.StatusOptioned, types.StatusSolicited))
	require.NoError(t, s.Transition(ctx, id, types.StatusSolicited, types.StatusAccepted))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, got.Status)

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, types.StatusNew, history[0].From)
	assert.Equal(t, types.StatusOptioned, history[0].To)
	assert.Equal(t, types.StatusAccepted, history[2].To)
	assert.NotEqual(t, history[0].ID, history[1].ID)
	assert.True(t, history[1].At.After(history[0].At))
}

func TestTransitionErrors(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := put(t, s, record("Title", "Jane Doe"), types.StatusNew)

	tests := []struct {
		name    string
		id      identity.ID
		from    types.Status
		to      types.Status
		wantErr error
	}{
		{"skip a step", id, types.StatusNew, types.StatusSolicited, ErrInvalidTransition},
		{"back to new", id, types.StatusNew, types.StatusNew, ErrInvalidTransition},
		{"accepted is terminal", id, types.StatusAccepted, types.StatusDeclined, ErrInvalidTransition},
		{"wrong source status", id, types.StatusOptioned, types.StatusSolicited, ErrStatusMismatch},
		{"unknown paper", "missing", types.StatusNew, types.StatusDeclined, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Transition(ctx, tt.id, tt.from, tt.to), tt.wantErr)
		})
	}

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNew, got.Status)

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcessedMessages(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ok, err := s.Processed(ctx, "uid-7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkProcessed(ctx, "uid-7", 3))
	require.NoError(t, s.MarkProcessed(ctx, "uid-7", 3))

	ok, err = s.Processed(ctx, "uid-7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	put(t, s, types.PaperRecord{
		Title:        "Does X Cause Y?",
		Authors:      []string{"A. Smith", "B. Jones"},
		Affiliations: []string{"Acme University", ""},
		Journal:      "Journal of Z",
	}, types.StatusNew)
	put(t, s, record("Declined Paper", "Jane Doe"), types.StatusDeclined)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportJSON(ctx, &buf, types.StatusNew))
		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Does X Cause Y?", got[0]["title"])
		assert.Equal(t, "Journal of Z", got[0]["journal"])
		assert.Equal(t, "new", got[0]["status"])
		assert.Contains(t, got[0], "paper_id")
	})

	t.Run("missing journal is null", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportJSON(ctx, &buf, types.StatusDeclined))
		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 1)
		require.Contains(t, got[0], "journal")
		assert.Nil(t, got[0]["journal"])

		buf.Reset()
		require.NoError(t, s.ExportYAML(ctx, &buf, types.StatusDeclined))
		var docs []map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &docs))
		require.Len(t, docs, 1)
		require.Contains(t, docs[0], "journal")
		assert.Nil(t, docs[0]["journal"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportYAML(ctx, &buf, ""))
		var got []types.StoredPaper
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, []string{"A. Smith", "B. Jones"}, got[0].Authors)
		assert.Equal(t, types.StatusDeclined, got[1].Status)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportCSV(ctx, &buf, types.StatusNew))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "paper_id,title,first_author,authors"))
		assert.Contains(t, lines[1], "A. Smith; B. Jones")
	})

	t.Run("empty json is an array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportJSON(ctx, &buf, types.StatusAccepted))
		assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
	})

	t.Run("file", func(t *testing.T) {
		path, err := s.ExportFile(ctx, FormatYAML, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(s.DataDir(), "export.yaml"), path)
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, s.Export(ctx, &bytes.Buffer{}, "xml", ""))
	})
}
