// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-triage/internal/extract"
	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// --- test doubles ---

type memStore struct {
	papers    map[identity.ID]types.StoredPaper
	processed map[string]int
	puts      int
}

func newMemStore() *memStore {
	return &memStore{
		papers:    make(map[identity.ID]types.StoredPaper),
		processed: make(map[string]int),
	}
}

func (m *memStore) IDs(_ context.Context, statuses ...types.Status) (map[identity.ID]bool, error) {
	ids := make(map[identity.ID]bool)
	for id, p := range m.papers {
		for _, st := range statuses {
			if p.Status == st {
				ids[id] = true
			}
		}
	}
	return ids, nil
}

func (m *memStore) Put(_ context.Context, p types.StoredPaper) error {
	m.papers[identity.ID(p.ID)] = p
	m.puts++
	return nil
}

func (m *memStore) MarkProcessed(_ context.Context, sourceID string, papers int) error {
	m.processed[sourceID] = papers
	return nil
}

func (m *memStore) Processed(_ context.Context, sourceID string) (bool, error) {
	_, ok := m.processed[sourceID]
	return ok, nil
}

type staticSource struct {
	msgs []types.RawMessage
	err  error
}

func (s staticSource) Fetch(context.Context) ([]types.RawMessage, error) {
	return s.msgs, s.err
}

type panicky struct {
	next Extractor
}

func (p panicky) Extract(body string) extract.Extraction {
	if strings.Contains(body, "BOOM") {
		panic("bad message")
	}
	return p.next.Extract(body)
}

func quiet() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func digest(papers ...string) string {
	var b strings.Builder
	for i, p := range papers {
		fmt.Fprintf(&b, "%d.\n%s\nPosted: 3 Jan 2024\nJane Doe and John Roe, Acme University\n\n", i+1, p)
	}
	return b.String()
}

func titles(papers []Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Title
	}
	return out
}

// --- tests ---

func TestProcess(t *testing.T) {
	st := newMemStore()
	ex := extract.New(types.DefaultParseConfig())
	msgs := []types.RawMessage{
		{SourceID: "m1", Body: digest("Alpha", "Beta")},
		{SourceID: "m2", Body: digest("Beta", "Gamma")},
		{SourceID: "m3", Body: "Dear editor, nothing here."},
	}

	var buf bytes.Buffer
	res, err := Process(context.Background(), msgs, ex, st, quiet(), &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles(res.Papers))
	assert.Equal(t, Summary{Messages: 3, Extracted: 4, Duplicates: 1, Surfaced: 3}, res.Summary)
	assert.Empty(t, res.Warnings)

	assert.Len(t, st.papers, 3)
	for _, p := range res.Papers {
		stored := st.papers[p.ID]
		assert.Equal(t, types.StatusNew, stored.Status)
		assert.Equal(t, identity.OfRecord(p.PaperRecord), p.ID)
	}
	assert.Equal(t, "m1", st.papers[res.Papers[1].ID].SourceID)
	assert.Equal(t, map[string]int{"m1": 2, "m2": 2, "m3": 0}, st.processed)
	assert.Contains(t, buf.String(), "parsed  m1: 2 papers, 2 new (numbered)")
	assert.Contains(t, buf.String(), "new: 3")
}

func TestProcessFiltersActionedPapers(t *testing.T) {
	st := newMemStore()
	ex := extract.New(types.DefaultParseConfig())
	msgs := []types.RawMessage{{SourceID: "m1", Body: digest("Alpha", "Beta")}}

	res, err := Process(context.Background(), msgs, ex, st, quiet(), io.Discard)
	require.NoError(t, err)
	require.Len(t, res.Papers, 2)

	for _, status := range types.ActionedStatuses {
		t.Run(string(status), func(t *testing.T) {
			declined := st.papers[res.Papers[0].ID]
			declined.Status = status
			st.papers[res.Papers[0].ID] = declined

			again, err := Process(context.Background(), msgs, ex, st, quiet(), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, []string{"Beta"}, titles(again.Papers))
			assert.Equal(t, 1, again.Summary.Filtered)
			assert.Equal(t, status, st.papers[res.Papers[0].ID].Status)
		})
	}
}

func TestProcessRecoversFromPanics(t *testing.T) {
	st := newMemStore()
	ex := panicky{next: extract.New(types.DefaultParseConfig())}
	msgs := []types.RawMessage{
		{SourceID: "m1", Body: digest("Alpha")},
		{SourceID: "bad", Body: "BOOM"},
		{SourceID: "m3", Body: digest("Gamma")},
	}

	var buf bytes.Buffer
	res, err := Process(context.Background(), msgs, ex, st, quiet(), &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "Gamma"}, titles(res.Papers))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "bad", res.Warnings[0].SourceID)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Contains(t, buf.String(), "failed  bad:")
	assert.NotContains(t, st.processed, "bad")
}

func TestProcessSkipsProcessedMessages(t *testing.T) {
	st := newMemStore()
	st.processed["m1"] = 1
	ex := extract.New(types.DefaultParseConfig())
	msgs := []types.RawMessage{
		{SourceID: "m1", Body: digest("Alpha")},
		{SourceID: "m2", Body: digest("Beta")},
	}

	opts := quiet()
	opts.SkipProcessed = true
	res, err := Process(context.Background(), msgs, ex, st, opts, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, titles(res.Papers))
	assert.Equal(t, 1, res.Summary.Skipped)
}

func TestProcessDryRun(t *testing.T) {
	st := newMemStore()
	opts := quiet()
	opts.DryRun = true

	res, err := Process(context.Background(),
		[]types.RawMessage{{SourceID: "m1", Body: digest("Alpha")}},
		extract.New(types.DefaultParseConfig()), st, opts, io.Discard)
	require.NoError(t, err)
	assert.Len(t, res.Papers, 1)
	assert.Zero(t, st.puts)
	assert.Empty(t, st.processed)
}

func TestProcessKeepsMessageOrder(t *testing.T) {
	var msgs []types.RawMessage
	var want []string
	for i := 0; i < 20; i++ {
		title := fmt.Sprintf("Paper %02d", i)
		msgs = append(msgs, types.RawMessage{SourceID: title, Body: digest(title)})
		want = append(want, title)
	}

	var calls atomic.Int32
	opts := quiet()
	opts.Workers = 8
	opts.OnMessage = func() { calls.Add(1) }

	res, err := Process(context.Background(), msgs, extract.New(types.DefaultParseConfig()), newMemStore(), opts, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, want, titles(res.Papers))
	assert.Equal(t, int32(20), calls.Load())
}

func TestRunSourceFailure(t *testing.T) {
	st := newMemStore()
	src := staticSource{err: errors.New("connection refused")}

	res, err := Run(context.Background(), src, extract.New(types.DefaultParseConfig()), st, quiet(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, res.Papers)
	assert.Zero(t, st.puts)
}

func TestRun(t *testing.T) {
	src := staticSource{msgs: []types.RawMessage{{SourceID: "m1", Body: digest("Alpha")}}}
	res, err := Run(context.Background(), src, extract.New(types.DefaultParseConfig()), newMemStore(), quiet(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, titles(res.Papers))
}

func TestBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	res := Result{
		Papers: []Paper{{
			PaperRecord: types.PaperRecord{
				Title:        "Alpha",
				Authors:      []string{"Jane Doe"},
				Affiliations: []string{"Acme University"},
			},
			ID:       identity.Of("Alpha", "Jane Doe"),
			SourceID: "m1",
		}},
		Warnings: []Warning{{SourceID: "bad", Err: errors.New("boom")}},
		Summary:  Summary{Messages: 2, Extracted: 1, Surfaced: 1, Failed: 1},
	}

	runID, err := WriteBatchFile(path, res)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	bf, err := ReadBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, runID, bf.RunID)
	assert.Equal(t, res.Papers, bf.Papers)
	assert.Equal(t, res.Summary, bf.Summary)
	assert.Equal(t, []string{"bad: boom"}, bf.Warnings)

	_, err = ReadBatchFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
