// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-triage/internal/pipeline"
	"github.com/pdiddy/paper-triage/pkg/types"
)

func dirConfig(t *testing.T, inbox string) types.TriageConfig {
	t.Helper()
	return types.TriageConfig{
		Mail:    types.MailConfig{Source: "dir", Dir: inbox},
		Parse:   types.DefaultParseConfig(),
		Store:   types.StoreConfig{DataDir: t.TempDir()},
		Workers: 2,
	}
}

func TestFetchBatch(t *testing.T) {
	inbox := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "digest.txt"), []byte(taggedBody), 0o644))
	cfg := dirConfig(t, inbox)
	ctx := context.Background()

	var out bytes.Buffer
	res, err := fetchBatch(ctx, cfg, pipeline.Options{SkipProcessed: true}, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Surfaced)
	assert.Contains(t, out.String(), "parsed  digest.txt: 1 papers, 1 new (tagged)")

	out.Reset()
	res, err = fetchBatch(ctx, cfg, pipeline.Options{SkipProcessed: true}, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Zero(t, res.Summary.Surfaced)
}

func TestFetchBatchSourceFailure(t *testing.T) {
	cfg := dirConfig(t, filepath.Join(t.TempDir(), "missing"))

	res, err := fetchBatch(context.Background(), cfg, pipeline.Options{}, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching messages")
	assert.Empty(t, res.Papers)
}

type fixedSource []types.RawMessage

func (f fixedSource) Fetch(context.Context) ([]types.RawMessage, error) { return f, nil }

func TestProgressSource(t *testing.T) {
	ps := &progressSource{Source: fixedSource{{Body: taggedBody, SourceID: "a"}, {Body: "", SourceID: "b"}}}

	msgs, err := ps.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	require.NotNil(t, ps.bar)

	ps.advance()
	ps.advance()
	ps.finish()
	assert.True(t, ps.bar.IsFinished())
}
