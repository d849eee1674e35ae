// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a batch of notification messages through
// extraction, drops papers the editors have already actioned, removes
// duplicates within the batch and records the surviving papers as new.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-triage/internal/extract"
	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/pkg/types"
)

const defaultWorkers = 4

// Source delivers the raw messages of one batch.
type Source interface {
	Fetch(ctx context.Context) ([]types.RawMessage, error)
}

// Extractor turns one message body into paper records.
type Extractor interface {
	Extract(body string) extract.Extraction
}

// StatusStore is the part of the status store a batch run needs.
type StatusStore interface {
	IDs(ctx context.Context, statuses ...types.Status) (map[identity.ID]bool, error)
	Put(ctx context.Context, p types.StoredPaper) error
	MarkProcessed(ctx context.Context, sourceID string, papers int) error
	Processed(ctx context.Context, sourceID string) (bool, error)
}

// Options controls a batch run.
type Options struct {
	// Workers bounds concurrent extraction (default 4).
	Workers int

	// SkipProcessed skips messages the store has already seen.
	SkipProcessed bool

	// DryRun reports surfaced papers without writing to the store.
	DryRun bool

	// OnMessage, when set, is called once per extracted message.
	OnMessage func()

	// Logger receives warnings; slog.Default() when nil.
	Logger *slog.Logger
}

// Paper is a surfaced paper with its identity and originating message.
type Paper struct {
	types.PaperRecord `yaml:",inline"`

	ID       identity.ID `json:"paper_id" yaml:"paper_id"`
	SourceID string      `json:"source_id" yaml:"source_id"`
}

// Warning describes a message or paper that was skipped because
// extraction failed. The rest of the batch is unaffected.
type Warning struct {
	SourceID string
	Err      error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.SourceID, w.Err)
}

// Summary holds counts from a batch run.
type Summary struct {
	Messages   int `json:"messages" yaml:"messages"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Extracted  int `json:"extracted" yaml:"extracted"`
	Filtered   int `json:"filtered" yaml:"filtered"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Surfaced   int `json:"surfaced" yaml:"surfaced"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Result is the outcome of a batch run.
type Result struct {
	Papers   []Paper
	Warnings []Warning
	Summary  Summary
}

// Run fetches a batch from src and processes it. A source failure is
// returned as an error with an empty result.
func Run(ctx context.Context, src Source, ex Extractor, st StatusStore, opts Options, w io.Writer) (Result, error) {
	msgs, err := src.Fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetching messages: %w", err)
	}
	return Process(ctx, msgs, ex, st, opts, w)
}

// outcome is the extraction result of one message.
type outcome struct {
	extraction extract.Extraction
	err        error
}

// Process extracts msgs concurrently and then, in message order, filters
// actioned papers, removes in-batch duplicates and stores the rest as new.
// Progress lines go to w. An error is returned only when the store cannot
// be read or written.
func Process(ctx context.Context, msgs []types.RawMessage, ex Extractor, st StatusStore, opts Options, w io.Writer) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var res Result
	res.Summary.Messages = len(msgs)

	pending := make([]types.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if opts.SkipProcessed && m.SourceID != "" {
			seen, err := st.Processed(ctx, m.SourceID)
			if err != nil {
				return res, err
			}
			if seen {
				fmt.Fprintf(w, "skipped %s\n", m.SourceID)
				res.Summary.Skipped++
				continue
			}
		}
		pending = append(pending, m)
	}

	outcomes := extractAll(pending, ex, workers, opts.OnMessage)

	actioned, err := st.IDs(ctx, types.ActionedStatuses...)
	if err != nil {
		return res, fmt.Errorf("reading actioned papers: %w", err)
	}

	seen := make(map[identity.ID]bool)
	for i, m := range pending {
		out := outcomes[i]
		if out.err != nil {
			res.Warnings = append(res.Warnings, Warning{SourceID: m.SourceID, Err: out.err})
			logger.Warn("extraction failed", "source", m.SourceID, "err", out.err)
			fmt.Fprintf(w, "failed  %s: %v\n", m.SourceID, out.err)
			res.Summary.Failed++
			continue
		}
		for _, perr := range out.extraction.Errors {
			res.Warnings = append(res.Warnings, Warning{SourceID: m.SourceID, Err: perr})
			logger.Warn("paper skipped", "source", m.SourceID, "err", perr)
		}

		records := out.extraction.Records
		res.Summary.Extracted += len(records)
		surfaced := 0
		for _, rec := range records {
			id := identity.OfRecord(rec)
			switch {
			case actioned[id]:
				res.Summary.Filtered++
				continue
			case seen[id]:
				res.Summary.Duplicates++
				continue
			}
			seen[id] = true

			if !opts.DryRun {
				if err := st.Put(ctx, types.StoredPaper{
					PaperRecord: rec,
					ID:          id.String(),
					Status:      types.StatusNew,
					SourceID:    m.SourceID,
				}); err != nil {
					return res, err
				}
			}
			res.Papers = append(res.Papers, Paper{PaperRecord: rec, ID: id, SourceID: m.SourceID})
			surfaced++
		}
		res.Summary.Surfaced += surfaced

		fmt.Fprintf(w, "parsed  %s: %d papers, %d new (%s)\n",
			m.SourceID, len(records), surfaced, out.extraction.Format)

		if !opts.DryRun && m.SourceID != "" {
			if err := st.MarkProcessed(ctx, m.SourceID, len(records)); err != nil {
				return res, err
			}
		}
	}

	s := res.Summary
	fmt.Fprintf(w, "\nmessages: %d, skipped: %d, papers: %d, filtered: %d, duplicates: %d, new: %d, failed: %d\n",
		s.Messages, s.Skipped, s.Extracted, s.Filtered, s.Duplicates, s.Surfaced, s.Failed)

	return res, nil
}

// extractAll runs ex over every message with at most workers goroutines.
// Results are indexed by message position; a panic in one message becomes
// that message's error.
func extractAll(msgs []types.RawMessage, ex Extractor, workers int, onMessage func()) []outcome {
	outcomes := make([]outcome, len(msgs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, m := range msgs {
		i, m := i, m
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{err: fmt.Errorf("extracting message: %v", r)}
				}
				if onMessage != nil {
					onMessage()
				}
			}()
			outcomes[i] = outcome{extraction: ex.Extract(m.Body)}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
