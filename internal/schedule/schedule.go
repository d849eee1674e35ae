// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule runs a job on a cron schedule in a configured timezone.
// It drives periodic mailbox fetches.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pdiddy/paper-triage/pkg/types"
)

const (
	defaultSpec     = "0 7 * * *"
	defaultTimezone = "UTC"
)

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Scheduler runs one job on a cron schedule. Runs never overlap: a run
// that is due while the previous one is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// New creates a Scheduler for cfg.Timezone (default UTC).
func New(cfg types.ScheduleConfig, logger *slog.Logger) (*Scheduler, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, location: loc, logger: logger}, nil
}

// Spec converts a schedule expression into a five-field cron spec. An
// "HH:MM" expression means daily at that time; an empty one means the
// default daily 07:00.
func Spec(expr string) (string, error) {
	if expr == "" {
		return defaultSpec, nil
	}
	if m := clockRe.FindStringSubmatch(expr); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return expr, nil
}

// Schedule installs job under expr, replacing any previous job. Each run
// gets a context that is cancelled when Run returns; job errors are logged.
func (s *Scheduler) Schedule(ctx context.Context, expr string, job func(context.Context) error) error {
	spec, err := Spec(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "err", err, "elapsed", time.Since(start))
			return
		}
		s.logger.Info("scheduled run finished", "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}
	s.entryID = id
	return nil
}

// Next returns the next activation time, or the zero time when nothing is
// scheduled or the scheduler is stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start()
	s.logger.Info("scheduler started", "next", s.Next().In(s.location).Format(time.RFC3339))
	<-ctx.Done()
	s.Stop()
}
