// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/pipeline"
	"github.com/pdiddy/paper-triage/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetch on a schedule until interrupted",
	Long: `Schedule runs "fetch" periodically. The schedule comes from
--at or the schedule.cron config key and may be a five-field cron expression
or a daily "HH:MM" time (default 07:00 in schedule.timezone).
Messages already processed are always skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := triageConfig()
		if err != nil {
			return err
		}
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			cfg.Schedule.Cron = at
		}
		once, _ := cmd.Flags().GetBool("once")

		logger := slog.Default().With("component", "schedule")
		opts := pipeline.Options{
			Workers:       cfg.Workers,
			SkipProcessed: true,
			Logger:        logger,
		}
		job := func(ctx context.Context) error {
			res, err := fetchBatch(ctx, cfg, opts, false, os.Stdout)
			if err != nil {
				return err
			}
			logger.Info("fetch finished",
				"messages", res.Summary.Messages,
				"new", res.Summary.Surfaced,
				"failed", res.Summary.Failed)
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if once {
			return job(ctx)
		}

		sched, err := schedule.New(cfg.Schedule, logger)
		if err != nil {
			return err
		}
		if err := sched.Schedule(ctx, cfg.Schedule.Cron, job); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Scheduler running (Ctrl-C to stop)")
		sched.Run(ctx)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("at", "", `schedule override: cron expression or daily "HH:MM"`)
	scheduleCmd.Flags().Bool("once", false, "run a single fetch now and exit")
	rootCmd.AddCommand(scheduleCmd)
}
