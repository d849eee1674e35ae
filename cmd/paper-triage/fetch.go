// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/extract"
	"github.com/pdiddy/paper-triage/internal/mailsource"
	"github.com/pdiddy/paper-triage/internal/pipeline"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch notification emails and record new papers",
	Long: `Fetch retrieves recent notification emails from the configured mail
source (IMAP mailbox or a directory of .eml/.txt files), extracts the papers
they announce, drops papers already actioned by the editors, and stores the
rest with status "new".

Messages already processed by an earlier fetch are skipped unless --all is
given. Use --save to keep a YAML snapshot of the batch for "list --from".`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := triageConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.Mail.Source = "dir"
		cfg.Mail.Dir = dir
	}

	all, _ := cmd.Flags().GetBool("all")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	savePath, _ := cmd.Flags().GetString("save")
	quiet, _ := cmd.Flags().GetBool("quiet")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := fetchBatch(ctx, cfg, pipeline.Options{
		Workers:       cfg.Workers,
		SkipProcessed: !all,
		DryRun:        dryRun,
	}, !quiet, os.Stdout)
	if err != nil {
		return err
	}

	if savePath != "" {
		runID, err := pipeline.WriteBatchFile(savePath, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Batch %s saved to %s\n", runID, savePath)
	}

	if res.Summary.Surfaced > 0 {
		color.New(color.FgGreen, color.Bold).Fprintf(os.Stdout, "%d new paper(s) ready for review\n", res.Summary.Surfaced)
	}
	if res.Summary.Failed > 0 {
		return fmt.Errorf("%d message(s) failed extraction", res.Summary.Failed)
	}
	return nil
}

// fetchBatch runs one fetch against the configured source and store. It is
// shared by the fetch and schedule commands.
func fetchBatch(ctx context.Context, cfg types.TriageConfig, opts pipeline.Options, progress bool, w io.Writer) (pipeline.Result, error) {
	src, err := mailsource.New(cfg.Mail)
	if err != nil {
		return pipeline.Result{}, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return pipeline.Result{}, err
	}
	defer st.Close()

	if progress {
		ps := &progressSource{Source: src}
		src = ps
		opts.OnMessage = ps.advance
		defer ps.finish()
	}

	res, err := pipeline.Run(ctx, src, extract.New(cfg.Parse), st, opts, w)
	if err != nil {
		return res, err
	}
	slog.Debug("fetch finished", "messages", res.Summary.Messages, "source", cfg.Mail.Source)
	return res, nil
}

// progressSource shows a spinner while the wrapped source fetches and then
// sizes an extraction progress bar to the number of messages.
type progressSource struct {
	mailsource.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) Fetch(ctx context.Context) ([]types.RawMessage, error) {
	spinner := getSpinner("fetching messages")
	msgs, err := p.Source.Fetch(ctx)
	_ = spinner.Finish()
	fmt.Fprintln(os.Stderr)
	if err == nil && len(msgs) > 0 {
		p.bar = getProgressBar(len(msgs), "extracting")
	}
	return msgs, err
}

func (p *progressSource) advance() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressSource) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("messages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func init() {
	fetchCmd.Flags().String("dir", "", "read .eml/.txt files from this directory instead of the configured mail source")
	fetchCmd.Flags().Bool("all", false, "reprocess messages already seen by an earlier fetch")
	fetchCmd.Flags().Bool("dry-run", false, "report new papers without writing to the store")
	fetchCmd.Flags().String("save", "", "write the batch to a YAML file")
	fetchCmd.Flags().BoolP("quiet", "q", false, "hide progress bars")

	rootCmd.AddCommand(fetchCmd)
}
