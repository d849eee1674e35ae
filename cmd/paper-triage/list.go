// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/extract"
	"github.com/pdiddy/paper-triage/internal/pipeline"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers by workflow status",
	Long: `List shows the papers held in the store with the given status
(default "new"), sorted with papers by solicitable authors first, then
forthcoming papers, then the rest. Solicitable rows are starred and papers
whose author/affiliation split needs a manual check are flagged with "?".

--from lists the papers of a saved batch file instead of the store.`,
	RunE: runList,
}

// listRow is one displayed paper, from the store or from a batch file.
type listRow struct {
	ID     string
	Status types.Status
	Added  time.Time
	types.PaperRecord
}

func runList(cmd *cobra.Command, args []string) error {
	statusFlag, _ := cmd.Flags().GetString("status")
	from, _ := cmd.Flags().GetString("from")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := triageConfig()
	if err != nil {
		return err
	}

	var rows []listRow
	if from != "" {
		rows, err = batchRows(from)
	} else {
		rows, err = storeRows(cmd.Context(), cfg, statusFlag)
	}
	if err != nil {
		return err
	}

	solicitable := loadSolicitable(cfg)
	pipeline.Sort(rows, func(r listRow) types.PaperRecord { return r.PaperRecord }, solicitable)

	if asJSON {
		out := make([]types.OutputPaper, 0, len(rows))
		for _, r := range rows {
			o := r.PaperRecord.Output(r.ID)
			o.Status = r.Status
			out = append(out, o)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	renderRows(os.Stdout, rows, solicitable)
	return nil
}

func storeRows(ctx context.Context, cfg types.TriageConfig, statusFlag string) ([]listRow, error) {
	var status types.Status
	if statusFlag != "all" {
		s, err := types.ParseStatus(statusFlag)
		if err != nil {
			return nil, err
		}
		status = s
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	papers, err := st.List(ctx, status)
	if err != nil {
		return nil, err
	}
	rows := make([]listRow, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, listRow{ID: p.ID, Status: p.Status, Added: p.Added, PaperRecord: p.PaperRecord})
	}
	return rows, nil
}

func batchRows(path string) ([]listRow, error) {
	bf, err := pipeline.ReadBatchFile(path)
	if err != nil {
		return nil, err
	}
	rows := make([]listRow, 0, len(bf.Papers))
	for _, p := range bf.Papers {
		rows = append(rows, listRow{ID: p.ID.String(), Status: types.StatusNew, Added: bf.Timestamp, PaperRecord: p.PaperRecord})
	}
	return rows, nil
}

// renderRows prints rows as a table. Solicitable rows are starred and
// highlighted; rows needing review carry a "?" marker.
func renderRows(w io.Writer, rows []listRow, m pipeline.AuthorMatcher) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No papers.")
		return
	}

	highlight := color.New(color.FgYellow, color.Bold).SprintFunc()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "ID", "Title", "Authors", "Affiliations", "Journal", "Added"})
	table.SetAutoWrapText(true)
	table.SetColWidth(40)
	table.SetRowLine(false)

	for _, r := range rows {
		mark := ""
		if r.NeedsReview() {
			mark = "?"
		}
		title := r.Title
		if pipeline.Solicitable(r.PaperRecord, m) {
			mark = "*" + mark
			title = highlight(title)
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		added := ""
		if !r.Added.IsZero() {
			added = humanize.Time(r.Added)
		}
		table.Append([]string{
			mark,
			id,
			title,
			joinCleaned(r.Authors, "; "),
			joinCleaned(r.Affiliations, "; "),
			r.Journal,
			added,
		})
	}
	table.Render()

	fmt.Fprintf(w, "%s paper(s)\n", humanize.Comma(int64(len(rows))))
}

// joinCleaned trims download counters from each entry and joins the rest.
func joinCleaned(items []string, sep string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, extract.TrimDownloadsTrailer(s))
	}
	return strings.Join(out, sep)
}

func init() {
	listCmd.Flags().String("status", "new", "status to list (new, declined, optioned, solicited, accepted, all)")
	listCmd.Flags().String("from", "", "list papers from a saved batch file")
	listCmd.Flags().Bool("json", false, "print JSON records instead of a table")
	rootCmd.AddCommand(listCmd)
}
