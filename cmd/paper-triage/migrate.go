// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import the legacy per-status CSV files into the store",
	Long: `Migrate reads the CSV files kept by the old dashboard from --dir and
stores their papers with the matching status:

  declined_papers.csv     declined
  optioned_papers.csv     optioned
  solicited_papers.csv    solicited
  solicited_accepted.csv  accepted
  solicited_declined.csv  declined

Missing files are skipped. A paper that appears in several files keeps its
first status; papers already in the store are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := triageConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := st.ImportLegacy(cmd.Context(), dir, os.Stdout)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(os.Stdout, "Imported %d paper(s) from %d legacy file(s)\n", summary.Imported, len(store.LegacyFiles))
		if summary.Failed > 0 {
			return fmt.Errorf("%d row(s) failed to import", summary.Failed)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("dir", "data", "directory holding the legacy CSV files")
	rootCmd.AddCommand(migrateCmd)
}
