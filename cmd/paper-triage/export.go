// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/store"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export papers as YAML, JSON or CSV",
	Long: `Export writes the papers with the given status (default: every status)
to stdout, or with --out to <data-dir>/export.<format>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		statusFlag, _ := cmd.Flags().GetString("status")
		toFile, _ := cmd.Flags().GetBool("out")

		var status types.Status
		if statusFlag != "" && statusFlag != "all" {
			s, err := types.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			status = s
		}

		cfg, err := triageConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if toFile {
			path, err := st.ExportFile(cmd.Context(), format, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Exported to %s\n", path)
			return nil
		}
		return st.Export(cmd.Context(), os.Stdout, format, status)
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", store.FormatYAML, "output format: yaml, json or csv")
	exportCmd.Flags().String("status", "all", "status to export (or all)")
	exportCmd.Flags().Bool("out", false, "write to <data-dir>/export.<format> instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
