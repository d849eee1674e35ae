// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/extract"
	"github.com/pdiddy/paper-triage/internal/identity"
	"github.com/pdiddy/paper-triage/internal/mailsource"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Extract paper records from message files without touching the store",
	Long: `Parse runs the extraction pipeline over message bodies and prints the
result. Files ending in .eml are decoded as MIME messages; anything else is
read as plain text. With no file (or "-") the body is read from stdin.

--stage selects the output: "normalized" prints the cleaned body, "tagged"
prints the marker lines, and "records" (default) prints JSON records.`,
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	stage, _ := cmd.Flags().GetString("stage")
	cfg, err := triageConfig()
	if err != nil {
		return err
	}
	return parseFiles(args, stage, cfg.Parse, os.Stdin, os.Stdout)
}

func parseFiles(paths []string, stage string, cfg types.ParseConfig, stdin io.Reader, w io.Writer) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	ex := extract.New(cfg)
	norm := extract.NewNormalizer(cfg)
	var records []types.OutputPaper

	for _, path := range paths {
		body, err := readBody(path, stdin)
		if err != nil {
			return err
		}

		switch stage {
		case "normalized":
			fmt.Fprintln(w, norm.Normalize(body))
		case "tagged":
			format, block := ex.Tag(body)
			fmt.Fprintf(w, "# format: %s\n%s\n", format, block.Text)
			for ordinal, note := range block.Review {
				fmt.Fprintf(w, "# review %d: %s\n", ordinal, note)
			}
		case "records", "":
			result := ex.Extract(body)
			for _, perr := range result.Errors {
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, perr)
			}
			for _, rec := range result.Records {
				records = append(records, rec.Output(identity.OfRecord(rec).String()))
			}
		default:
			return fmt.Errorf("unknown stage %q: use normalized, tagged or records", stage)
		}
	}

	if stage == "records" || stage == "" {
		if records == nil {
			records = []types.OutputPaper{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return nil
}

func readBody(path string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".eml") {
		return mailsource.ParseMessage(bytes.NewReader(data))
	}
	return string(data), nil
}

func init() {
	parseCmd.Flags().String("stage", "records", "output stage: normalized, tagged or records")
	rootCmd.AddCommand(parseCmd)
}
