// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a paper's status changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := triageConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		id, err := st.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		p, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		history, err := st.History(ctx, id)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n  %s\n  status: %s, added %s\n", p.Title, id, p.Status, humanize.Time(p.Added))
		if len(history) == 0 {
			fmt.Fprintln(os.Stdout, "  no transitions")
			return nil
		}
		for _, t := range history {
			fmt.Fprintf(os.Stdout, "  %s  %-9s -> %-9s (%s)\n",
				t.At.Local().Format(time.DateTime), t.From, t.To, humanize.Time(t.At))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
