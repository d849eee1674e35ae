// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/store"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var declineCmd = &cobra.Command{
	Use:   "decline <id>...",
	Short: "Decline papers (new, optioned or solicited)",
	Long: `Decline moves each paper from its current status to "declined".
IDs may be abbreviated to any unique prefix of at least four characters.
--all-new declines every paper currently marked "new".`,
	RunE: runDecline,
}

var optionCmd = &cobra.Command{
	Use:   "option <id>...",
	Short: "Option new papers for consideration",
	Args:  cobra.MinimumNArgs(1),
	RunE:  transitionRunE(types.StatusNew, types.StatusOptioned),
}

var solicitCmd = &cobra.Command{
	Use:   "solicit <id>...",
	Short: "Mark optioned papers as solicited",
	Args:  cobra.MinimumNArgs(1),
	RunE:  transitionRunE(types.StatusOptioned, types.StatusSolicited),
}

var acceptCmd = &cobra.Command{
	Use:   "accept <id>...",
	Short: "Mark solicited papers as accepted",
	Args:  cobra.MinimumNArgs(1),
	RunE:  transitionRunE(types.StatusSolicited, types.StatusAccepted),
}

// transitionRunE returns a RunE that moves each named paper from one
// status to another.
func transitionRunE(from, to types.Status) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := triageConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		return moveAll(cmd.Context(), st, args, func(types.Status) types.Status { return from }, to, os.Stdout)
	}
}

func runDecline(cmd *cobra.Command, args []string) error {
	allNew, _ := cmd.Flags().GetBool("all-new")
	if !allNew && len(args) == 0 {
		return errors.New("decline: give at least one paper id or --all-new")
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

	ctx := cmd.Context()
	if allNew {
		papers, err := st.List(ctx, types.StatusNew)
		if err != nil {
			return err
		}
		for _, p := range papers {
			args = append(args, p.ID)
		}
		if len(papers) == 0 {
			fmt.Fprintln(os.Stdout, "No new papers to decline.")
			return nil
		}
	}

	// Declining is allowed from any non-terminal status; the paper's
	// current status is the expected "from".
	return moveAll(ctx, st, args, func(current types.Status) types.Status { return current }, types.StatusDeclined, os.Stdout)
}

// moveAll resolves each id prefix and applies the transition to status to.
// from picks the expected current status given the stored one. Every id is
// attempted; the first error is returned after all have been tried.
func moveAll(ctx context.Context, st *store.Store, prefixes []string, from func(types.Status) types.Status, to types.Status, w io.Writer) error {
	var firstErr error
	fail := func(err error) {
		fmt.Fprintf(w, "failed  %v\n", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	seen := make(map[string]bool, len(prefixes))
	for _, prefix := range prefixes {
		id, err := st.Resolve(ctx, prefix)
		if err != nil {
			fail(err)
			continue
		}
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true

		p, err := st.Get(ctx, id)
		if err != nil {
			fail(err)
			continue
		}
		if err := st.Transition(ctx, id, from(p.Status), to); err != nil {
			fail(err)
			continue
		}
		fmt.Fprintf(w, "%-9s %s  %s\n", to, id.String()[:8], p.Title)
	}
	return firstErr
}

func init() {
	declineCmd.Flags().Bool("all-new", false, "decline every paper with status new")
	rootCmd.AddCommand(declineCmd, optionCmd, solicitCmd, acceptCmd)
}
