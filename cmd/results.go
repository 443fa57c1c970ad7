package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/paramfit/internal/store"
)

var resultsDataDir string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored run results",
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored results",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := store.NewFSStore(resultsDataDir)
		if err != nil {
			return fmt.Errorf("failed to create result store: %w", err)
		}
		return listResults(cmd.OutOrStdout(), fs)
	},
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the parameters of a stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := store.NewFSStore(resultsDataDir)
		if err != nil {
			return fmt.Errorf("failed to create result store: %w", err)
		}
		return showResult(cmd.OutOrStdout(), fs, args[0])
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(showResultCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./results", "Base directory for result files")
}

func listResults(out io.Writer, s store.Store) error {
	infos, err := s.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tOPTIMIZER\tPASSES\tBEST COST\tPROBLEM")
	fmt.Fprintln(w, "------\t---------\t---------\t------\t---------\t-------")
	for _, info := range infos {
		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6g\t%s\n",
			displayID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Optimizer,
			info.Passes,
			info.BestCost,
			info.ProblemPath,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal results: %d\n", len(infos))
	return nil
}

func showResult(out io.Writer, s store.Store, runID string) error {
	record, err := s.LoadResult(runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s (%s, %s)\n\n", record.RunID, record.Config.Optimizer, record.Timestamp.Format("2006-01-02 15:04:05"))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tVALUE\tLOWER\tUPPER")
	for _, e := range record.Table().Entries {
		fmt.Fprintf(w, "%s\t%.6g\t%g\t%g\n", e.Label, e.Value, e.Lower, e.Upper)
	}
	w.Flush()
	fmt.Fprintf(out, "\nBest cost: %.6g after %d passes\n", record.BestCost, record.Passes)
	return nil
}
