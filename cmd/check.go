package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/paramfit/internal/reparam"
	"github.com/cwbudde/paramfit/internal/store"
)

var checkProblemPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a problem file without optimizing",
	Long: `Resolves and checks every constraint of a problem file, then prints the
internal dimension, the applied kill directives and the adjusted bounds of
every parameter. Entries pinned by fixed or equality constraints are marked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkProblem(cmd.OutOrStdout(), checkProblemPath)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkProblemPath, "problem", "", "Problem file path, YAML or JSON (required)")
	checkCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(checkCmd)
}

func checkProblem(out io.Writer, path string) error {
	problem, err := store.LoadProblem(path)
	if err != nil {
		return err
	}
	table, err := problem.Table()
	if err != nil {
		return err
	}
	items, err := problem.Items()
	if err != nil {
		return err
	}
	if _, err := problem.Criterion(table); err != nil {
		return err
	}

	rp, err := reparam.Build(table, items)
	if err != nil {
		return err
	}
	_, pinned, err := reparam.StartHelpers(table, items)
	if err != nil {
		return err
	}
	isPinned := make(map[string]bool, pinned.Len())
	for _, e := range pinned.Entries {
		isPinned[e.Label.String()] = true
	}

	fmt.Fprintf(out, "External dimension: %d\n", rp.ExternalDim())
	fmt.Fprintf(out, "Internal dimension: %d\n", rp.Dim())
	fmt.Fprintf(out, "Constraints:        %d\n", len(rp.Constraints()))
	if killed := rp.Killed(); len(killed) > 0 {
		fmt.Fprintf(out, "Killed:             %v\n", killed)
	}
	fmt.Fprintln(out)

	start := rp.Start()
	lower, upper := rp.ExternalLower(), rp.ExternalUpper()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tSTART\tLOWER\tUPPER\tPINNED")
	fmt.Fprintln(w, "---------\t-----\t-----\t-----\t------")
	for i, e := range start.Entries {
		mark := ""
		if isPinned[e.Label.String()] {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%.6g\t%g\t%g\t%s\n", e.Label, e.Value, lower[i], upper[i], mark)
	}
	return w.Flush()
}
