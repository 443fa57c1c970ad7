package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/paramfit/internal/fit"
	"github.com/cwbudde/paramfit/internal/opt"
	"github.com/cwbudde/paramfit/internal/store"
)

// runOptions collects the flags of the run command.
type runOptions struct {
	problemPath string
	outDir      string
	noSave      bool
	optimizer   string
	iters       int
	popSize     int
	seed        int64
	restarts    int
	patience    int
	threshold   float64
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate the parameters of a problem file",
	Long: `Loads a problem file (parameters, constraints and objective), minimizes
the objective subject to the constraints and writes the result to
<out>/runs/<run id>/result.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runProblem(ctx, cmd.OutOrStdout(), runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.problemPath, "problem", "", "Problem file path, YAML or JSON (required)")
	f.StringVar(&runOpts.outDir, "out", "./results", "Base directory for result files")
	f.BoolVar(&runOpts.noSave, "no-save", false, "Do not write a result file")
	f.StringVar(&runOpts.optimizer, "optimizer", "mayfly", "Optimizer: mayfly, neldermead")
	f.IntVar(&runOpts.iters, "iters", 200, "Max iterations per pass")
	f.IntVar(&runOpts.popSize, "pop", 30, "Population size (mayfly, at least 20)")
	f.Int64Var(&runOpts.seed, "seed", 42, "Random seed")
	f.IntVar(&runOpts.restarts, "restarts", 5, "Max optimizer passes, each starting from the previous best")
	f.IntVar(&runOpts.patience, "patience", 2, "Passes without significant improvement before stopping (0 disables)")
	f.Float64Var(&runOpts.threshold, "threshold", 0.001, "Minimum relative improvement that counts as progress")

	runCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(runCmd)
}

func runProblem(ctx context.Context, out io.Writer, o runOptions) error {
	problem, err := store.LoadProblem(o.problemPath)
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
	criterion, err := problem.Criterion(table)
	if err != nil {
		return err
	}

	optimizer, err := opt.New(opt.Config{Name: o.optimizer, MaxIters: o.iters, PopSize: o.popSize, Seed: o.seed})
	if err != nil {
		return err
	}

	cfg := fit.Config{Restarts: o.restarts, Convergence: fit.DisabledConvergenceConfig()}
	if o.patience > 0 {
		cfg.Convergence = fit.ConvergenceConfig{Enabled: true, Patience: o.patience, Threshold: o.threshold}
	}

	slog.Info("Starting run", "problem", o.problemPath, "optimizer", o.optimizer, "params", table.Len(), "constraints", len(items))

	result, err := fit.Minimize(ctx, table, items, criterion, optimizer, cfg)
	if err != nil && (result == nil || !errors.Is(err, context.Canceled)) {
		return err
	}
	if err != nil {
		slog.Warn("Run interrupted, reporting best result so far", "passes", result.Passes)
	}

	printResult(out, result)

	if o.noSave {
		return nil
	}
	fs, err := store.NewFSStore(o.outDir)
	if err != nil {
		return err
	}
	runID := store.NewRunID()
	record := store.NewRunRecord(runID, result, store.RunConfig{
		ProblemPath: o.problemPath,
		Optimizer:   o.optimizer,
		Iters:       o.iters,
		PopSize:     o.popSize,
		Seed:        o.seed,
		Restarts:    o.restarts,
		Patience:    o.patience,
		Threshold:   o.threshold,
	})
	if err := fs.SaveResult(runID, record); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	fmt.Fprintf(out, "\nRun ID: %s\n", runID)
	return nil
}

func printResult(out io.Writer, r *fit.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tVALUE\tLOWER\tUPPER")
	fmt.Fprintln(w, "---------\t-----\t-----\t-----")
	for _, e := range r.Params.Entries {
		fmt.Fprintf(w, "%s\t%.6g\t%g\t%g\n", e.Label, e.Value, e.Lower, e.Upper)
	}
	w.Flush()

	improvement := 0.0
	if r.InitialCost != 0 {
		improvement = (r.InitialCost - r.BestCost) / r.InitialCost * 100
	}
	fmt.Fprintf(out, "\nInitial cost: %.6g\n", r.InitialCost)
	fmt.Fprintf(out, "Best cost:    %.6g (%.2f%% improvement)\n", r.BestCost, improvement)
	fmt.Fprintf(out, "Passes: %d, evaluations: %d, rejected: %d, time: %s\n", r.Passes, r.Evaluations, r.Rejected, r.Duration)
}
