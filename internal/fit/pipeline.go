package fit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/opt"
	"github.com/cwbudde/paramfit/internal/params"
	"github.com/cwbudde/paramfit/internal/reparam"
)

// Config controls the estimation loop around the optimizer.
type Config struct {
	// Restarts is the maximum number of optimizer passes. Each pass starts
	// from the best point of the previous one.
	Restarts int

	Convergence ConvergenceConfig
}

// DefaultConfig returns the defaults used by the command line.
func DefaultConfig() Config {
	return Config{
		Restarts:    5,
		Convergence: DefaultConvergenceConfig(),
	}
}

// Result holds the output of an estimation run
type Result struct {
	Params      *params.Table
	Internal    []float64
	BestCost    float64
	InitialCost float64
	Passes      int
	Evaluations int64
	Rejected    int64 // evaluations whose internal vector did not map back
	History     []float64
	Duration    time.Duration
	Killed      []constraints.ID
}

// Minimize estimates the parameters in table subject to items by minimizing
// criterion with optimizer. Constraint problems are reported before any
// evaluation. If ctx is cancelled between passes, the best result so far is
// returned together with the context error.
func Minimize(ctx context.Context, table *params.Table, items []constraints.Item, criterion Criterion, optimizer opt.Optimizer, cfg Config) (*Result, error) {
	started := time.Now()

	rp, err := reparam.Build(table, items)
	if err != nil {
		return nil, err
	}

	e := &evaluator{wrapped: rp.Wrap(criterion)}
	start := rp.InternalStart()
	lower, upper := rp.InternalLower(), rp.InternalUpper()

	e.evaluations.Add(1)
	initialCost, err := e.wrapped(start)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation: %w", err)
	}
	if math.IsNaN(initialCost) {
		initialCost = math.Inf(1)
	}

	slog.Info("Starting estimation",
		"external_dim", rp.ExternalDim(),
		"internal_dim", rp.Dim(),
		"initial_cost", initialCost,
		"max_passes", cfg.Restarts,
	)

	best, bestCost := start, initialCost
	tracker := NewConvergenceTracker(cfg.Convergence)
	passes := 0

	restarts := cfg.Restarts
	if restarts < 1 {
		restarts = 1
	}
	var ctxErr error
	for pass := 1; pass <= restarts; pass++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("Estimation cancelled", "passes", passes, "best_cost", bestCost)
			ctxErr = err
			break
		}

		x, cost, err := optimizer.Run(e.eval, best, lower, upper)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		if err := e.failure(); err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		passes++

		if cost < bestCost {
			best, bestCost = x, cost
		}
		slog.Debug("Pass complete", "pass", pass, "cost", cost, "best_cost", bestCost)

		if tracker.Update(bestCost) {
			break
		}
	}

	final, err := rp.Table(best)
	if err != nil {
		return nil, fmt.Errorf("map best point: %w", err)
	}

	result := &Result{
		Params:      final,
		Internal:    append([]float64{}, best...),
		BestCost:    bestCost,
		InitialCost: initialCost,
		Passes:      passes,
		Evaluations: e.evaluations.Load(),
		Rejected:    e.rejected.Load(),
		History:     tracker.History(),
		Duration:    time.Since(started),
		Killed:      rp.Killed(),
	}

	slog.Info("Estimation complete",
		"initial_cost", initialCost,
		"best_cost", bestCost,
		"passes", passes,
		"evaluations", result.Evaluations,
		"rejected", result.Rejected,
		"duration", result.Duration,
	)
	return result, ctxErr
}

// evaluator adapts a wrapped criterion to the optimizer's plain cost
// function. Internal vectors that do not map back are scored +Inf and counted.
// The start point is evaluated directly so that its errors are returned.
// Any other criterion error is remembered and ends the run after the pass.
type evaluator struct {
	wrapped     func([]float64) (float64, error)
	evaluations atomic.Int64
	rejected    atomic.Int64

	mu  sync.Mutex
	err error
}

func (e *evaluator) eval(internal []float64) float64 {
	e.evaluations.Add(1)
	v, err := e.wrapped(internal)
	if err != nil {
		if errors.Is(err, constraints.ErrNumerical) {
			e.rejected.Add(1)
			return math.Inf(1)
		}
		e.mu.Lock()
		if e.err == nil {
			e.err = err
		}
		e.mu.Unlock()
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

func (e *evaluator) failure() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
