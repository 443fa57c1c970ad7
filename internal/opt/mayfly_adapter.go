package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
	window   float64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		window:   DefaultWindow,
	}
}

// Run executes the Mayfly optimization using the external library.
// The library only takes scalar bounds, so the search runs on the unit cube
// and every candidate is mapped into the per-dimension box.
func (m *MayflyAdapter) Run(eval func([]float64) float64, start, lower, upper []float64) ([]float64, float64, error) {
	box, err := NewBox(start, lower, upper, m.window)
	if err != nil {
		return nil, 0, err
	}
	startCost := eval(start)
	if box.Dim() == 0 {
		return []float64{}, startCost, nil
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 {
		return eval(box.FromUnit(u))
	}
	config.ProblemSize = box.Dim()
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly: %w", err)
	}

	best := box.FromUnit(result.GlobalBest.Position)
	cost := result.GlobalBest.Cost
	if startCost <= cost {
		return append([]float64{}, start...), startCost, nil
	}
	return best, cost, nil
}
