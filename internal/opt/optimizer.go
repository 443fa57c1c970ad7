package opt

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes eval inside the box [lower, upper].
	// start is a feasible point inside the box; optimizers that do not use a
	// starting point still report it if nothing better was found.
	// Returns: best parameters and best cost
	Run(eval func([]float64) float64, start, lower, upper []float64) ([]float64, float64, error)
}

// Names lists the optimizers New understands.
var Names = []string{"mayfly", "neldermead"}

// Config selects and tunes an optimizer.
type Config struct {
	Name     string
	MaxIters int
	PopSize  int
	Seed     int64
}

// New creates the optimizer named in cfg.
func New(cfg Config) (Optimizer, error) {
	switch cfg.Name {
	case "", "mayfly":
		return NewMayfly(cfg.MaxIters, cfg.PopSize, cfg.Seed), nil
	case "neldermead":
		return NewNelderMead(cfg.MaxIters), nil
	}
	return nil, &UnknownOptimizerError{Name: cfg.Name}
}

// UnknownOptimizerError is returned by New for unsupported names.
type UnknownOptimizerError struct {
	Name string
}

func (e *UnknownOptimizerError) Error() string {
	return "unknown optimizer: " + e.Name
}
