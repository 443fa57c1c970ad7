package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// edge keeps start values on a bound away from the singular ends of the
// logistic and exponential maps.
const edge = 1e-8

// NelderMeadAdapter runs gonum's Nelder-Mead simplex search. The simplex
// moves in an unbounded auxiliary space; each coordinate is mapped into its
// bounds with a logistic curve (two finite sides), an exponential (one finite
// side) or the identity.
type NelderMeadAdapter struct {
	maxIters int
}

// NewNelderMead creates a Nelder-Mead optimizer limited to maxIters major
// iterations.
func NewNelderMead(maxIters int) Optimizer {
	return &NelderMeadAdapter{maxIters: maxIters}
}

// Run executes the simplex search from start.
func (n *NelderMeadAdapter) Run(eval func([]float64) float64, start, lower, upper []float64) ([]float64, float64, error) {
	if len(lower) != len(start) || len(upper) != len(start) {
		return nil, 0, fmt.Errorf("bounds have %d/%d entries for %d parameters", len(lower), len(upper), len(start))
	}
	startCost := eval(start)
	if len(start) == 0 {
		return []float64{}, startCost, nil
	}

	m := auxMap{lower: lower, upper: upper}
	problem := optimize.Problem{
		Func: func(y []float64) float64 {
			return eval(m.fromAux(y))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: n.maxIters,
	}

	result, err := optimize.Minimize(problem, m.toAux(start), settings, &optimize.NelderMead{})
	if result == nil {
		return nil, 0, fmt.Errorf("nelder-mead: %w", err)
	}
	if err != nil && math.IsNaN(result.F) {
		return nil, 0, fmt.Errorf("nelder-mead: %w", err)
	}

	if startCost <= result.F {
		return append([]float64{}, start...), startCost, nil
	}
	return m.fromAux(result.X), result.F, nil
}

type auxMap struct {
	lower, upper []float64
}

func (m auxMap) toAux(x []float64) []float64 {
	y := make([]float64, len(x))
	for i, v := range x {
		lo, hi := m.lower[i], m.upper[i]
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			y[i] = v
		case math.IsInf(hi, 1):
			y[i] = math.Log(math.Max(v-lo, edge))
		case math.IsInf(lo, -1):
			y[i] = math.Log(math.Max(hi-v, edge))
		case hi == lo:
			y[i] = 0
		default:
			p := math.Max(edge, math.Min(1-edge, (v-lo)/(hi-lo)))
			y[i] = math.Log(p / (1 - p))
		}
	}
	return y
}

func (m auxMap) fromAux(y []float64) []float64 {
	x := make([]float64, len(y))
	for i, v := range y {
		lo, hi := m.lower[i], m.upper[i]
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			x[i] = v
		case math.IsInf(hi, 1):
			x[i] = lo + math.Exp(v)
		case math.IsInf(lo, -1):
			x[i] = hi - math.Exp(v)
		default:
			x[i] = lo + (hi-lo)/(1+math.Exp(-v))
		}
	}
	return x
}
