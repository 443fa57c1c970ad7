package fit

import (
	"fmt"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// Criterion evaluates the external parameter vector, in table order.
// Lower is better.
type Criterion func(x []float64) (float64, error)

// Residuals returns one residual per observation for the external parameter
// vector. It is minimized as a sum of squares.
type Residuals func(x []float64) ([]float64, error)

// Criterion turns residuals into a scalar criterion.
func (r Residuals) Criterion() Criterion {
	return func(x []float64) (float64, error) {
		res, err := r(x)
		if err != nil {
			return 0, err
		}
		return SumOfSquares(res), nil
	}
}

// SumOfSquares returns sum(r_i^2).
func SumOfSquares(r []float64) float64 {
	var sum float64
	for _, v := range r {
		sum += v * v
	}
	return sum
}

// TargetResiduals builds residuals x[label] - target for every labelled
// target. An empty target set or a label that is not in the table is a
// ValidationError.
func TargetResiduals(t *params.Table, targets map[string]float64) (Residuals, error) {
	if len(targets) == 0 {
		return nil, &constraints.ValidationError{Field: "targets", Reason: "cannot be empty"}
	}
	pos := make([]int, 0, len(targets))
	want := make([]float64, 0, len(targets))
	for i, e := range t.Entries {
		if v, ok := targets[e.Label.String()]; ok {
			pos = append(pos, i)
			want = append(want, v)
		}
	}
	if len(pos) != len(targets) {
		for label := range targets {
			if t.Index(params.ParseLabel(label)) < 0 {
				return nil, &constraints.ValidationError{Field: "targets", Reason: fmt.Sprintf("name unknown parameter %q", label)}
			}
		}
	}

	return func(x []float64) ([]float64, error) {
		if len(x) != t.Len() {
			return nil, &constraints.ValidationError{Field: "x", Reason: fmt.Sprintf("has %d values for %d parameters", len(x), t.Len())}
		}
		out := make([]float64, len(pos))
		for i, p := range pos {
			out[i] = x[p] - want[i]
		}
		return out, nil
	}, nil
}
