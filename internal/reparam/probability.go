package reparam

import (
	"fmt"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// probabilityTransform maps k probabilities to the k-1 ratios p_i/p_base,
// where base is the entry with the largest start value. Any non-negative ratio
// vector maps back onto the simplex by inserting 1 at base and normalising, so
// the internal box [0, +Inf) never produces an invalid point.
type probabilityTransform struct {
	pos  []int
	base int // index into pos
	desc string
}

func newProbability(t *params.Table, r constraints.Resolved) (*probabilityTransform, error) {
	f := &probabilityTransform{pos: r.Positions, desc: r.Describe()}

	sum := 0.0
	for _, p := range r.Positions {
		e := t.Entries[p]
		if e.Lower > 0 || e.Upper < 1 {
			return nil, &constraints.ConflictError{
				First:    f.desc,
				Position: p,
				Label:    e.Label.String(),
				Reason:   fmt.Sprintf("bounds [%g, %g] would narrow [0, 1]", e.Lower, e.Upper),
			}
		}
		if e.Value < -feasTol {
			return nil, &constraints.InfeasibleStartError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("%s = %g is negative", e.Label, e.Value),
			}
		}
		sum += e.Value
	}
	if !approxEqual(sum, 1) {
		return nil, &constraints.InfeasibleStartError{
			Constraint: f.desc,
			Reason:     fmt.Sprintf("probabilities sum to %g", sum),
		}
	}
	for i, p := range r.Positions {
		if t.Entries[p].Value > t.Entries[r.Positions[f.base]].Value {
			f.base = i
		}
	}
	return f, nil
}

func (f *probabilityTransform) positions() []int { return f.pos }
func (f *probabilityTransform) dim() int         { return len(f.pos) - 1 }
func (f *probabilityTransform) name() string     { return f.desc }

func (f *probabilityTransform) toInternal(ext []float64) ([]float64, error) {
	base := ext[f.base]
	if base <= 0 {
		return nil, &constraints.NumericalError{Constraint: f.desc, Reason: "base probability is not positive"}
	}
	out := make([]float64, 0, len(ext)-1)
	for i, x := range ext {
		if i != f.base {
			out = append(out, math.Max(x, 0)/base)
		}
	}
	return out, nil
}

func (f *probabilityTransform) fromInternal(in, out []float64) error {
	total := 1.0
	for i, q := range in {
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return &constraints.NumericalError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("internal ratio %d is %g, want a finite non-negative value", i, q),
			}
		}
		total += q
	}
	j := 0
	for i := range out {
		if i == f.base {
			out[i] = 1 / total
			continue
		}
		out[i] = in[j] / total
		j++
	}
	return nil
}

func (f *probabilityTransform) internalBounds() ([]float64, []float64) {
	n := len(f.pos) - 1
	return filled(n, 0), filled(n, math.Inf(1))
}

func (f *probabilityTransform) externalBounds() ([]float64, []float64) {
	return filled(len(f.pos), 0), filled(len(f.pos), 1)
}
