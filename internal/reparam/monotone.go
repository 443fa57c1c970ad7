package reparam

import (
	"fmt"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// monotoneTransform maps an ordered group to its first value followed by the
// successive differences. sign is +1 for increasing and -1 for decreasing
// groups; every difference d satisfies sign*d >= 0.
type monotoneTransform struct {
	pos          []int
	sign         float64
	lower, upper float64 // bounds of the anchor (first) entry
	desc         string
}

func newMonotone(t *params.Table, r constraints.Resolved, sign float64) (*monotoneTransform, error) {
	anchor := t.Entries[r.Positions[0]]
	f := &monotoneTransform{pos: r.Positions, sign: sign, lower: anchor.Lower, upper: anchor.Upper, desc: r.Describe()}

	for i, p := range r.Positions {
		e := t.Entries[p]
		if i > 0 && (!math.IsInf(e.Lower, -1) || !math.IsInf(e.Upper, 1)) {
			return nil, &constraints.ConflictError{
				First:    f.desc,
				Position: p,
				Label:    e.Label.String(),
				Reason:   "only the first entry of an ordered group may carry bounds",
			}
		}
		if i == 0 {
			continue
		}
		prev := t.Entries[r.Positions[i-1]]
		if sign*(e.Value-prev.Value) < -feasTol*(1+math.Abs(prev.Value)) {
			return nil, &constraints.InfeasibleStartError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("%s = %g and %s = %g violate the ordering", prev.Label, prev.Value, e.Label, e.Value),
			}
		}
	}
	return f, nil
}

func (f *monotoneTransform) positions() []int { return f.pos }
func (f *monotoneTransform) dim() int         { return len(f.pos) }
func (f *monotoneTransform) name() string     { return f.desc }

func (f *monotoneTransform) toInternal(ext []float64) ([]float64, error) {
	out := make([]float64, len(ext))
	out[0] = ext[0]
	for i := 1; i < len(ext); i++ {
		d := ext[i] - ext[i-1]
		if f.sign*d < 0 {
			if f.sign*d < -feasTol*(1+math.Abs(ext[i-1])) {
				return nil, &constraints.NumericalError{
					Constraint: f.desc,
					Reason:     fmt.Sprintf("entries %d and %d violate the ordering", i-1, i),
				}
			}
			// rounding noise
			d = 0
		}
		out[i] = d
	}
	return out, nil
}

func (f *monotoneTransform) fromInternal(in, out []float64) error {
	acc := in[0]
	out[0] = acc
	for i := 1; i < len(in); i++ {
		acc += in[i]
		out[i] = acc
	}
	return nil
}

func (f *monotoneTransform) internalBounds() ([]float64, []float64) {
	n := len(f.pos)
	lower := make([]float64, n)
	upper := make([]float64, n)
	lower[0], upper[0] = f.lower, f.upper
	for i := 1; i < n; i++ {
		if f.sign > 0 {
			lower[i], upper[i] = 0, math.Inf(1)
		} else {
			lower[i], upper[i] = math.Inf(-1), 0
		}
	}
	return lower, upper
}

func (f *monotoneTransform) externalBounds() ([]float64, []float64) {
	n := len(f.pos)
	lower := make([]float64, n)
	upper := make([]float64, n)
	lower[0], upper[0] = f.lower, f.upper
	for i := 1; i < n; i++ {
		if f.sign > 0 {
			lower[i], upper[i] = f.lower, math.Inf(1)
		} else {
			lower[i], upper[i] = math.Inf(-1), f.upper
		}
	}
	return lower, upper
}
