package reparam

import (
	"fmt"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// feasTol is the absolute-plus-relative tolerance used when checking that a
// start vector satisfies its constraints.
const feasTol = 1e-9

// transform maps the external entries at its positions to a block of the
// internal vector and back. All slices passed in and out are aligned with
// positions() (external side) or have length dim() (internal side).
// Implementations are immutable after construction.
type transform interface {
	positions() []int
	dim() int
	name() string

	// toInternal maps a feasible external sub-vector to internal values.
	toInternal(ext []float64) ([]float64, error)

	// fromInternal writes the external sub-vector for internal values in into
	// out. It may only fail for internal values outside the internal bounds.
	fromInternal(in, out []float64) error

	// internalBounds returns the box the optimizer searches over.
	internalBounds() (lower, upper []float64)

	// externalBounds returns the bounds implied for the external entries.
	externalBounds() (lower, upper []float64)
}

func gather(x []float64, pos []int) []float64 {
	out := make([]float64, len(pos))
	for i, p := range pos {
		out[i] = x[p]
	}
	return out
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= feasTol*(1+math.Max(math.Abs(a), math.Abs(b)))
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// identityTransform covers one unconstrained entry.
type identityTransform struct {
	pos          int
	label        string
	lower, upper float64
}

func newIdentity(t *params.Table, p int) *identityTransform {
	e := t.Entries[p]
	return &identityTransform{pos: p, label: e.Label.String(), lower: e.Lower, upper: e.Upper}
}

func (f *identityTransform) positions() []int { return []int{f.pos} }
func (f *identityTransform) dim() int         { return 1 }
func (f *identityTransform) name() string     { return "parameter " + f.label }

func (f *identityTransform) toInternal(ext []float64) ([]float64, error) {
	return []float64{ext[0]}, nil
}

func (f *identityTransform) fromInternal(in, out []float64) error {
	out[0] = in[0]
	return nil
}

func (f *identityTransform) internalBounds() ([]float64, []float64) {
	return []float64{f.lower}, []float64{f.upper}
}

func (f *identityTransform) externalBounds() ([]float64, []float64) {
	return []float64{f.lower}, []float64{f.upper}
}

// fixedTransform removes its entries from the internal vector.
type fixedTransform struct {
	pos    []int
	values []float64
	desc   string
}

func newFixed(t *params.Table, r constraints.Resolved) (*fixedTransform, error) {
	c := r.Constraint.(constraints.Fixed)
	f := &fixedTransform{pos: r.Positions, values: make([]float64, len(r.Positions)), desc: r.Describe()}
	for i, p := range r.Positions {
		e := t.Entries[p]
		v := e.Value
		if c.Value != nil {
			v = *c.Value
		}
		if v < e.Lower || v > e.Upper {
			return nil, &constraints.InfeasibleStartError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("fixed value %g of %s is outside its bounds [%g, %g]", v, e.Label, e.Lower, e.Upper),
			}
		}
		f.values[i] = v
	}
	return f, nil
}

func (f *fixedTransform) positions() []int { return f.pos }
func (f *fixedTransform) dim() int         { return 0 }
func (f *fixedTransform) name() string     { return f.desc }

func (f *fixedTransform) toInternal(ext []float64) ([]float64, error) {
	return nil, nil
}

func (f *fixedTransform) fromInternal(in, out []float64) error {
	copy(out, f.values)
	return nil
}

func (f *fixedTransform) internalBounds() ([]float64, []float64) {
	return nil, nil
}

func (f *fixedTransform) externalBounds() ([]float64, []float64) {
	return append([]float64{}, f.values...), append([]float64{}, f.values...)
}

// equalityTransform keeps one representative value for a merged equality group.
type equalityTransform struct {
	pos          []int
	lower, upper float64
	desc         string
}

func newEquality(t *params.Table, r constraints.Resolved) (*equalityTransform, error) {
	f := &equalityTransform{pos: r.Positions, lower: math.Inf(-1), upper: math.Inf(1), desc: r.Describe()}
	first := t.Entries[r.Positions[0]]
	for _, p := range r.Positions {
		e := t.Entries[p]
		f.lower = math.Max(f.lower, e.Lower)
		f.upper = math.Min(f.upper, e.Upper)
		if !approxEqual(e.Value, first.Value) {
			return nil, &constraints.InfeasibleStartError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("%s = %g differs from %s = %g", e.Label, e.Value, first.Label, first.Value),
			}
		}
	}
	if f.lower > f.upper {
		return nil, &constraints.InfeasibleStartError{
			Constraint: f.desc,
			Reason:     fmt.Sprintf("member bounds do not intersect (lower %g > upper %g)", f.lower, f.upper),
		}
	}
	return f, nil
}

func (f *equalityTransform) positions() []int { return f.pos }
func (f *equalityTransform) dim() int         { return 1 }
func (f *equalityTransform) name() string     { return f.desc }

func (f *equalityTransform) toInternal(ext []float64) ([]float64, error) {
	return []float64{ext[0]}, nil
}

func (f *equalityTransform) fromInternal(in, out []float64) error {
	for i := range out {
		out[i] = in[0]
	}
	return nil
}

func (f *equalityTransform) internalBounds() ([]float64, []float64) {
	return []float64{f.lower}, []float64{f.upper}
}

func (f *equalityTransform) externalBounds() ([]float64, []float64) {
	return filled(len(f.pos), f.lower), filled(len(f.pos), f.upper)
}
