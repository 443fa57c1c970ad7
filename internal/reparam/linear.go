package reparam

import (
	"fmt"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// linearTransform handles weights·x = value and lower <= weights·x <= upper.
//
// One entry with a non-zero weight and no declared bounds is chosen as the
// pivot. For an equality the pivot is dropped from the internal vector and
// recomputed from the others. For an inequality the pivot's internal slot
// holds the weighted sum itself, so the box [lower, upper] on that slot
// enforces the constraint without changing the dimension.
type linearTransform struct {
	pos            []int
	weights        []float64
	pivot          int
	equality       bool
	target         float64 // pinned weighted sum when equality
	sumLo, sumHi   float64 // admissible weighted sums
	lowers, uppers []float64
	desc           string
}

func newLinear(t *params.Table, r constraints.Resolved) (*linearTransform, error) {
	c := r.Constraint.(constraints.Linear)
	w, err := c.Weights.Resolve(len(r.Positions))
	if err != nil {
		return nil, err
	}

	f := &linearTransform{
		pos:     r.Positions,
		weights: w,
		pivot:   -1,
		sumLo:   math.Inf(-1),
		sumHi:   math.Inf(1),
		lowers:  gather(t.Lowers(), r.Positions),
		uppers:  gather(t.Uppers(), r.Positions),
		desc:    r.Describe(),
	}
	switch {
	case c.Value != nil:
		f.equality = true
		f.target = *c.Value
		f.sumLo, f.sumHi = *c.Value, *c.Value
	default:
		if c.Lower != nil {
			f.sumLo = *c.Lower
		}
		if c.Upper != nil {
			f.sumHi = *c.Upper
		}
	}

	for i := range w {
		if w[i] != 0 && math.IsInf(f.lowers[i], -1) && math.IsInf(f.uppers[i], 1) {
			f.pivot = i
			break
		}
	}
	if f.pivot < 0 {
		return nil, &constraints.ValidationError{
			Field:  f.desc,
			Reason: "needs at least one unbounded parameter with a non-zero weight",
		}
	}

	ext := gather(t.Values(), r.Positions)
	sum := f.weightedSum(ext)
	scale := 1.0
	for i, x := range ext {
		scale += math.Abs(w[i] * x)
	}
	tol := feasTol * scale
	if sum < f.sumLo-tol || sum > f.sumHi+tol {
		return nil, &constraints.InfeasibleStartError{
			Constraint: f.desc,
			Reason:     fmt.Sprintf("weighted sum %g outside [%g, %g]", sum, f.sumLo, f.sumHi),
		}
	}
	return f, nil
}

func (f *linearTransform) weightedSum(x []float64) float64 {
	s := 0.0
	for i, v := range x {
		s += f.weights[i] * v
	}
	return s
}

func (f *linearTransform) positions() []int { return f.pos }
func (f *linearTransform) name() string     { return f.desc }

func (f *linearTransform) dim() int {
	if f.equality {
		return len(f.pos) - 1
	}
	return len(f.pos)
}

func (f *linearTransform) toInternal(ext []float64) ([]float64, error) {
	out := make([]float64, 0, len(ext))
	for i, x := range ext {
		switch {
		case i != f.pivot:
			out = append(out, x)
		case !f.equality:
			s := f.weightedSum(ext)
			// pull sums that only miss the box through rounding back inside
			s = math.Max(f.sumLo, math.Min(f.sumHi, s))
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *linearTransform) fromInternal(in, out []float64) error {
	total := f.target
	rest := 0.0
	k := 0
	for i := range out {
		if i == f.pivot {
			if !f.equality {
				total = in[k]
				k++
			}
			continue
		}
		out[i] = in[k]
		rest += f.weights[i] * in[k]
		k++
	}
	out[f.pivot] = (total - rest) / f.weights[f.pivot]
	return nil
}

func (f *linearTransform) internalBounds() ([]float64, []float64) {
	var lower, upper []float64
	for i := range f.pos {
		switch {
		case i != f.pivot:
			lower = append(lower, f.lowers[i])
			upper = append(upper, f.uppers[i])
		case !f.equality:
			lower = append(lower, f.sumLo)
			upper = append(upper, f.sumHi)
		}
	}
	return lower, upper
}

// externalBounds projects the admissible sums and the other entries' bounds
// onto the pivot with interval arithmetic.
func (f *linearTransform) externalBounds() ([]float64, []float64) {
	lower := append([]float64{}, f.lowers...)
	upper := append([]float64{}, f.uppers...)

	restLo, restHi := 0.0, 0.0
	for i, w := range f.weights {
		if i == f.pivot || w == 0 {
			continue
		}
		if w > 0 {
			restLo += w * f.lowers[i]
			restHi += w * f.uppers[i]
		} else {
			restLo += w * f.uppers[i]
			restHi += w * f.lowers[i]
		}
	}

	lo := f.sumLo - restHi
	hi := f.sumHi - restLo
	wp := f.weights[f.pivot]
	if wp > 0 {
		lower[f.pivot], upper[f.pivot] = lo/wp, hi/wp
	} else {
		lower[f.pivot], upper[f.pivot] = hi/wp, lo/wp
	}
	return lower, upper
}
