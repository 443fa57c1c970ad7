package opt

import (
	"fmt"
	"math"
)

// DefaultWindow is the half-width, relative to max(1, |start|), used in place
// of an infinite bound.
const DefaultWindow = 10.0

// Box is a finite search region derived from possibly infinite bounds.
type Box struct {
	Lower []float64
	Upper []float64
}

// NewBox replaces every infinite side of [lower, upper] by a window of the
// given half-width around start.
func NewBox(start, lower, upper []float64, window float64) (*Box, error) {
	if len(lower) != len(start) || len(upper) != len(start) {
		return nil, fmt.Errorf("bounds have %d/%d entries for %d parameters", len(lower), len(upper), len(start))
	}
	b := &Box{Lower: make([]float64, len(start)), Upper: make([]float64, len(start))}
	for i, x := range start {
		lo, hi := lower[i], upper[i]
		if lo > hi {
			return nil, fmt.Errorf("parameter %d: lower bound %g exceeds upper bound %g", i, lo, hi)
		}
		w := window * math.Max(1, math.Abs(x))
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			lo, hi = x-w, x+w
		case math.IsInf(lo, -1):
			lo = math.Min(hi, x) - w
		case math.IsInf(hi, 1):
			hi = math.Max(lo, x) + w
		}
		b.Lower[i], b.Upper[i] = lo, hi
	}
	return b, nil
}

// Dim returns the number of dimensions.
func (b *Box) Dim() int {
	return len(b.Lower)
}

// FromUnit maps a point of the unit cube into the box. Coordinates outside
// [0, 1] are clamped.
func (b *Box) FromUnit(u []float64) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		v = math.Max(0, math.Min(1, v))
		x[i] = b.Lower[i] + v*(b.Upper[i]-b.Lower[i])
	}
	return x
}

// ToUnit maps a point of the box onto the unit cube.
func (b *Box) ToUnit(x []float64) []float64 {
	u := make([]float64, len(x))
	for i, v := range x {
		width := b.Upper[i] - b.Lower[i]
		if width == 0 {
			continue
		}
		u[i] = math.Max(0, math.Min(1, (v-b.Lower[i])/width))
	}
	return u
}
