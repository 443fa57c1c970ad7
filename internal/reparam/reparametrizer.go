// Package reparam turns a constrained parameter table into the flat, boxed
// internal vector an unconstrained optimizer searches over, and back.
//
// Build resolves killers, selects and checks every constraint, and composes
// one transform per constraint with the identity on unconstrained entries.
// The resulting Reparametrizer is immutable: ToInternal and FromInternal are
// pure and may be called from many goroutines at once.
package reparam

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// Reparametrizer maps between the external parameter table and the internal
// vector of one optimization run.
type Reparametrizer struct {
	table      *params.Table
	transforms []transform
	offsets    []int // internal offset of each transform
	dim        int

	start        []float64
	lower, upper []float64
	extLower     []float64
	extUpper     []float64

	resolved []constraints.Resolved
	killed   []constraints.ID
}

// Build validates the table and the declared items and constructs the maps.
// All configuration problems surface here as SelectionError, ConflictError,
// ValidationError or InfeasibleStartError.
func Build(t *params.Table, items []constraints.Item) (*Reparametrizer, error) {
	if t == nil || t.Len() == 0 {
		return nil, &constraints.ValidationError{Field: "params", Reason: "cannot be empty"}
	}
	if err := t.Validate(); err != nil {
		return nil, &constraints.ValidationError{Field: "params", Reason: err.Error()}
	}
	table := params.NewTable(t.Entries...)

	kept, killed := constraints.ResolveKillers(items)
	resolved, err := constraints.Resolve(table, kept)
	if err != nil {
		return nil, err
	}

	byFirst := make(map[int]transform, len(resolved))
	for _, r := range resolved {
		tr, err := newTransform(table, r)
		if err != nil {
			return nil, err
		}
		byFirst[r.Positions[0]] = tr
		slog.Debug("Transform built", "constraint", tr.name(), "positions", len(tr.positions()), "internal_dim", tr.dim())
	}

	covered := make([]bool, table.Len())
	for _, tr := range byFirst {
		for _, p := range tr.positions() {
			covered[p] = true
		}
	}

	rp := &Reparametrizer{table: table, resolved: resolved, killed: killed}
	for p := 0; p < table.Len(); p++ {
		if tr, ok := byFirst[p]; ok {
			rp.add(tr)
		} else if !covered[p] {
			rp.add(newIdentity(table, p))
		}
	}

	if err := rp.layout(); err != nil {
		return nil, err
	}

	slog.Info("Reparametrization built",
		"external_dim", table.Len(),
		"internal_dim", rp.dim,
		"constraints", len(resolved),
		"killed", len(killed),
	)
	return rp, nil
}

func newTransform(t *params.Table, r constraints.Resolved) (transform, error) {
	switch r.Kind {
	case constraints.KindFixed:
		return newFixed(t, r)
	case constraints.KindEquality:
		return newEquality(t, r)
	case constraints.KindIncreasing:
		return newMonotone(t, r, 1)
	case constraints.KindDecreasing:
		return newMonotone(t, r, -1)
	case constraints.KindProbability:
		return newProbability(t, r)
	case constraints.KindCovariance, constraints.KindSDCorr:
		return newCovariance(t, r)
	case constraints.KindLinear:
		return newLinear(t, r)
	}
	return nil, &constraints.ValidationError{Field: "type", Reason: fmt.Sprintf("no transform for %q", r.Kind)}
}

func (rp *Reparametrizer) add(tr transform) {
	rp.transforms = append(rp.transforms, tr)
	rp.offsets = append(rp.offsets, rp.dim)
	rp.dim += tr.dim()
}

// layout computes the internal start vector and both sets of bounds, and
// checks that the start point lies inside them.
func (rp *Reparametrizer) layout() error {
	n := rp.table.Len()
	values := rp.table.Values()
	declaredLo := rp.table.Lowers()
	declaredHi := rp.table.Uppers()

	rp.start = make([]float64, 0, rp.dim)
	rp.lower = make([]float64, 0, rp.dim)
	rp.upper = make([]float64, 0, rp.dim)
	rp.extLower = make([]float64, n)
	rp.extUpper = make([]float64, n)

	for _, tr := range rp.transforms {
		pos := tr.positions()
		in, err := tr.toInternal(gather(values, pos))
		if err != nil {
			return &constraints.InfeasibleStartError{Constraint: tr.name(), Reason: err.Error()}
		}
		lo, hi := tr.internalBounds()
		for i, v := range in {
			if v < lo[i]-feasTol*(1+math.Abs(lo[i])) || v > hi[i]+feasTol*(1+math.Abs(hi[i])) {
				return &constraints.InfeasibleStartError{
					Constraint: tr.name(),
					Reason:     fmt.Sprintf("internal start value %g outside [%g, %g]", v, lo[i], hi[i]),
				}
			}
			in[i] = math.Max(lo[i], math.Min(hi[i], v))
		}
		rp.start = append(rp.start, in...)
		rp.lower = append(rp.lower, lo...)
		rp.upper = append(rp.upper, hi...)

		elo, ehi := tr.externalBounds()
		for i, p := range pos {
			rp.extLower[p] = math.Max(elo[i], declaredLo[p])
			rp.extUpper[p] = math.Min(ehi[i], declaredHi[p])
		}
	}
	return nil
}

// Dim returns the length of the internal vector.
func (rp *Reparametrizer) Dim() int {
	return rp.dim
}

// ExternalDim returns the length of the external vector.
func (rp *Reparametrizer) ExternalDim() int {
	return rp.table.Len()
}

// InternalStart returns the internal vector of the start table.
func (rp *Reparametrizer) InternalStart() []float64 {
	return append([]float64{}, rp.start...)
}

// InternalLower returns the internal lower bounds.
func (rp *Reparametrizer) InternalLower() []float64 {
	return append([]float64{}, rp.lower...)
}

// InternalUpper returns the internal upper bounds.
func (rp *Reparametrizer) InternalUpper() []float64 {
	return append([]float64{}, rp.upper...)
}

// ExternalLower returns the adjusted external lower bounds. They are never
// looser than the declared ones.
func (rp *Reparametrizer) ExternalLower() []float64 {
	return append([]float64{}, rp.extLower...)
}

// ExternalUpper returns the adjusted external upper bounds.
func (rp *Reparametrizer) ExternalUpper() []float64 {
	return append([]float64{}, rp.extUpper...)
}

// Killed returns the kill ids that were applied, matched or not.
func (rp *Reparametrizer) Killed() []constraints.ID {
	return append([]constraints.ID{}, rp.killed...)
}

// Constraints returns the resolved constraint set.
func (rp *Reparametrizer) Constraints() []constraints.Resolved {
	return append([]constraints.Resolved{}, rp.resolved...)
}

// ToInternal maps an external vector that satisfies all constraints to the
// internal vector.
func (rp *Reparametrizer) ToInternal(external []float64) ([]float64, error) {
	if len(external) != rp.table.Len() {
		return nil, &constraints.ValidationError{
			Field:  "external",
			Reason: fmt.Sprintf("has %d entries, want %d", len(external), rp.table.Len()),
		}
	}
	out := make([]float64, 0, rp.dim)
	for _, tr := range rp.transforms {
		in, err := tr.toInternal(gather(external, tr.positions()))
		if err != nil {
			return nil, err
		}
		out = append(out, in...)
	}
	return out, nil
}

// FromInternal maps an internal vector to the external vector in table order.
// It fails with a NumericalError only for internal vectors outside the
// internal bounds.
func (rp *Reparametrizer) FromInternal(internal []float64) ([]float64, error) {
	if len(internal) != rp.dim {
		return nil, &constraints.ValidationError{
			Field:  "internal",
			Reason: fmt.Sprintf("has %d entries, want %d", len(internal), rp.dim),
		}
	}
	external := make([]float64, rp.table.Len())
	var buf []float64
	for i, tr := range rp.transforms {
		pos := tr.positions()
		if cap(buf) < len(pos) {
			buf = make([]float64, len(pos))
		}
		sub := buf[:len(pos)]
		off := rp.offsets[i]
		if err := tr.fromInternal(internal[off:off+tr.dim()], sub); err != nil {
			return nil, err
		}
		for j, p := range pos {
			external[p] = sub[j]
		}
	}
	return external, nil
}

// Table maps an internal vector to a parameter table with the original labels
// and declared bounds.
func (rp *Reparametrizer) Table(internal []float64) (*params.Table, error) {
	values, err := rp.FromInternal(internal)
	if err != nil {
		return nil, err
	}
	return rp.table.WithValues(values), nil
}

// Start returns the external start table, with fixed values applied.
func (rp *Reparametrizer) Start() *params.Table {
	t, err := rp.Table(rp.start)
	if err != nil {
		// the start vector is checked to lie inside the internal bounds
		panic(fmt.Sprintf("reparam: start vector does not map back: %v", err))
	}
	return t
}

// Wrap turns a criterion over external values into one over internal values.
func (rp *Reparametrizer) Wrap(criterion func([]float64) (float64, error)) func([]float64) (float64, error) {
	return func(internal []float64) (float64, error) {
		external, err := rp.FromInternal(internal)
		if err != nil {
			return 0, err
		}
		return criterion(external)
	}
}
