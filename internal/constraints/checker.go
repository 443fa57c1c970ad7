package constraints

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cwbudde/paramfit/internal/params"
)

// Resolved is a constraint after selection and compatibility checking.
//
// Equality and pairwise_equality constraints are merged: every resolved
// equality group has Kind KindEquality, its member positions, and the
// declared constraints it was merged from. All other kinds map one to one.
type Resolved struct {
	Kind       Kind
	Positions  []int
	Constraint Constraint   // nil for merged equality groups
	Sources    []Constraint // declared constraints behind an equality group
}

// Describe renders the resolved constraint for messages.
func (r Resolved) Describe() string {
	if r.Constraint != nil {
		return Describe(r.Constraint)
	}
	if len(r.Sources) == 1 {
		return Describe(r.Sources[0])
	}
	return fmt.Sprintf("equality group of %d constraints", len(r.Sources))
}

type selected struct {
	c      Constraint
	groups [][]int // one group for every kind except pairwise_equality
}

func (s selected) positions() []int {
	var out []int
	for _, g := range s.groups {
		out = append(out, g...)
	}
	return out
}

// Resolve selects the positions of every constraint, validates kind-specific
// fields and rejects incompatible overlaps. Killers must already be resolved.
func Resolve(t *params.Table, cs []Constraint) ([]Resolved, error) {
	if err := checkDuplicateIDs(cs); err != nil {
		return nil, err
	}

	sel := make([]selected, 0, len(cs))
	for _, c := range cs {
		c = normalize(c)
		if err := validateFields(c); err != nil {
			return nil, fmt.Errorf("%s: %w", Describe(c), err)
		}
		groups, err := selectGroups(t, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Describe(c), err)
		}
		if err := validateSize(c, groups); err != nil {
			return nil, fmt.Errorf("%s: %w", Describe(c), err)
		}
		sel = append(sel, selected{c: c, groups: groups})
	}

	if err := checkConflicts(t, sel); err != nil {
		return nil, err
	}

	resolved := mergeEqualities(sel)
	for _, s := range sel {
		if s.c.Kind().IsEqualityLike() {
			continue
		}
		resolved = append(resolved, Resolved{
			Kind:       s.c.Kind(),
			Positions:  s.groups[0],
			Constraint: s.c,
		})
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Positions[0] < resolved[j].Positions[0]
	})

	slog.Debug("Constraints resolved", "declared", len(cs), "resolved", len(resolved))
	return resolved, nil
}

func checkDuplicateIDs(cs []Constraint) error {
	seen := make(map[ID]bool, len(cs))
	for _, c := range cs {
		id := c.header().ID
		if id == "" {
			continue
		}
		if seen[id] {
			return &ValidationError{Field: "id", Reason: fmt.Sprintf("%q is declared more than once", id)}
		}
		seen[id] = true
	}
	return nil
}

// normalize dereferences pointer variants so the rest of the package only
// deals with values.
func normalize(c Constraint) Constraint {
	switch v := c.(type) {
	case *Fixed:
		return *v
	case *Equality:
		return *v
	case *PairwiseEquality:
		return *v
	case *Increasing:
		return *v
	case *Decreasing:
		return *v
	case *Probability:
		return *v
	case *Covariance:
		return *v
	case *SDCorr:
		return *v
	case *Linear:
		return *v
	}
	return c
}

func validateFields(c Constraint) error {
	switch v := c.(type) {
	case Covariance:
		return validateBoundsDistance(v.BoundsDistance)
	case SDCorr:
		return validateBoundsDistance(v.BoundsDistance)
	case Fixed:
		if v.Value != nil && (math.IsNaN(*v.Value) || math.IsInf(*v.Value, 0)) {
			return &ValidationError{Field: "value", Reason: "must be finite"}
		}
	case Linear:
		if v.Weights.IsZero() {
			return &ValidationError{Field: "weights", Reason: "is required for linear constraints"}
		}
		if v.Value == nil && v.Lower == nil && v.Upper == nil {
			return &ValidationError{Field: "value/lower/upper", Reason: "linear constraints need value or at least one of lower and upper"}
		}
		if v.Value != nil && (v.Lower != nil || v.Upper != nil) {
			return &ValidationError{Field: "value", Reason: "cannot be combined with lower or upper"}
		}
		if v.Lower != nil && v.Upper != nil && *v.Lower > *v.Upper {
			return &ValidationError{Field: "lower", Reason: fmt.Sprintf("%g exceeds upper %g", *v.Lower, *v.Upper)}
		}
	case PairwiseEquality:
		if len(v.Selects) < 2 {
			return &ValidationError{Field: "locs", Reason: "pairwise_equality needs at least two selections"}
		}
	}
	return nil
}

func validateBoundsDistance(d *float64) error {
	if d != nil && (*d < 0 || math.IsNaN(*d) || math.IsInf(*d, 0)) {
		return &ValidationError{Field: "bounds_distance", Reason: "must be a finite non-negative number"}
	}
	return nil
}

func selectGroups(t *params.Table, c Constraint) ([][]int, error) {
	pw, ok := c.(PairwiseEquality)
	if !ok {
		positions, err := c.header().Select.Resolve(t)
		if err != nil {
			return nil, err
		}
		return [][]int{positions}, nil
	}

	lists := make([][]int, len(pw.Selects))
	for i, s := range pw.Selects {
		positions, err := s.Resolve(t)
		if err != nil {
			return nil, err
		}
		if i > 0 && len(positions) != len(lists[0]) {
			return nil, &ValidationError{
				Field:  "locs",
				Reason: fmt.Sprintf("selection %d has %d parameters, selection 0 has %d", i, len(positions), len(lists[0])),
			}
		}
		lists[i] = positions
	}

	seen := make(map[int]bool)
	groups := make([][]int, len(lists[0]))
	for j := range groups {
		for i := range lists {
			p := lists[i][j]
			if seen[p] {
				return nil, &ValidationError{
					Field:  "locs",
					Reason: fmt.Sprintf("parameter %s is selected more than once", t.Entries[p].Label),
				}
			}
			seen[p] = true
			groups[j] = append(groups[j], p)
		}
		sort.Ints(groups[j])
	}
	return groups, nil
}

func validateSize(c Constraint, groups [][]int) error {
	n := len(groups[0])
	switch v := c.(type) {
	case Covariance, SDCorr:
		if _, ok := TriangularDimension(n); !ok {
			return &ValidationError{Field: "loc", Reason: fmt.Sprintf("selects %d parameters, which is not a triangular number", n)}
		}
	case Linear:
		w, err := v.Weights.Resolve(n)
		if err != nil {
			return err
		}
		for _, x := range w {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return &ValidationError{Field: "weights", Reason: "must be finite"}
			}
			if x != 0 {
				return nil
			}
		}
		return &ValidationError{Field: "weights", Reason: "cannot all be zero"}
	}
	return nil
}

// TriangularDimension returns k such that n == k(k+1)/2.
func TriangularDimension(n int) (int, bool) {
	k := int(math.Round((math.Sqrt(float64(8*n+1)) - 1) / 2))
	return k, k > 0 && k*(k+1)/2 == n
}

func checkConflicts(t *params.Table, sel []selected) error {
	owner := make(map[int]int, t.Len())
	for i, s := range sel {
		kind := s.c.Kind()
		for _, p := range s.positions() {
			if kind.IsCovarianceLike() {
				e := t.Entries[p]
				if !math.IsInf(e.Lower, -1) || !math.IsInf(e.Upper, 1) {
					return &ConflictError{
						First:    Describe(s.c),
						Position: p,
						Label:    e.Label.String(),
						Reason:   "declared bounds cannot narrow covariance parameters",
					}
				}
			}

			j, taken := owner[p]
			if !taken {
				owner[p] = i
				continue
			}
			other := sel[j].c
			if kind.IsEqualityLike() && other.Kind().IsEqualityLike() {
				continue
			}
			reason := "positions may belong to at most one constraint"
			if kind.IsCovarianceLike() || other.Kind().IsCovarianceLike() {
				reason = "covariance parameters cannot be part of any other constraint"
			}
			return &ConflictError{
				First:    Describe(other),
				Second:   Describe(s.c),
				Position: p,
				Label:    t.Entries[p].Label.String(),
				Reason:   reason,
			}
		}
	}
	return nil
}

// mergeEqualities unions overlapping equality groups so that every position
// ends up in exactly one group.
func mergeEqualities(sel []selected) []Resolved {
	parent := make(map[int]int)
	var find func(int) int
	find = func(p int) int {
		for parent[p] != p {
			parent[p] = parent[parent[p]]
			p = parent[p]
		}
		return p
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	groupSources := make(map[int][]int) // first position of a declared group -> constraint indices
	for i, s := range sel {
		if !s.c.Kind().IsEqualityLike() {
			continue
		}
		for _, g := range s.groups {
			for _, p := range g {
				if _, ok := parent[p]; !ok {
					parent[p] = p
				}
			}
			for _, p := range g[1:] {
				union(g[0], p)
			}
			groupSources[g[0]] = append(groupSources[g[0]], i)
		}
	}

	members := make(map[int][]int)
	for p := range parent {
		root := find(p)
		members[root] = append(members[root], p)
	}

	sources := make(map[int]map[int]bool)
	for first, idx := range groupSources {
		root := find(first)
		if sources[root] == nil {
			sources[root] = make(map[int]bool)
		}
		for _, i := range idx {
			sources[root][i] = true
		}
	}

	out := make([]Resolved, 0, len(members))
	for root, ps := range members {
		sort.Ints(ps)
		var srcIdx []int
		for i := range sources[root] {
			srcIdx = append(srcIdx, i)
		}
		sort.Ints(srcIdx)
		srcs := make([]Constraint, len(srcIdx))
		for k, i := range srcIdx {
			srcs[k] = sel[i].c
		}
		out = append(out, Resolved{Kind: KindEquality, Positions: ps, Sources: srcs})
	}
	return out
}
