package reparam

import (
	"fmt"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

// StartHelpers splits t into the entries a user may choose start values for
// and the entries pinned by fixed constraints or by being a non-leading member
// of an equality group. Both tables keep table order. Fixed entries carry
// their fixed value.
//
// Editing the free table and passing both halves to FromStartHelpers yields a
// start table that satisfies every fixed and equality constraint.
func StartHelpers(t *params.Table, items []constraints.Item) (free, fixed *params.Table, err error) {
	resolved, err := resolveOnly(t, items)
	if err != nil {
		return nil, nil, err
	}

	pinned := make(map[int]float64)
	for _, r := range resolved {
		switch r.Kind {
		case constraints.KindFixed:
			c := r.Constraint.(constraints.Fixed)
			for _, p := range r.Positions {
				v := t.Entries[p].Value
				if c.Value != nil {
					v = *c.Value
				}
				pinned[p] = v
			}
		case constraints.KindEquality:
			lead := t.Entries[r.Positions[0]].Value
			for _, p := range r.Positions[1:] {
				pinned[p] = lead
			}
		}
	}

	free, fixed = &params.Table{}, &params.Table{}
	for i, e := range t.Entries {
		if v, ok := pinned[i]; ok {
			e.Value = v
			fixed.Entries = append(fixed.Entries, e)
			continue
		}
		free.Entries = append(free.Entries, e)
	}
	return free, fixed, nil
}

// FromStartHelpers reassembles a full table in the order given by labels and
// broadcasts the leading value of every equality group to its members.
func FromStartHelpers(free, fixed *params.Table, labels []params.Label, items []constraints.Item) (*params.Table, error) {
	byLabel := make(map[string]params.Entry, free.Len()+fixed.Len())
	for _, e := range append(append([]params.Entry{}, free.Entries...), fixed.Entries...) {
		byLabel[e.Label.String()] = e
	}

	t := &params.Table{Entries: make([]params.Entry, len(labels))}
	for i, l := range labels {
		e, ok := byLabel[l.String()]
		if !ok {
			return nil, &constraints.ValidationError{Field: "params", Reason: fmt.Sprintf("no entry for label %s", l)}
		}
		t.Entries[i] = e
	}

	resolved, err := resolveOnly(t, items)
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		if r.Kind != constraints.KindEquality {
			continue
		}
		lead := t.Entries[r.Positions[0]].Value
		for _, p := range r.Positions[1:] {
			t.Entries[p].Value = lead
		}
	}
	return t, nil
}

func resolveOnly(t *params.Table, items []constraints.Item) ([]constraints.Resolved, error) {
	if err := t.Validate(); err != nil {
		return nil, &constraints.ValidationError{Field: "params", Reason: err.Error()}
	}
	kept, _ := constraints.ResolveKillers(items)
	return constraints.Resolve(t, kept)
}
