package constraints

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/paramfit/internal/params"
	"github.com/expr-lang/expr"
)

// Wildcard matches any single label component in a loc pattern.
const Wildcard = "*"

// Selection resolves a constraint's location expression to positions in the
// external vector. Exactly one of loc patterns, a query or a custom function
// must be set.
type Selection struct {
	loc   []string
	query string
	fn    func(*params.Table) []int
}

// Loc selects every entry whose label starts with one of the dotted patterns.
// "sd" selects sd.a and sd.b; "sd.*.x" matches any middle component.
func Loc(patterns ...string) Selection {
	return Selection{loc: append([]string{}, patterns...)}
}

// Query selects every entry for which the boolean expression holds. The
// expression sees value, lower, upper, label, name, path and position.
func Query(q string) Selection {
	return Selection{query: q}
}

// Func plugs in an arbitrary selector. Returned positions are sorted into
// table order.
func Func(fn func(*params.Table) []int) Selection {
	return Selection{fn: fn}
}

// NewSelection builds a selection from declared loc patterns and a query,
// enforcing that exactly one of them is present.
func NewSelection(loc []string, query string) (Selection, error) {
	switch {
	case len(loc) > 0 && query != "":
		return Selection{}, &SelectionError{Reason: "both loc and query are given"}
	case len(loc) > 0:
		return Loc(loc...), nil
	case query != "":
		return Query(query), nil
	default:
		return Selection{}, &SelectionError{Reason: "neither loc nor query is given"}
	}
}

// IsZero reports whether no location expression was set.
func (s Selection) IsZero() bool {
	return len(s.loc) == 0 && s.query == "" && s.fn == nil
}

func (s Selection) String() string {
	switch {
	case len(s.loc) > 0:
		return "loc=" + strings.Join(s.loc, ",")
	case s.query != "":
		return "query=" + s.query
	case s.fn != nil:
		return "func"
	default:
		return "<empty>"
	}
}

// Resolve returns the matching positions in table order. It fails with a
// SelectionError when nothing matches and with a ValidationError when an entry
// is selected twice.
func (s Selection) Resolve(t *params.Table) ([]int, error) {
	var (
		positions []int
		err       error
	)
	switch {
	case len(s.loc) > 0:
		positions, err = s.resolveLoc(t)
	case s.query != "":
		positions, err = s.resolveQuery(t)
	case s.fn != nil:
		positions, err = s.resolveFunc(t)
	default:
		return nil, &SelectionError{Reason: "neither loc nor query is given"}
	}
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, &SelectionError{Reason: fmt.Sprintf("%s matches no parameters", s)}
	}
	return positions, nil
}

func (s Selection) resolveLoc(t *params.Table) ([]int, error) {
	patterns := make([]params.Label, len(s.loc))
	for i, p := range s.loc {
		patterns[i] = params.ParseLabel(p)
	}

	var positions []int
	for i, e := range t.Entries {
		matched := 0
		for _, p := range patterns {
			if matchPrefix(p, e.Label) {
				matched++
			}
		}
		if matched > 1 {
			return nil, &ValidationError{
				Field:  "loc",
				Reason: fmt.Sprintf("selects parameter %s more than once", e.Label),
			}
		}
		if matched == 1 {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

func matchPrefix(pattern, label params.Label) bool {
	if len(pattern) > len(label) {
		return false
	}
	for i, c := range pattern {
		if c != Wildcard && c != label[i] {
			return false
		}
	}
	return true
}

func queryEnv(pos int, e params.Entry) map[string]any {
	name := ""
	if len(e.Label) > 0 {
		name = e.Label[0]
	}
	return map[string]any{
		"value":    e.Value,
		"lower":    e.Lower,
		"upper":    e.Upper,
		"label":    e.Label.String(),
		"name":     name,
		"path":     []string(e.Label),
		"position": pos,
	}
}

func (s Selection) resolveQuery(t *params.Table) ([]int, error) {
	program, err := expr.Compile(s.query, expr.Env(queryEnv(0, params.NewEntry("", 0))), expr.AsBool())
	if err != nil {
		return nil, &SelectionError{Reason: fmt.Sprintf("invalid query %q: %v", s.query, err)}
	}

	var positions []int
	for i, e := range t.Entries {
		out, err := expr.Run(program, queryEnv(i, e))
		if err != nil {
			return nil, &SelectionError{Reason: fmt.Sprintf("query %q failed on %s: %v", s.query, e.Label, err)}
		}
		if out.(bool) {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

func (s Selection) resolveFunc(t *params.Table) ([]int, error) {
	positions := append([]int{}, s.fn(t)...)
	sort.Ints(positions)
	for i, p := range positions {
		if p < 0 || p >= t.Len() {
			return nil, &SelectionError{Reason: fmt.Sprintf("position %d out of range [0, %d)", p, t.Len())}
		}
		if i > 0 && positions[i-1] == p {
			return nil, &ValidationError{
				Field:  "selection",
				Reason: fmt.Sprintf("selects parameter %s more than once", t.Entries[p].Label),
			}
		}
	}
	return positions, nil
}
