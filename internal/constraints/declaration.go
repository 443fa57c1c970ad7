package constraints

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Declaration is the declarative schema of one constraint list entry as it
// appears in YAML or JSON problem files. Decode turns declarations into typed
// items.
type Declaration struct {
	Type           string       `yaml:"type,omitempty"`
	Loc            StringList   `yaml:"loc,omitempty"`
	Query          string       `yaml:"query,omitempty"`
	Locs           []StringList `yaml:"locs,omitempty"`
	Queries        []string     `yaml:"queries,omitempty"`
	ID             ID           `yaml:"id,omitempty"`
	Kill           *ID          `yaml:"kill,omitempty"`
	Value          *float64     `yaml:"value,omitempty"`
	BoundsDistance *float64     `yaml:"bounds_distance,omitempty"`
	Weights        *Weights     `yaml:"weights,omitempty"`
	Lower          *float64     `yaml:"lower,omitempty"`
	Upper          *float64     `yaml:"upper,omitempty"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*s = StringList{n.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
	}
}

// UnmarshalYAML accepts integer and string ids alike.
func (id *ID) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a scalar", n.Line)
	}
	*id = ID(n.Value)
	return nil
}

func (w *Weights) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		*w = ScalarWeights(v)
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := n.Decode(&vs); err != nil {
			return err
		}
		*w = VectorWeights(vs...)
		return nil
	default:
		return fmt.Errorf("line %d: weights must be a number or a list of numbers", n.Line)
	}
}

// DecodeYAML parses a YAML or JSON constraint list into items.
func DecodeYAML(data []byte) ([]Item, error) {
	var decls []Declaration
	if err := yaml.Unmarshal(data, &decls); err != nil {
		return nil, &ValidationError{Field: "constraints", Reason: err.Error()}
	}
	return Decode(decls)
}

// Decode converts declarations into typed items. It only checks the schema;
// kind-specific semantics are validated when the constraints are resolved.
func Decode(decls []Declaration) ([]Item, error) {
	items := make([]Item, 0, len(decls))
	for i, d := range decls {
		item, err := d.decode()
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d Declaration) decode() (Item, error) {
	if d.Kill != nil {
		return d.decodeKiller()
	}
	if d.Type == "" {
		return nil, &ValidationError{Field: "type", Reason: "is required"}
	}
	kind, err := ParseKind(d.Type)
	if err != nil {
		return nil, err
	}
	if err := d.checkFields(kind); err != nil {
		return nil, err
	}

	if kind == KindPairwiseEquality {
		selects, err := d.pairwiseSelections()
		if err != nil {
			return nil, err
		}
		return PairwiseEquality{Header: Header{ID: d.ID}, Selects: selects}, nil
	}

	if len(d.Locs) > 0 || len(d.Queries) > 0 {
		return nil, &ValidationError{Field: "locs/queries", Reason: "are only allowed for pairwise_equality"}
	}
	sel, err := NewSelection(d.Loc, d.Query)
	if err != nil {
		return nil, err
	}
	h := Header{ID: d.ID, Select: sel}

	switch kind {
	case KindFixed:
		return Fixed{Header: h, Value: d.Value}, nil
	case KindEquality:
		return Equality{Header: h}, nil
	case KindIncreasing:
		return Increasing{Header: h}, nil
	case KindDecreasing:
		return Decreasing{Header: h}, nil
	case KindProbability:
		return Probability{Header: h}, nil
	case KindCovariance:
		return Covariance{Header: h, BoundsDistance: d.BoundsDistance}, nil
	case KindSDCorr:
		return SDCorr{Header: h, BoundsDistance: d.BoundsDistance}, nil
	case KindLinear:
		var w Weights
		if d.Weights != nil {
			w = *d.Weights
		}
		return Linear{Header: h, Weights: w, Value: d.Value, Lower: d.Lower, Upper: d.Upper}, nil
	}
	return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unhandled constraint type %q", kind)}
}

func (d Declaration) decodeKiller() (Item, error) {
	if *d.Kill == "" {
		return nil, &ValidationError{Field: "kill", Reason: "cannot be empty"}
	}
	other := d
	other.Kill = nil
	if !other.isEmpty() {
		return nil, &ValidationError{Field: "kill", Reason: "must be the only key of a killer entry"}
	}
	return Killer{Kill: *d.Kill}, nil
}

func (d Declaration) isEmpty() bool {
	return d.Type == "" && len(d.Loc) == 0 && d.Query == "" && len(d.Locs) == 0 &&
		len(d.Queries) == 0 && d.ID == "" && d.Value == nil && d.BoundsDistance == nil &&
		d.Weights == nil && d.Lower == nil && d.Upper == nil
}

// checkFields rejects kind-specific keys declared on the wrong kind.
func (d Declaration) checkFields(kind Kind) error {
	if d.Value != nil && kind != KindFixed && kind != KindLinear {
		return &ValidationError{Field: "value", Reason: fmt.Sprintf("is not allowed for %s constraints", kind)}
	}
	if d.BoundsDistance != nil && !kind.IsCovarianceLike() {
		return &ValidationError{Field: "bounds_distance", Reason: fmt.Sprintf("is not allowed for %s constraints", kind)}
	}
	if (d.Weights != nil || d.Lower != nil || d.Upper != nil) && kind != KindLinear {
		return &ValidationError{Field: "weights/lower/upper", Reason: fmt.Sprintf("are not allowed for %s constraints", kind)}
	}
	return nil
}

func (d Declaration) pairwiseSelections() ([]Selection, error) {
	if len(d.Loc) > 0 || d.Query != "" {
		return nil, &ValidationError{Field: "loc/query", Reason: "pairwise_equality takes locs or queries"}
	}
	switch {
	case len(d.Locs) > 0 && len(d.Queries) > 0:
		return nil, &SelectionError{Reason: "both locs and queries are given"}
	case len(d.Locs) > 0:
		out := make([]Selection, len(d.Locs))
		for i, l := range d.Locs {
			out[i] = Loc(l...)
		}
		return out, nil
	case len(d.Queries) > 0:
		out := make([]Selection, len(d.Queries))
		for i, q := range d.Queries {
			out[i] = Query(q)
		}
		return out, nil
	default:
		return nil, &SelectionError{Reason: "neither locs nor queries is given"}
	}
}
