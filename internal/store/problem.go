package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/fit"
	"github.com/cwbudde/paramfit/internal/params"
)

// ParamSpec is one row of the parameter table in a problem file. Omitted
// bounds are infinite.
type ParamSpec struct {
	Label string   `yaml:"label"`
	Value float64  `yaml:"value"`
	Lower *float64 `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
}

// Problem is a parameter estimation problem as declared in a YAML or JSON
// file:
//
//	params:
//	  - {label: a.0, value: 2}
//	  - {label: a.1, value: 1, lower: 0}
//	constraints:
//	  - {type: linear, loc: a, weights: [1, -2], value: 0}
//	objective: (p["a.0"] - 4)^2 + (p["a.1"] - 3)^2
//
// Exactly one of objective and targets must be given. Targets declare a
// least squares problem pulling each labelled parameter towards a value.
type Problem struct {
	Params      []ParamSpec               `yaml:"params"`
	Constraints []constraints.Declaration `yaml:"constraints"`
	Objective   string                    `yaml:"objective"`
	Targets     map[string]float64        `yaml:"targets"`
}

// LoadProblem reads and validates a problem file.
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	p, err := ParseProblem(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProblem decodes a problem document. Unknown keys are rejected.
func ParseProblem(data []byte) (*Problem, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Problem
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{Field: "problem", Reason: "is empty"}
		}
		return nil, &ValidationError{Field: "problem", Reason: err.Error()}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Problem) validate() error {
	if len(p.Params) == 0 {
		return &ValidationError{Field: "params", Reason: "cannot be empty"}
	}
	for i, ps := range p.Params {
		if ps.Label == "" {
			return &ValidationError{Field: "params", Reason: fmt.Sprintf("entry %d has no label", i)}
		}
	}
	switch {
	case p.Objective == "" && len(p.Targets) == 0:
		return &ValidationError{Field: "objective", Reason: "or targets must be given"}
	case p.Objective != "" && len(p.Targets) > 0:
		return &ValidationError{Field: "objective", Reason: "cannot be combined with targets"}
	}
	return nil
}

// Table builds the start parameter table.
func (p *Problem) Table() (*params.Table, error) {
	t := &params.Table{Entries: make([]params.Entry, len(p.Params))}
	for i, ps := range p.Params {
		lo, hi := math.Inf(-1), math.Inf(1)
		if ps.Lower != nil {
			lo = *ps.Lower
		}
		if ps.Upper != nil {
			hi = *ps.Upper
		}
		t.Entries[i] = params.NewBoundedEntry(ps.Label, ps.Value, lo, hi)
	}
	if err := t.Validate(); err != nil {
		return nil, &ValidationError{Field: "params", Reason: err.Error()}
	}
	return t, nil
}

// Items decodes the constraint declarations.
func (p *Problem) Items() ([]constraints.Item, error) {
	return constraints.Decode(p.Constraints)
}

// Criterion builds the criterion declared by the problem for table t.
func (p *Problem) Criterion(t *params.Table) (fit.Criterion, error) {
	if p.Objective != "" {
		return fit.ExprCriterion(p.Objective, t.Labels())
	}
	res, err := fit.TargetResiduals(t, p.Targets)
	if err != nil {
		return nil, err
	}
	return res.Criterion(), nil
}
