package store

import (
	"math"
	"time"

	"github.com/cwbudde/paramfit/internal/fit"
	"github.com/cwbudde/paramfit/internal/params"
)

// RunConfig holds the settings a run was started with.
type RunConfig struct {
	ProblemPath string  `json:"problemPath"`
	Optimizer   string  `json:"optimizer"`
	Iters       int     `json:"iters"`
	PopSize     int     `json:"popSize,omitempty"`
	Seed        int64   `json:"seed"`
	Restarts    int     `json:"restarts"`
	Patience    int     `json:"patience,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ParamRecord is one estimated parameter. Infinite bounds are omitted
// because JSON has no representation for them.
type ParamRecord struct {
	Label string   `json:"label"`
	Value float64  `json:"value"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// RunRecord is the persisted outcome of one estimation run.
//
// Only the final state is stored. The per-pass cost history stays in memory
// and is reported through the log.
type RunRecord struct {
	// RunID is the unique identifier for this run
	RunID string `json:"runId"`

	// Params holds the estimated external parameters in table order
	Params []ParamRecord `json:"params"`

	// Internal is the optimizer's best internal vector
	Internal []float64 `json:"internal"`

	BestCost    float64 `json:"bestCost"`
	InitialCost float64 `json:"initialCost"`
	Passes      int     `json:"passes"`
	Evaluations int64   `json:"evaluations"`
	Rejected    int64   `json:"rejected"`

	// Killed lists the constraint ids removed by kill directives
	Killed []string `json:"killed,omitempty"`

	DurationMS int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`

	Config RunConfig `json:"config"`
}

// RunInfo contains metadata about a stored result without the parameter data.
type RunInfo struct {
	RunID       string    `json:"runId"`
	BestCost    float64   `json:"bestCost"`
	Passes      int       `json:"passes"`
	Timestamp   time.Time `json:"timestamp"`
	Optimizer   string    `json:"optimizer"`
	ProblemPath string    `json:"problemPath"`
}

// NewRunRecord converts an estimation result into a persistable record.
func NewRunRecord(runID string, result *fit.Result, config RunConfig) *RunRecord {
	rec := &RunRecord{
		RunID:       runID,
		Params:      make([]ParamRecord, 0, result.Params.Len()),
		Internal:    append([]float64{}, result.Internal...),
		BestCost:    result.BestCost,
		InitialCost: result.InitialCost,
		Passes:      result.Passes,
		Evaluations: result.Evaluations,
		Rejected:    result.Rejected,
		DurationMS:  result.Duration.Milliseconds(),
		Timestamp:   time.Now(),
		Config:      config,
	}
	for _, e := range result.Params.Entries {
		p := ParamRecord{Label: e.Label.String(), Value: e.Value}
		if !math.IsInf(e.Lower, -1) {
			lo := e.Lower
			p.Lower = &lo
		}
		if !math.IsInf(e.Upper, 1) {
			hi := e.Upper
			p.Upper = &hi
		}
		rec.Params = append(rec.Params, p)
	}
	for _, id := range result.Killed {
		rec.Killed = append(rec.Killed, string(id))
	}
	return rec
}

// Table rebuilds the estimated parameter table.
func (r *RunRecord) Table() *params.Table {
	t := &params.Table{Entries: make([]params.Entry, len(r.Params))}
	for i, p := range r.Params {
		e := params.NewEntry(p.Label, p.Value)
		if p.Lower != nil {
			e.Lower = *p.Lower
		}
		if p.Upper != nil {
			e.Upper = *p.Upper
		}
		t.Entries[i] = e
	}
	return t
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:       r.RunID,
		BestCost:    r.BestCost,
		Passes:      r.Passes,
		Timestamp:   r.Timestamp,
		Optimizer:   r.Config.Optimizer,
		ProblemPath: r.Config.ProblemPath,
	}
}

// Validate checks if the record has valid data.
// Returns an error if any required field is missing or invalid.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.Params) == 0 {
		return &ValidationError{Field: "Params", Reason: "cannot be empty"}
	}
	for _, p := range r.Params {
		if p.Label == "" {
			return &ValidationError{Field: "Params", Reason: "label cannot be empty"}
		}
		if !isFinite(p.Value) {
			return &ValidationError{Field: "Params", Reason: "value of " + p.Label + " must be finite"}
		}
	}
	for _, v := range r.Internal {
		if !isFinite(v) {
			return &ValidationError{Field: "Internal", Reason: "values must be finite"}
		}
	}
	if !isFinite(r.BestCost) {
		return &ValidationError{Field: "BestCost", Reason: "must be finite"}
	}
	if !isFinite(r.InitialCost) {
		return &ValidationError{Field: "InitialCost", Reason: "must be finite"}
	}
	if r.Passes < 0 {
		return &ValidationError{Field: "Passes", Reason: "cannot be negative"}
	}
	if r.Evaluations < 0 || r.Rejected < 0 || r.Rejected > r.Evaluations {
		return &ValidationError{Field: "Evaluations", Reason: "counts are inconsistent"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Optimizer == "" {
		return &ValidationError{Field: "Config.Optimizer", Reason: "cannot be empty"}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidationError represents a record or problem file validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
