package store

import (
	"math"
	"testing"
	"time"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/fit"
	"github.com/cwbudde/paramfit/internal/params"
)

func TestNewRunRecord(t *testing.T) {
	result := &fit.Result{
		Params: params.NewTable(
			params.NewEntry("a", 1),
			params.NewBoundedEntry("b", 2, 0, math.Inf(1)),
		),
		Internal:    []float64{1, 2},
		BestCost:    0.5,
		InitialCost: 3,
		Passes:      2,
		Evaluations: 100,
		Rejected:    4,
		Duration:    1500 * time.Millisecond,
		Killed:      []constraints.ID{"x"},
	}

	rec := NewRunRecord("run-1", result, RunConfig{Optimizer: "mayfly"})
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if rec.DurationMS != 1500 {
		t.Errorf("Expected DurationMS=1500, got %d", rec.DurationMS)
	}
	if rec.Params[0].Lower != nil || rec.Params[0].Upper != nil {
		t.Error("Infinite bounds must be omitted")
	}
	if rec.Params[1].Lower == nil || *rec.Params[1].Lower != 0 || rec.Params[1].Upper != nil {
		t.Errorf("Unexpected bounds for b: %+v", rec.Params[1])
	}
	if len(rec.Killed) != 1 || rec.Killed[0] != "x" {
		t.Errorf("Expected killed [x], got %v", rec.Killed)
	}

	tbl := rec.Table()
	if tbl.Len() != 2 || tbl.Entries[1].Lower != 0 || !math.IsInf(tbl.Entries[1].Upper, 1) {
		t.Errorf("Table not rebuilt: %+v", tbl.Entries)
	}

	info := rec.ToInfo()
	if info.RunID != "run-1" || info.Optimizer != "mayfly" || info.Passes != 2 {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestRunRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RunRecord)
		field  string
	}{
		{name: "empty run id", modify: func(r *RunRecord) { r.RunID = "" }, field: "RunID"},
		{name: "no params", modify: func(r *RunRecord) { r.Params = nil }, field: "Params"},
		{name: "empty label", modify: func(r *RunRecord) { r.Params[0].Label = "" }, field: "Params"},
		{name: "nan value", modify: func(r *RunRecord) { r.Params[0].Value = math.NaN() }, field: "Params"},
		{name: "infinite internal", modify: func(r *RunRecord) { r.Internal[0] = math.Inf(1) }, field: "Internal"},
		{name: "infinite best cost", modify: func(r *RunRecord) { r.BestCost = math.Inf(1) }, field: "BestCost"},
		{name: "nan initial cost", modify: func(r *RunRecord) { r.InitialCost = math.NaN() }, field: "InitialCost"},
		{name: "negative passes", modify: func(r *RunRecord) { r.Passes = -1 }, field: "Passes"},
		{name: "more rejected than evaluated", modify: func(r *RunRecord) { r.Rejected = r.Evaluations + 1 }, field: "Evaluations"},
		{name: "zero timestamp", modify: func(r *RunRecord) { r.Timestamp = time.Time{} }, field: "Timestamp"},
		{name: "no optimizer", modify: func(r *RunRecord) { r.Config.Optimizer = "" }, field: "Config.Optimizer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := createTestRecord("run")
			tt.modify(rec)

			err := rec.Validate()
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected ValidationError, got %T: %v", err, err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}
