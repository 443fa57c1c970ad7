package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a record with test data.
func createTestRecord(runID string) *RunRecord {
	lo := 0.0
	return &RunRecord{
		RunID: runID,
		Params: []ParamRecord{
			{Label: "a.0", Value: 4.4},
			{Label: "a.1", Value: 2.2, Lower: &lo},
		},
		Internal:    []float64{2.2},
		BestCost:    0.2,
		InitialCost: 8,
		Passes:      3,
		Evaluations: 420,
		Rejected:    7,
		Killed:      []string{"7"},
		DurationMS:  12,
		Timestamp:   time.Now(),
		Config: RunConfig{
			ProblemPath: "problems/linear.yaml",
			Optimizer:   "neldermead",
			Iters:       1000,
			Seed:        42,
			Restarts:    5,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "results")

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveResult(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := NewRunID()
	if err := store.SaveResult(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	runDir := filepath.Join(tempDir, "runs", runID)
	if _, err := os.Stat(filepath.Join(runDir, "result.json")); os.IsNotExist(err) {
		t.Fatalf("Result file was not created in %s", runDir)
	}

	// Verify no temp file remains
	entries, err := os.ReadDir(runDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temp file should not exist after save: %s", e.Name())
		}
	}
}

func TestSaveResult_Invalid(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveResult("", createTestRecord("x")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveResult("run", nil); err == nil {
		t.Error("Expected error for nil record")
	}

	bad := createTestRecord("run")
	bad.Params = nil
	var verr *ValidationError
	if err := store.SaveResult("run", bad); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %T: %v", err, err)
	}
}

func TestSaveResult_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-overwrite"
	first := createTestRecord(runID)
	first.BestCost = 0.5
	second := createTestRecord(runID)
	second.BestCost = 0.1

	if err := store.SaveResult(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveResult(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadResult(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BestCost != 0.1 {
		t.Errorf("Expected BestCost=0.1, got %f", loaded.BestCost)
	}
}

func TestLoadResult(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-load"
	original := createTestRecord(runID)
	if err := store.SaveResult(runID, original); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	loaded, err := store.LoadResult(runID)
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.Evaluations != original.Evaluations || loaded.Rejected != original.Rejected {
		t.Errorf("Counts mismatch: expected %d/%d, got %d/%d", original.Evaluations, original.Rejected, loaded.Evaluations, loaded.Rejected)
	}
	if len(loaded.Params) != 2 || loaded.Params[1].Lower == nil || *loaded.Params[1].Lower != 0 {
		t.Errorf("Params not restored: %+v", loaded.Params)
	}
	if loaded.Params[0].Lower != nil {
		t.Error("Unbounded lower bound should stay omitted")
	}
	if loaded.Config.Optimizer != original.Config.Optimizer {
		t.Errorf("Config.Optimizer mismatch: expected %s, got %s", original.Config.Optimizer, loaded.Config.Optimizer)
	}
}

func TestLoadResult_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadResult("nonexistent-run")
	if err == nil {
		t.Fatal("Expected error for nonexistent result")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestLoadResult_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runDir := filepath.Join(tempDir, "runs", "broken")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "result.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadResult("broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a deserialization error, got %v", err)
	}

	// Corrupted results are skipped when listing
	infos, err := store.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected corrupted result to be skipped, got %d", len(infos))
	}
}

func TestListResults_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d results", len(infos))
	}
}

func TestListResults_Ordered(t *testing.T) {
	store, _ := setupTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []string{"run-c", "run-a", "run-b"}
	for i, runID := range runs {
		rec := createTestRecord(runID)
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveResult(runID, rec); err != nil {
			t.Fatalf("Failed to save result %s: %v", runID, err)
		}
	}

	infos, err := store.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != len(runs) {
		t.Fatalf("Expected %d results, got %d", len(runs), len(infos))
	}
	for i, info := range infos {
		if info.RunID != runs[i] {
			t.Errorf("Position %d: expected %s, got %s", i, runs[i], info.RunID)
		}
		if info.Optimizer != "neldermead" {
			t.Errorf("Expected optimizer metadata, got %q", info.Optimizer)
		}
	}
}

func TestNewRunIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("Duplicate run id %s", id)
		}
		seen[id] = true
	}
}
