package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return s
}

func TestListOperations_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// No CreateSchema call: the database stays uninitialized.
	_, err = s.ListOperations("", 0)
	if err == nil {
		t.Fatal("ListOperations() should return an error on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListOperations() error = %v; want errors.Is(err, ErrNotInitialized) to be true", err)
	}
}

func TestCreateSchemaIdempotent(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestOpenCreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ops, err := s.ListOperations("", 0)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("Expected empty history, got %d operations", len(ops))
	}
}

func TestInsertAndGetOperation(t *testing.T) {
	s := setupTestStore(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	op := &Operation{
		Kind:        KindRestore,
		Snapshot:    "freezer",
		Backend:     "apt",
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Status:      StatusPartial,
		PkgsAdded:   2,
		PkgsRemoved: 1,
		ReposAdded:  1,
		Comment:     "Error adding foo package: exit status 100",
	}

	id, err := s.InsertOperation(op)
	if err != nil {
		t.Fatalf("InsertOperation() failed: %v", err)
	}
	if id == "" || op.ID != id {
		t.Fatalf("Expected generated ID to be set on operation, got %q / %q", id, op.ID)
	}

	got, err := s.GetOperation(id)
	if err != nil {
		t.Fatalf("GetOperation() failed: %v", err)
	}

	if got.Kind != KindRestore || got.Snapshot != "freezer" || got.Backend != "apt" {
		t.Errorf("Unexpected operation: %+v", got)
	}
	if got.PkgsAdded != 2 || got.PkgsRemoved != 1 || got.ReposAdded != 1 || got.ReposRemoved != 0 {
		t.Errorf("Unexpected counts: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("Expected started_at %v, got %v", started, got.StartedAt)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Expected duration 90s, got %v", got.Duration())
	}
	if got.Comment != op.Comment {
		t.Errorf("Expected comment %q, got %q", op.Comment, got.Comment)
	}
}

func TestGetOperationNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetOperation("missing"); err == nil {
		t.Error("Expected error for missing operation, got nil")
	}
}

func TestListOperationsOrderingAndFilter(t *testing.T) {
	s := setupTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inputs := []struct {
		snapshot string
		offset   time.Duration
	}{
		{"freezer", 0},
		{"before-upgrade", time.Hour},
		{"freezer", 2 * time.Hour},
		// sub-second offsets must still order correctly
		{"freezer", 2*time.Hour + 100*time.Millisecond},
	}

	for _, in := range inputs {
		_, err := s.InsertOperation(&Operation{
			Kind:       KindFreeze,
			Snapshot:   in.snapshot,
			StartedAt:  base.Add(in.offset),
			FinishedAt: base.Add(in.offset),
			Status:     StatusOK,
		})
		if err != nil {
			t.Fatalf("InsertOperation() failed: %v", err)
		}
	}

	all, err := s.ListOperations("", 0)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 operations, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].StartedAt.After(all[i-1].StartedAt) {
			t.Error("Operations are not ordered newest first")
		}
	}

	frozen, err := s.ListOperations("freezer", 2)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(frozen) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(frozen))
	}
	for _, op := range frozen {
		if op.Snapshot != "freezer" {
			t.Errorf("Expected only 'freezer' operations, got %s", op.Snapshot)
		}
	}
}

func TestDriftEvents(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		id, err := s.InsertDriftEvent(&DriftEvent{
			Snapshot:   "freezer",
			DetectedAt: now.Add(time.Duration(i) * time.Minute),
			PkgsAdded:  i,
			Detail:     "pkgs +htop",
		})
		if err != nil {
			t.Fatalf("InsertDriftEvent() failed: %v", err)
		}
		if id <= 0 {
			t.Fatalf("Expected positive ID, got %d", id)
		}
	}
	if _, err := s.InsertDriftEvent(&DriftEvent{Snapshot: "other", DetectedAt: now}); err != nil {
		t.Fatalf("InsertDriftEvent() failed: %v", err)
	}

	events, err := s.ListDriftEvents("freezer", 0)
	if err != nil {
		t.Fatalf("ListDriftEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].PkgsAdded != 2 {
		t.Errorf("Expected newest event first, got PkgsAdded=%d", events[0].PkgsAdded)
	}
	if events[0].Detail != "pkgs +htop" {
		t.Errorf("Unexpected detail: %q", events[0].Detail)
	}

	latest, err := s.ListDriftEvents("freezer", 1)
	if err != nil {
		t.Fatalf("ListDriftEvents() failed: %v", err)
	}
	if len(latest) != 1 {
		t.Errorf("Expected 1 event with limit, got %d", len(latest))
	}
}

func TestListDriftEventsAllSnapshots(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now().UTC()
	for i, name := range []string{"freezer", "other"} {
		ev := &DriftEvent{Snapshot: name, DetectedAt: now.Add(time.Duration(i) * time.Minute)}
		if _, err := s.InsertDriftEvent(ev); err != nil {
			t.Fatalf("InsertDriftEvent() failed: %v", err)
		}
	}

	events, err := s.ListDriftEvents("", 0)
	if err != nil {
		t.Fatalf("ListDriftEvents() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events for all snapshots, got %d", len(events))
	}
	if events[0].Snapshot != "other" {
		t.Errorf("Expected newest event first, got %s", events[0].Snapshot)
	}
}
