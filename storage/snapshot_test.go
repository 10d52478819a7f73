package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"todo-api/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := New(path, nil)

	done := true
	notes := "with notes"
	a, err := s.Create("first", domain.PriorityHigh, "work", "2026-09-01")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create("second", domain.PriorityLow, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(a.ID, domain.TaskUpdate{Completed: &done, Notes: &notes}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !s.Delete(2) {
		t.Fatal("delete returned false")
	}

	reloaded := New(path, nil)
	if !reflect.DeepEqual(reloaded.tasks, s.tasks) {
		t.Fatalf("reloaded tasks = %+v, want %+v", reloaded.tasks, s.tasks)
	}
	if reloaded.nextID != s.nextID {
		t.Fatalf("reloaded nextID = %d, want %d", reloaded.nextID, s.nextID)
	}

	// A create after reload must continue the id sequence, not reuse id 2.
	task, err := reloaded.Create("third", "", "", "")
	if err != nil {
		t.Fatalf("create after reload: %v", err)
	}
	if task.ID != 3 {
		t.Fatalf("id after reload = %d, want 3", task.ID)
	}
}

func TestSnapshotUsesSnakeCaseKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := New(path, nil)
	if _, err := s.Create("wire format", "", "", "2026-01-02"); err != nil {
		t.Fatalf("create: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	for _, key := range []string{`"tasks"`, `"next_id"`, `"created_at"`, `"due_date"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("snapshot missing key %s:\n%s", key, data)
		}
	}
}

func TestLoadMissingSnapshotStartsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-written.json"), nil)
	if n := len(s.List("", "")); n != 0 {
		t.Fatalf("store holds %d tasks, want 0", n)
	}
	task, err := s.Create("first", "", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != 1 {
		t.Fatalf("first id = %d, want 1", task.ID)
	}
}

func TestLoadCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	s := New(path, nil)
	if n := len(s.List("", "")); n != 0 {
		t.Fatalf("store holds %d tasks, want 0", n)
	}
	if s.nextID != 1 {
		t.Fatalf("nextID = %d, want 1", s.nextID)
	}
}

func TestWriteSnapshotLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	s := New(path, nil)
	if _, err := s.Create("atomic", "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	// Point the snapshot at a directory so every write fails.
	dir := t.TempDir()
	s := New(dir, nil)

	task, err := s.Create("survives", "", "", "")
	if err != nil {
		t.Fatalf("create failed on persistence error: %v", err)
	}
	got, err := s.Get(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "survives" {
		t.Fatalf("title = %q", got.Title)
	}
}
