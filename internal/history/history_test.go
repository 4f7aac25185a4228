package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.json"), 10)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, utterance := range []string{"first", "second", "third"} {
		if err := store.Append(context.Background(), utterance); err != nil {
			t.Fatalf("Append(%q) failed: %v", utterance, err)
		}
	}

	reloaded, err := Open(path, 10)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.All()
	if len(got) != 3 || got[0] != "first" || got[2] != "third" {
		t.Fatalf("entries = %v", got)
	}
}

func TestAppendEnforcesLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path, 2)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, utterance := range []string{"a", "b", "c"} {
		if err := store.Append(context.Background(), utterance); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got := store.All()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("entries = %v", got)
	}
}

func TestRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for _, utterance := range []string{"a", "b", "c"} {
		if err := store.Append(context.Background(), utterance); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got := store.Recent(2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("recent = %v", got)
	}
	if got := store.Recent(10); len(got) != 3 {
		t.Fatalf("recent(10) = %v", got)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed file failed: %v", err)
	}
	if _, err := Open(path, 10); err == nil {
		t.Fatalf("corrupt file accepted")
	}
}

func TestAppendRejectsEmptyUtterance(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.json"), 10)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(context.Background(), ""); err == nil {
		t.Fatalf("empty utterance accepted")
	}
}
