package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists raw user utterances to a JSON file, ordered oldest to
// newest. The file is the session-spanning query history the UI offers for
// replay; losing it is annoying but never fatal, so writes are atomic and
// load tolerates a missing file.
type Store struct {
	path  string
	limit int

	mu      sync.Mutex
	entries []string
}

// Open loads the history file at path, creating state for a fresh file when
// none exists. A limit > 0 caps retained entries; older ones are dropped
// first.
func Open(path string, limit int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	store := &Store{path: path, limit: limit}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(raw) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store.entries); err != nil {
		return nil, fmt.Errorf("decode history file %q: %w", path, err)
	}
	store.truncateLocked()
	return store, nil
}

// Append records one utterance and rewrites the backing file.
func (s *Store) Append(_ context.Context, utterance string) error {
	if utterance == "" {
		return fmt.Errorf("utterance is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, utterance)
	s.truncateLocked()
	return s.writeLocked()
}

// All returns every retained utterance, oldest first.
func (s *Store) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Recent returns up to n of the latest utterances, still oldest first.
func (s *Store) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n >= len(s.entries) {
		return append([]string(nil), s.entries...)
	}
	return append([]string(nil), s.entries[len(s.entries)-n:]...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) truncateLocked() {
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append([]string(nil), s.entries[len(s.entries)-s.limit:]...)
	}
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
