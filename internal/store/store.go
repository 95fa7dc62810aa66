// Package store owns the three planboard collections (personnel, tasks,
// logs) and their flat-JSON persistence. All collections are loaded into
// memory at open; every mutation rewrites the whole collection file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/planboard/planboard/internal/errors"
	"github.com/planboard/planboard/internal/model"
)

// Kind names a persisted collection.
type Kind string

const (
	KindPersonnel Kind = "personnel"
	KindTasks     Kind = "tasks"
	KindLogs      Kind = "logs"
)

func (k Kind) filename() string { return string(k) + ".json" }

// NewID generates a collision-free record identifier.
func NewID() string {
	return uuid.New().String()
}

// Store holds the in-memory collections and their backing files.
// A single mutex serializes writers; the later of two racing mutations
// can therefore never silently discard the earlier one.
type Store struct {
	mu     sync.RWMutex
	dir    string
	logger zerolog.Logger

	personnel []model.Person
	tasks     []model.Task
	logs      []model.LogEntry
}

// Open loads all collections from dir, creating it if needed. Absent or
// empty files default to empty collections.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With().Str("component", "store").Logger(),
	}

	if err := loadFile(s.path(KindPersonnel), &s.personnel); err != nil {
		return nil, apperrors.NewPersistenceError(string(KindPersonnel), "load", err)
	}
	if err := loadFile(s.path(KindTasks), &s.tasks); err != nil {
		return nil, apperrors.NewPersistenceError(string(KindTasks), "load", err)
	}
	if err := loadFile(s.path(KindLogs), &s.logs); err != nil {
		return nil, apperrors.NewPersistenceError(string(KindLogs), "load", err)
	}

	s.logger.Info().
		Str("dir", dir).
		Int("personnel", len(s.personnel)).
		Int("tasks", len(s.tasks)).
		Int("logs", len(s.logs)).
		Msg("store opened")

	return s, nil
}

func (s *Store) path(k Kind) string {
	return filepath.Join(s.dir, k.filename())
}

// Personnel returns a copy of the personnel collection.
func (s *Store) Personnel() []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Person, len(s.personnel))
	copy(out, s.personnel)
	return out
}

// Tasks returns a copy of the task collection.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Logs returns a copy of the log collection, newest first.
func (s *Store) Logs() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Counts returns the current size of each collection.
func (s *Store) Counts() (personnel, tasks, logs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.personnel), len(s.tasks), len(s.logs)
}

// ReplacePersonnel persists the given personnel collection wholesale.
// The file is rewritten before memory is swapped, so a failed write
// leaves the previous state intact.
func (s *Store) ReplacePersonnel(people []model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path(KindPersonnel), people); err != nil {
		return apperrors.NewPersistenceError(string(KindPersonnel), "save", err)
	}
	s.personnel = people
	return nil
}

// ReplaceTasks persists the given task collection wholesale.
func (s *Store) ReplaceTasks(tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path(KindTasks), tasks); err != nil {
		return apperrors.NewPersistenceError(string(KindTasks), "save", err)
	}
	s.tasks = tasks
	return nil
}

// ReplaceLogs persists the given log collection wholesale.
func (s *Store) ReplaceLogs(logs []model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path(KindLogs), logs); err != nil {
		return apperrors.NewPersistenceError(string(KindLogs), "save", err)
	}
	s.logs = logs
	return nil
}

// Ping verifies the data directory is still writable.
func (s *Store) Ping() error {
	probe := filepath.Join(s.dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	return os.Remove(probe)
}

func loadFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFile marshals v and replaces path atomically via temp file + rename.
func writeFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
