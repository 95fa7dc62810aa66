// Package tracker implements the task-tree model: personnel lifecycle,
// the 3-level task hierarchy, assignment, and status transitions. All
// state lives in the store; the tracker reads a snapshot, validates,
// mutates, and writes the collection back wholesale.
package tracker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/planboard/planboard/internal/activity"
	apperrors "github.com/planboard/planboard/internal/errors"
	"github.com/planboard/planboard/internal/metrics"
	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/store"
)

// Tracker coordinates all mutating operations on personnel and tasks.
// Its mutex serializes read-modify-write cycles so concurrent callers
// cannot produce lost updates.
type Tracker struct {
	mu       sync.Mutex
	store    *store.Store
	recorder *activity.Recorder
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New creates a tracker. metrics may be nil.
func New(s *store.Store, rec *activity.Recorder, m *metrics.Metrics, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:    s,
		recorder: rec,
		metrics:  m,
		logger:   logger.With().Str("component", "tracker").Logger(),
	}
}

// CreatePersonInput holds the parameters for adding a person.
type CreatePersonInput struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// CreatePerson adds a personnel record.
func (t *Tracker) CreatePerson(input CreatePersonInput) (*model.Person, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("person name is required: %w", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Role) == "" {
		return nil, fmt.Errorf("person role is required: %w", apperrors.ErrInvalidInput)
	}

	p := model.Person{
		ID:        store.NewID(),
		Name:      strings.TrimSpace(input.Name),
		Role:      strings.TrimSpace(input.Role),
		Email:     strings.TrimSpace(input.Email),
		CreatedAt: time.Now().UTC(),
	}

	people := append(t.store.Personnel(), p)
	if err := t.store.ReplacePersonnel(people); err != nil {
		return nil, err
	}

	t.recorder.Record(model.LogCreate, fmt.Sprintf("Added person %s (%s)", p.Name, p.Role))
	t.recordMutation("person", "create")
	return &p, nil
}

// DeletePerson removes a person and unassigns every task held by them.
// Affected tasks are reset to NotStarted with all actual timestamps
// cleared, so a reset task never carries a stale start time.
func (t *Tracker) DeletePerson(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	people := t.store.Personnel()
	idx := -1
	for i := range people {
		if people[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NotFound("person", id)
	}
	name := people[idx].Name
	people = append(people[:idx], people[idx+1:]...)

	if err := t.store.ReplacePersonnel(people); err != nil {
		return err
	}

	tasks := t.store.Tasks()
	changed := false
	for i := range tasks {
		if tasks[i].AssignedTo == id {
			tasks[i].AssignedTo = ""
			tasks[i].Status = model.StatusNotStarted
			tasks[i].ActualStart = nil
			tasks[i].ActualEnd = nil
			changed = true
		}
	}
	if changed {
		if err := t.store.ReplaceTasks(tasks); err != nil {
			// The person is already gone; surface the failed unassignment
			// rather than pretending the whole operation succeeded.
			return err
		}
	}

	t.recorder.Record(model.LogDelete, fmt.Sprintf("Deleted person %s", name))
	t.recordMutation("person", "delete")
	return nil
}

// Person returns the person with the given id.
func (t *Tracker) Person(id string) (*model.Person, error) {
	for _, p := range t.store.Personnel() {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("person", id)
}

// People returns all personnel records.
func (t *Tracker) People() []model.Person {
	return t.store.Personnel()
}

func (t *Tracker) recordMutation(entity, op string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordMutation(entity, op)
	personnel, tasks, logs := t.store.Counts()
	t.metrics.SetCollectionSize(string(store.KindPersonnel), personnel)
	t.metrics.SetCollectionSize(string(store.KindTasks), tasks)
	t.metrics.SetCollectionSize(string(store.KindLogs), logs)
}
