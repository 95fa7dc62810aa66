package tracker

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/planboard/planboard/internal/errors"
	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/store"
)

// CreateTaskInput holds the parameters for creating a task.
type CreateTaskInput struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Level          int            `json:"level"`
	ParentID       string         `json:"parent_id,omitempty"`
	Priority       model.Priority `json:"priority,omitempty"`
	EstimatedHours int            `json:"estimated_hours,omitempty"`
}

// CreateTask creates a task with explicit level/parent validation. New
// tasks start unassigned in NotStarted with all time fields empty.
func (t *Tracker) CreateTask(input CreateTaskInput) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("task name is required: %w", apperrors.ErrInvalidInput)
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q: %w", input.Priority, apperrors.ErrInvalidInput)
	}
	if input.EstimatedHours < 0 {
		return nil, fmt.Errorf("estimated hours must not be negative: %w", apperrors.ErrInvalidInput)
	}

	tasks := t.store.Tasks()

	parentLevel := 0
	if input.ParentID != "" {
		parent := findTask(tasks, input.ParentID)
		if parent == nil {
			return nil, apperrors.NotFound("parent task", input.ParentID)
		}
		parentLevel = parent.Level
	}
	if err := model.ValidateLevel(input.Level, parentLevel); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrConstraint)
	}

	task := model.Task{
		ID:             store.NewID(),
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		Level:          input.Level,
		ParentID:       input.ParentID,
		Priority:       input.Priority,
		EstimatedHours: input.EstimatedHours,
		Status:         model.StatusNotStarted,
		CreatedAt:      time.Now().UTC(),
	}

	if err := t.store.ReplaceTasks(append(tasks, task)); err != nil {
		return nil, err
	}

	t.recorder.Record(model.LogCreate, fmt.Sprintf("Created level-%d task %q", task.Level, task.Name))
	t.recordMutation("task", "create")
	return &task, nil
}

// DeleteTask removes a task together with its full descendant subtree.
// One log entry names the root; descendant removals are not individually
// logged.
func (t *Tracker) DeleteTask(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tasks := t.store.Tasks()
	root := findTask(tasks, id)
	if root == nil {
		return apperrors.NotFound("task", id)
	}

	doomed := descendantSet(tasks, id)
	remaining := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !doomed[task.ID] {
			remaining = append(remaining, task)
		}
	}

	if err := t.store.ReplaceTasks(remaining); err != nil {
		return err
	}

	t.recorder.Record(model.LogDelete, fmt.Sprintf("Deleted task %q", root.Name))
	t.recordMutation("task", "delete")
	return nil
}

// AssignTask sets the assignee and planned window on a task. Re-assigning
// overwrites the previous assignment; status is untouched.
func (t *Tracker) AssignTask(id, personID string, plannedStart, plannedEnd *time.Time) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	person, err := t.Person(personID)
	if err != nil {
		return nil, err
	}

	tasks := t.store.Tasks()
	task := findTask(tasks, id)
	if task == nil {
		return nil, apperrors.NotFound("task", id)
	}
	if plannedStart != nil && plannedEnd != nil && plannedEnd.Before(*plannedStart) {
		return nil, fmt.Errorf("planned end before planned start: %w", apperrors.ErrInvalidInput)
	}

	task.AssignedTo = personID
	task.PlannedStart = plannedStart
	task.PlannedEnd = plannedEnd

	if err := t.store.ReplaceTasks(tasks); err != nil {
		return nil, err
	}

	t.recorder.Record(model.LogAssign, fmt.Sprintf("Assigned task %q to %s", task.Name, person.Name))
	t.recordMutation("task", "assign")
	out := *task
	return &out, nil
}

// StartTask moves a task from NotStarted to InProgress and stamps the
// actual start time. Unassigned tasks cannot start.
func (t *Tracker) StartTask(id string) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tasks := t.store.Tasks()
	task := findTask(tasks, id)
	if task == nil {
		return nil, apperrors.NotFound("task", id)
	}
	if task.AssignedTo == "" {
		return nil, apperrors.Transition("cannot start unassigned task %q", task.Name)
	}
	if task.Status != model.StatusNotStarted {
		return nil, apperrors.Transition("cannot start task %q from status %s", task.Name, task.Status)
	}

	now := time.Now().UTC()
	task.Status = model.StatusInProgress
	task.ActualStart = &now

	if err := t.store.ReplaceTasks(tasks); err != nil {
		return nil, err
	}

	actor := t.assigneeName(task.AssignedTo)
	t.recorder.Record(model.LogStart, fmt.Sprintf("%s started task %q", actor, task.Name))
	t.recordMutation("task", "start")
	out := *task
	return &out, nil
}

// CompleteTask moves a task from InProgress to Completed and stamps the
// actual end time. Completed is terminal.
func (t *Tracker) CompleteTask(id string) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tasks := t.store.Tasks()
	task := findTask(tasks, id)
	if task == nil {
		return nil, apperrors.NotFound("task", id)
	}
	if task.Status != model.StatusInProgress {
		return nil, apperrors.Transition("cannot complete task %q from status %s", task.Name, task.Status)
	}

	now := time.Now().UTC()
	task.Status = model.StatusCompleted
	task.ActualEnd = &now

	if err := t.store.ReplaceTasks(tasks); err != nil {
		return nil, err
	}

	actor := t.assigneeName(task.AssignedTo)
	t.recorder.Record(model.LogComplete, fmt.Sprintf("%s completed task %q", actor, task.Name))
	t.recordMutation("task", "complete")
	out := *task
	return &out, nil
}

// Task returns the task with the given id.
func (t *Tracker) Task(id string) (*model.Task, error) {
	task := findTask(t.store.Tasks(), id)
	if task == nil {
		return nil, apperrors.NotFound("task", id)
	}
	out := *task
	return &out, nil
}

// Tasks returns all task records.
func (t *Tracker) Tasks() []model.Task {
	return t.store.Tasks()
}

// TaskPath returns task names from the root ancestor down to id. A cycle
// or dangling parent reference yields ErrCorruptHierarchy instead of
// looping forever.
func (t *Tracker) TaskPath(id string) ([]string, error) {
	return TaskPath(t.store.Tasks(), id)
}

// TaskPath resolves the ancestor path within the given snapshot.
func TaskPath(tasks []model.Task, id string) ([]string, error) {
	current := findTask(tasks, id)
	if current == nil {
		return nil, apperrors.NotFound("task", id)
	}

	var reversed []string
	visited := map[string]bool{}
	for current != nil {
		if visited[current.ID] {
			return nil, fmt.Errorf("cycle at task %s: %w", current.ID, apperrors.ErrCorruptHierarchy)
		}
		visited[current.ID] = true
		reversed = append(reversed, current.Name)

		if current.ParentID == "" {
			break
		}
		parent := findTask(tasks, current.ParentID)
		if parent == nil {
			return nil, fmt.Errorf("task %s references missing parent %s: %w",
				current.ID, current.ParentID, apperrors.ErrCorruptHierarchy)
		}
		current = parent
	}

	path := make([]string, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}
	return path, nil
}

func (t *Tracker) assigneeName(personID string) string {
	if p, err := t.Person(personID); err == nil {
		return p.Name
	}
	return "unknown"
}

func findTask(tasks []model.Task, id string) *model.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// descendantSet returns the ids of id and its transitive children. The
// visited set keeps the walk finite even on corrupt parent data.
func descendantSet(tasks []model.Task, id string) map[string]bool {
	doomed := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for i := range tasks {
			if tasks[i].ParentID == parent && !doomed[tasks[i].ID] {
				doomed[tasks[i].ID] = true
				queue = append(queue, tasks[i].ID)
			}
		}
	}
	return doomed
}
