// Package seed imports a YAML fixture into an empty store. Used to
// bootstrap demo and development environments.
package seed

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/tracker"
)

// File is the top-level fixture document.
type File struct {
	Personnel []PersonSpec `yaml:"personnel"`
	Tasks     []TaskSpec   `yaml:"tasks"`
}

// PersonSpec describes one person to create.
type PersonSpec struct {
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Email string `yaml:"email"`
}

// TaskSpec describes one task to create. Parent references the name of a
// task defined earlier in the file.
type TaskSpec struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Level          int    `yaml:"level"`
	Parent         string `yaml:"parent"`
	Priority       string `yaml:"priority"`
	EstimatedHours int    `yaml:"estimated_hours"`
	AssignTo       string `yaml:"assign_to"` // person name from the personnel section
	PlannedStart   string `yaml:"planned_start"`
	PlannedEnd     string `yaml:"planned_end"`
}

// Apply loads the fixture at path and creates its records through the
// tracker so all hierarchy and assignment invariants hold. It refuses to
// run against a non-empty dataset.
func Apply(path string, tr *tracker.Tracker, logger zerolog.Logger) error {
	if len(tr.People()) > 0 || len(tr.Tasks()) > 0 {
		logger.Info().Str("file", path).Msg("store not empty, skipping seed")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	peopleByName := make(map[string]string, len(f.Personnel))
	for _, ps := range f.Personnel {
		p, err := tr.CreatePerson(tracker.CreatePersonInput{
			Name:  ps.Name,
			Role:  ps.Role,
			Email: ps.Email,
		})
		if err != nil {
			return fmt.Errorf("seeding person %q: %w", ps.Name, err)
		}
		peopleByName[p.Name] = p.ID
	}

	tasksByName := make(map[string]string, len(f.Tasks))
	for _, ts := range f.Tasks {
		parentID := ""
		if ts.Parent != "" {
			id, ok := tasksByName[ts.Parent]
			if !ok {
				return fmt.Errorf("seeding task %q: parent %q not defined earlier in file", ts.Name, ts.Parent)
			}
			parentID = id
		}
		task, err := tr.CreateTask(tracker.CreateTaskInput{
			Name:           ts.Name,
			Description:    ts.Description,
			Level:          ts.Level,
			ParentID:       parentID,
			Priority:       model.Priority(ts.Priority),
			EstimatedHours: ts.EstimatedHours,
		})
		if err != nil {
			return fmt.Errorf("seeding task %q: %w", ts.Name, err)
		}
		tasksByName[task.Name] = task.ID

		if ts.AssignTo != "" {
			personID, ok := peopleByName[ts.AssignTo]
			if !ok {
				return fmt.Errorf("seeding task %q: unknown assignee %q", ts.Name, ts.AssignTo)
			}
			start, err := parseDate(ts.PlannedStart)
			if err != nil {
				return fmt.Errorf("seeding task %q: %w", ts.Name, err)
			}
			end, err := parseDate(ts.PlannedEnd)
			if err != nil {
				return fmt.Errorf("seeding task %q: %w", ts.Name, err)
			}
			if _, err := tr.AssignTask(task.ID, personID, start, end); err != nil {
				return fmt.Errorf("seeding task %q assignment: %w", ts.Name, err)
			}
		}
	}

	logger.Info().
		Str("file", path).
		Int("personnel", len(f.Personnel)).
		Int("tasks", len(f.Tasks)).
		Msg("seed fixture applied")
	return nil
}
