// Package gantt derives a read-only timeline view from the current task
// and personnel collections. Projection never mutates state.
package gantt

import (
	"time"

	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/tracker"
)

// CellWidth is the fixed pixel width of one day cell on the axis.
const CellWidth = 80

// Row is one positioned bar on the timeline.
type Row struct {
	TaskID     string         `json:"task_id"`
	Path       []string       `json:"path"`  // root ancestor → task
	Label      string         `json:"label"` // path joined with " > "
	Assignee   string         `json:"assignee"`
	Priority   model.Priority `json:"priority"`
	Status     model.Status   `json:"status"`
	StartIndex int            `json:"start_index"`
	EndIndex   int            `json:"end_index"`
	Left       int            `json:"left"`
	Width      int            `json:"width"`
}

// Fault reports a task that could not be projected due to a data
// integrity problem. Faulted tasks are excluded from Rows.
type Fault struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// View is the projected timeline.
type View struct {
	Axis   []time.Time `json:"axis"` // contiguous calendar days, inclusive
	Rows   []Row       `json:"rows"`
	Faults []Fault     `json:"faults,omitempty"`
}

// Empty reports whether the view has no axis.
func (v *View) Empty() bool { return len(v.Axis) == 0 }

// Project builds the timeline from the given snapshots. Included are
// tasks that are assigned, not Completed, and have at least one of
// planned/actual start set.
func Project(tasks []model.Task, people []model.Person) *View {
	view := &View{}

	included := make([]model.Task, 0, len(tasks))
	var dates []time.Time
	for _, task := range tasks {
		if task.AssignedTo == "" || task.Status == model.StatusCompleted {
			continue
		}
		if task.PlannedStart == nil && task.ActualStart == nil {
			continue
		}
		included = append(included, task)
		for _, ts := range []*time.Time{task.PlannedStart, task.PlannedEnd, task.ActualStart, task.ActualEnd} {
			if ts != nil {
				dates = append(dates, *ts)
			}
		}
	}
	if len(dates) == 0 {
		return view
	}

	minDay, maxDay := truncateDay(dates[0]), truncateDay(dates[0])
	for _, d := range dates[1:] {
		day := truncateDay(d)
		if day.Before(minDay) {
			minDay = day
		}
		if day.After(maxDay) {
			maxDay = day
		}
	}

	// Calendar-day stepping: a bar starting at 23:00 and ending at 01:00
	// the next day spans two cells.
	for day := minDay; !day.After(maxDay); day = day.AddDate(0, 0, 1) {
		view.Axis = append(view.Axis, day)
	}

	names := make(map[string]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}

	for _, task := range included {
		assignee, ok := names[task.AssignedTo]
		if !ok {
			view.Faults = append(view.Faults, Fault{
				TaskID: task.ID,
				Reason: "assignee " + task.AssignedTo + " does not exist",
			})
			continue
		}

		path, err := tracker.TaskPath(tasks, task.ID)
		if err != nil {
			view.Faults = append(view.Faults, Fault{TaskID: task.ID, Reason: err.Error()})
			continue
		}

		start := effectiveDate(task.ActualStart, task.PlannedStart)
		end := effectiveDate(task.ActualEnd, task.PlannedEnd)
		if end == nil {
			end = start // open-ended bars occupy a single cell
		}

		startIdx := dayIndex(view.Axis, *start)
		endIdx := dayIndex(view.Axis, *end)
		if startIdx < 0 || endIdx < 0 || endIdx < startIdx {
			view.Faults = append(view.Faults, Fault{
				TaskID: task.ID,
				Reason: "dates do not resolve to the timeline axis",
			})
			continue
		}

		view.Rows = append(view.Rows, Row{
			TaskID:     task.ID,
			Path:       path,
			Label:      joinPath(path),
			Assignee:   assignee,
			Priority:   task.Priority,
			Status:     task.Status,
			StartIndex: startIdx,
			EndIndex:   endIdx,
			Left:       startIdx * CellWidth,
			Width:      (endIdx - startIdx + 1) * CellWidth,
		})
	}

	return view
}

func effectiveDate(actual, planned *time.Time) *time.Time {
	if actual != nil {
		return actual
	}
	return planned
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayIndex locates t's calendar day on the axis, or -1.
func dayIndex(axis []time.Time, t time.Time) int {
	day := truncateDay(t)
	for i, a := range axis {
		if a.Equal(day) {
			return i
		}
	}
	return -1
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}
