// Package model defines the core planboard record types shared by the
// store, tracker, and HTTP layers.
package model

import (
	"fmt"
	"time"
)

// Status is a task's lifecycle state. Transitions only ever move
// forward: not_started -> in_progress -> completed.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is a task's scheduling priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// LogType categorizes an activity log entry.
type LogType string

const (
	LogCreate   LogType = "create"
	LogDelete   LogType = "delete"
	LogAssign   LogType = "assign"
	LogStart    LogType = "start"
	LogComplete LogType = "complete"
)

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogCreate, LogDelete, LogAssign, LogStart, LogComplete:
		return true
	}
	return false
}

// Task hierarchy depth bounds. Level 1 tasks are roots; a child sits
// exactly one level below its parent.
const (
	MinLevel = 1
	MaxLevel = 3
)

// ValidateLevel checks the level of a task against its parent's level.
// parentLevel is 0 for tasks with no parent.
func ValidateLevel(level, parentLevel int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("level %d out of range [%d, %d]", level, MinLevel, MaxLevel)
	}
	if parentLevel == 0 {
		if level != MinLevel {
			return fmt.Errorf("level %d task requires a parent", level)
		}
		return nil
	}
	if level != parentLevel+1 {
		return fmt.Errorf("level %d task cannot attach to a level %d parent", level, parentLevel)
	}
	return nil
}

// Person is a personnel record.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is one node of the task hierarchy. ParentID is empty for root
// tasks; AssignedTo is empty while the task is unassigned.
type Task struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Level          int        `json:"level"`
	ParentID       string     `json:"parent_id,omitempty"`
	Priority       Priority   `json:"priority"`
	EstimatedHours int        `json:"estimated_hours,omitempty"`
	Status         Status     `json:"status"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	PlannedStart   *time.Time `json:"planned_start,omitempty"`
	PlannedEnd     *time.Time `json:"planned_end,omitempty"`
	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LogEntry is one activity log record. The log is append-only and kept
// newest first.
type LogEntry struct {
	ID        string    `json:"id"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
