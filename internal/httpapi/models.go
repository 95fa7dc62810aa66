// Package httpapi provides the planboard HTTP API.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/planboard/planboard/internal/errors"
	"github.com/planboard/planboard/internal/model"
)

// --- Request DTOs ---

// AssignTaskRequest is the payload for POST /api/v1/tasks/:id/assign.
// Dates accept "2006-01-02" or RFC 3339.
type AssignTaskRequest struct {
	PersonID     string `json:"person_id"`
	PlannedStart string `json:"planned_start,omitempty"`
	PlannedEnd   string `json:"planned_end,omitempty"`
}

// --- Response DTOs ---

// PersonResponse wraps a Person.
type PersonResponse struct {
	Person *model.Person `json:"person"`
}

// PersonListResponse wraps the personnel collection.
type PersonListResponse struct {
	Personnel []model.Person `json:"personnel"`
	Total     int            `json:"total"`
}

// TaskResponse wraps a Task.
type TaskResponse struct {
	Task *model.Task `json:"task"`
}

// TaskListResponse wraps the task collection.
type TaskListResponse struct {
	Tasks []model.Task `json:"tasks"`
	Total int          `json:"total"`
}

// TaskPathResponse is the response for GET /api/v1/tasks/:id/path.
type TaskPathResponse struct {
	Path []string `json:"path"`
}

// LogListResponse wraps activity log entries, newest first.
type LogListResponse struct {
	Logs  []model.LogEntry `json:"logs"`
	Total int              `json:"total"`
}

// HealthDetailResponse is the response for GET /api/v1/health.
type HealthDetailResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime string            `json:"uptime"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// domainProblem maps a tracker/store error onto a problem response.
func domainProblem(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return problemResponse(c, fiber.StatusConflict,
			"invalid_transition", "Conflict", err.Error())
	case errors.Is(err, apperrors.ErrConstraint):
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"constraint_violation", "Unprocessable Entity", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	case errors.Is(err, apperrors.ErrCorruptHierarchy):
		return problemResponse(c, fiber.StatusInternalServerError,
			"corrupt_hierarchy", "Internal Server Error", err.Error())
	case apperrors.IsPersistence(err):
		return problemResponse(c, fiber.StatusInternalServerError,
			"persistence_failure", "Internal Server Error",
			"The operation was not committed; retry the request")
	default:
		return problemResponse(c, fiber.StatusInternalServerError,
			"internal_error", "Internal Server Error", "An internal error occurred")
	}
}
