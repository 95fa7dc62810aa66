package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/planboard/planboard/internal/activity"
	"github.com/planboard/planboard/internal/gantt"
	"github.com/planboard/planboard/internal/health"
	"github.com/planboard/planboard/internal/metrics"
	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/store"
	"github.com/planboard/planboard/internal/tracker"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	tracker   *tracker.Tracker
	recorder  *activity.Recorder
	store     *store.Store
	checker   *health.Checker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	tr *tracker.Tracker,
	rec *activity.Recorder,
	st *store.Store,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		tracker:   tr,
		recorder:  rec,
		store:     st,
		checker:   checker,
		metrics:   m,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

func (h *Handlers) recordError(module string, err error) {
	if h.metrics != nil {
		h.metrics.RecordError(module, errType(err))
	}
}

// --- Personnel ---

// ListPersonnel handles GET /api/v1/personnel.
func (h *Handlers) ListPersonnel(c *fiber.Ctx) error {
	people := h.tracker.People()
	if people == nil {
		people = []model.Person{}
	}
	return c.JSON(PersonListResponse{Personnel: people, Total: len(people)})
}

// CreatePerson handles POST /api/v1/personnel.
func (h *Handlers) CreatePerson(c *fiber.Ctx) error {
	var req tracker.CreatePersonInput
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	person, err := h.tracker.CreatePerson(req)
	if err != nil {
		h.recordError("personnel", err)
		return domainProblem(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(PersonResponse{Person: person})
}

// DeletePerson handles DELETE /api/v1/personnel/:id.
func (h *Handlers) DeletePerson(c *fiber.Ctx) error {
	if err := h.tracker.DeletePerson(c.Params("id")); err != nil {
		h.recordError("personnel", err)
		return domainProblem(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// --- Tasks ---

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	tasks := h.tracker.Tasks()
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.JSON(TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req tracker.CreateTaskInput
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	task, err := h.tracker.CreateTask(req)
	if err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(TaskResponse{Task: task})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	task, err := h.tracker.Task(c.Params("id"))
	if err != nil {
		return domainProblem(c, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	if err := h.tracker.DeleteTask(c.Params("id")); err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// TaskPath handles GET /api/v1/tasks/:id/path.
func (h *Handlers) TaskPath(c *fiber.Ctx) error {
	path, err := h.tracker.TaskPath(c.Params("id"))
	if err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.JSON(TaskPathResponse{Path: path})
}

// AssignTask handles POST /api/v1/tasks/:id/assign.
func (h *Handlers) AssignTask(c *fiber.Ctx) error {
	var req AssignTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.PersonID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_person", "Bad Request",
			"person_id is required")
	}

	start, err := parseDate(req.PlannedStart)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_date", "Bad Request", err.Error())
	}
	end, err := parseDate(req.PlannedEnd)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_date", "Bad Request", err.Error())
	}

	task, err := h.tracker.AssignTask(c.Params("id"), req.PersonID, start, end)
	if err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// StartTask handles POST /api/v1/tasks/:id/start.
func (h *Handlers) StartTask(c *fiber.Ctx) error {
	task, err := h.tracker.StartTask(c.Params("id"))
	if err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// CompleteTask handles POST /api/v1/tasks/:id/complete.
func (h *Handlers) CompleteTask(c *fiber.Ctx) error {
	task, err := h.tracker.CompleteTask(c.Params("id"))
	if err != nil {
		h.recordError("tasks", err)
		return domainProblem(c, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// --- Gantt ---

// Gantt handles GET /api/v1/gantt.
func (h *Handlers) Gantt(c *fiber.Ctx) error {
	view := gantt.Project(h.tracker.Tasks(), h.tracker.People())
	return c.JSON(view)
}

// --- Activity log ---

// ListLogs handles GET /api/v1/logs.
func (h *Handlers) ListLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	logs := h.recorder.Recent(limit)
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return c.JSON(LogListResponse{Logs: logs, Total: len(logs)})
}

// --- Backup & restore ---

// Backup handles GET /api/v1/backup. Streams a zip of all collections.
func (h *Handlers) Backup(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.store.ExportArchive(&buf); err != nil {
		h.recordError("backup", err)
		return problemResponse(c, fiber.StatusInternalServerError,
			"backup_failed", "Internal Server Error", err.Error())
	}

	filename := fmt.Sprintf("planboard-backup-%s.zip", time.Now().UTC().Format("20060102-150405"))
	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// Restore handles POST /api/v1/restore. Replaces all collections from an
// uploaded backup zip.
func (h *Handlers) Restore(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"empty_body", "Bad Request",
			"Request body must contain a backup archive")
	}

	if err := h.store.ImportArchive(bytes.NewReader(body)); err != nil {
		h.recordError("restore", err)
		return problemResponse(c, fiber.StatusBadRequest,
			"restore_failed", "Bad Request", err.Error())
	}

	personnel, tasks, logs := h.store.Counts()
	return c.JSON(fiber.Map{
		"ok":        true,
		"personnel": personnel,
		"tasks":     tasks,
		"logs":      logs,
	})
}

// --- Probes & health ---

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	checks := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		checks[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	return c.JSON(HealthDetailResponse{
		Status: overall,
		Checks: checks,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
