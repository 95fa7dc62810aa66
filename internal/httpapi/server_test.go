package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planboard/planboard/internal/activity"
	"github.com/planboard/planboard/internal/health"
	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/store"
	"github.com/planboard/planboard/internal/tracker"
)

func newTestApp(t *testing.T, cfg ServerConfig) (*fiber.App, *store.Store) {
	t.Helper()

	s, err := store.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	rec := activity.NewRecorder(s, 0, zerolog.Nop())
	tr := tracker.New(s, rec, nil, zerolog.Nop())

	checker := health.NewChecker(zerolog.Nop())
	checker.Register("datastore", func(ctx context.Context) health.Status {
		if err := s.Ping(); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	handlers := NewHandlers(tr, rec, s, checker, nil, zerolog.Nop())
	server := NewServer(cfg, handlers, checker, nil, zerolog.Nop())
	return server.App(), s
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	return out
}

func createPerson(t *testing.T, app *fiber.App, name, role string) model.Person {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/personnel", fiber.Map{"name": name, "role": role})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return *decode[PersonResponse](t, resp).Person
}

func createTask(t *testing.T, app *fiber.App, name string, level int, parentID string) model.Task {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks", fiber.Map{
		"name": name, "level": level, "parent_id": parentID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return *decode[TaskResponse](t, resp).Task
}

func TestProbes(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/readyz", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPersonnelCRUD(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/personnel", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[PersonListResponse](t, resp)
	assert.Zero(t, list.Total)
	assert.NotNil(t, list.Personnel)

	alice := createPerson(t, app, "Alice", "Eng")
	assert.NotEmpty(t, alice.ID)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/personnel", nil)
	list = decode[PersonListResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Alice", list.Personnel[0].Name)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/personnel/"+alice.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/personnel/"+alice.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "not_found", problem.Type)
	assert.Equal(t, fiber.StatusNotFound, problem.Status)
}

func TestCreatePerson_MissingName(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/personnel", fiber.Map{"role": "Eng"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "invalid_input", problem.Type)
}

func TestTaskLifecycle(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	alice := createPerson(t, app, "Alice", "Eng")
	build := createTask(t, app, "Build", 1, "")
	design := createTask(t, app, "Design", 2, build.ID)

	// Assign with a planned window.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+design.ID+"/assign", fiber.Map{
		"person_id":     alice.ID,
		"planned_start": "2024-01-01",
		"planned_end":   "2024-01-03",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assigned := decode[TaskResponse](t, resp).Task
	assert.Equal(t, alice.ID, assigned.AssignedTo)
	assert.Equal(t, model.StatusNotStarted, assigned.Status)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+design.ID+"/start", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	started := decode[TaskResponse](t, resp).Task
	assert.Equal(t, model.StatusInProgress, started.Status)
	assert.NotNil(t, started.ActualStart)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+design.ID+"/complete", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	completed := decode[TaskResponse](t, resp).Task
	assert.Equal(t, model.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.ActualEnd)
}

func TestStartUnassignedTask_Conflict(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	build := createTask(t, app, "Build", 1, "")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+build.ID+"/start", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "invalid_transition", problem.Type)
}

func TestCreateTask_LevelConstraint(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	build := createTask(t, app, "Build", 1, "")

	// Skipping a level is a constraint violation, not a bad request.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks", fiber.Map{
		"name": "Impl", "level": 3, "parent_id": build.ID,
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "constraint_violation", problem.Type)
}

func TestCreateTask_MissingParentIs404(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks", fiber.Map{
		"name": "Orphan", "level": 2, "parent_id": "ghost",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssign_InvalidDate(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	alice := createPerson(t, app, "Alice", "Eng")
	build := createTask(t, app, "Build", 1, "")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+build.ID+"/assign", fiber.Map{
		"person_id":     alice.ID,
		"planned_start": "January 1st",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "invalid_date", problem.Type)
}

func TestDeleteTask_Cascades(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	build := createTask(t, app, "Build", 1, "")
	design := createTask(t, app, "Design", 2, build.ID)
	createTask(t, app, "Impl", 3, design.ID)

	resp := doJSON(t, app, http.MethodDelete, "/api/v1/tasks/"+build.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks", nil)
	list := decode[TaskListResponse](t, resp)
	assert.Zero(t, list.Total)
}

func TestTaskPathEndpoint(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	build := createTask(t, app, "Build", 1, "")
	design := createTask(t, app, "Design", 2, build.ID)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/tasks/"+design.ID+"/path", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	path := decode[TaskPathResponse](t, resp)
	assert.Equal(t, []string{"Build", "Design"}, path.Path)
}

func TestGanttEndpoint(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	alice := createPerson(t, app, "Alice", "Eng")
	build := createTask(t, app, "Build", 1, "")
	design := createTask(t, app, "Design", 2, build.ID)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks/"+design.ID+"/assign", fiber.Map{
		"person_id":     alice.ID,
		"planned_start": "2024-01-01",
		"planned_end":   "2024-01-03",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/gantt", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var view struct {
		Axis []string `json:"axis"`
		Rows []struct {
			Label    string `json:"label"`
			Assignee string `json:"assignee"`
			Left     int    `json:"left"`
			Width    int    `json:"width"`
		} `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()

	assert.Len(t, view.Axis, 3)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Build > Design", view.Rows[0].Label)
	assert.Equal(t, "Alice", view.Rows[0].Assignee)
	assert.Equal(t, 0, view.Rows[0].Left)
	assert.Equal(t, 240, view.Rows[0].Width)
}

func TestLogsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	createPerson(t, app, "Alice", "Eng")
	createTask(t, app, "Build", 1, "")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/logs", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	logs := decode[LogListResponse](t, resp)
	require.Equal(t, 2, logs.Total)
	// Newest first: the task create precedes the person create.
	assert.Contains(t, logs.Logs[0].Message, "Build")
	assert.Contains(t, logs.Logs[1].Message, "Alice")

	resp = doJSON(t, app, http.MethodGet, "/api/v1/logs?limit=1", nil)
	logs = decode[LogListResponse](t, resp)
	assert.Equal(t, 1, logs.Total)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})
	createPerson(t, app, "Alice", "Eng")
	createTask(t, app, "Build", 1, "")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/backup", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	archive, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEmpty(t, archive)

	// Restore into a completely fresh instance.
	fresh, _ := newTestApp(t, ServerConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", bytes.NewReader(archive))
	req.Header.Set("Content-Type", "application/zip")
	restoreResp, err := fresh.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, restoreResp.StatusCode)
	restoreResp.Body.Close()

	resp = doJSON(t, fresh, http.MethodGet, "/api/v1/personnel", nil)
	people := decode[PersonListResponse](t, resp)
	require.Equal(t, 1, people.Total)
	assert.Equal(t, "Alice", people.Personnel[0].Name)

	resp = doJSON(t, fresh, http.MethodGet, "/api/v1/tasks", nil)
	tasks := decode[TaskListResponse](t, resp)
	assert.Equal(t, 1, tasks.Total)
}

func TestRestore_RejectsGarbage(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", bytes.NewReader([]byte("not a zip")))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthDetailEndpoint(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	detail := decode[HealthDetailResponse](t, resp)
	assert.Equal(t, "ok", detail.Status)
	assert.Equal(t, "ok", detail.Checks["datastore"])
	assert.NotEmpty(t, detail.Uptime)
}

func TestAuthAPIKeyMode(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{
		AuthConfig: AuthConfig{Mode: "api-key", APIKey: "secret-key"},
	})

	// No credentials.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Wrong key.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Correct key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Probes stay open.
	resp = doJSON(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUnknownRouteProblem(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/tasks", nil)
	first := resp.Header.Get("X-Request-ID")
	assert.NotEmpty(t, first)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks", nil)
	assert.NotEqual(t, first, resp.Header.Get("X-Request-ID"))
}

func TestRateLimitExhaustion(t *testing.T) {
	app, _ := newTestApp(t, ServerConfig{
		RateLimit: RateLimitConfig{RPS: 1, Burst: 2},
	})

	var limited bool
	for i := 0; i < 10; i++ {
		resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/tasks?i=%d", i), nil)
		if resp.StatusCode == fiber.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected at least one 429 after exhausting the burst")
}
