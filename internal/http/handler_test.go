package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	middleware "notegrid.app/notegrid/internal/http/middlewares"
	repository "notegrid.app/notegrid/internal/repositories"
	"notegrid.app/notegrid/internal/services"
	model "notegrid.app/notegrid/pkg/models"
)

const testIdentity = "6f1c2f7e-3b1a-4c55-9d2e-1a2b3c4d5e6f"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(repository.Models()...); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newTestServer(t *testing.T, opts RouteOptions) (*echo.Echo, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	store := repository.NewSQLStore(setupTestDB(t))
	h := NewHandler(services.NewAccountService(store, "test-version"), services.NewDataService(store))

	e := NewEcho(logger)
	Register(e, h, logger, opts)
	return e, hook
}

func do(t *testing.T, e *echo.Echo, method, path, auth, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func bearer(id string) string { return "Bearer " + id }

func TestHealthIsBareObject(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	rec, _ := do(t, e, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.NotZero(t, body["timestamp"])
	assert.NotContains(t, body, "success")
}

func TestExistsNeverErrors(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})

	rec, env := do(t, e, http.MethodGet, "/api/exists/not-a-uuid", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"exists":false}`, string(env.Data))

	do(t, e, http.MethodPost, "/api/register", "", `{"uuid":"`+testIdentity+`"}`)
	_, env = do(t, e, http.MethodGet, "/api/exists/"+strings.ToUpper(testIdentity), "", "")
	assert.JSONEq(t, `{"exists":true}`, string(env.Data))
}

func TestRegister(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})

	rec, env := do(t, e, http.MethodPost, "/api/register", "", `{"uuid":"`+testIdentity+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var data model.UserData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Tasks)
	assert.NotNil(t, data.Links)

	rec, env = do(t, e, http.MethodPost, "/api/register", "", `{"uuid":"`+testIdentity+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "UUID already registered", env.Error)

	rec, env = do(t, e, http.MethodPost, "/api/register", "", `{"uuid":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid UUID format", env.Error)

	rec, env = do(t, e, http.MethodPost, "/api/register", "", `{{{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestAuthRequired(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})

	for _, auth := range []string{"", "Basic " + testIdentity, "Bearer", "Bearer not-a-uuid", testIdentity} {
		rec, env := do(t, e, http.MethodGet, "/api/data", auth, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "auth %q", auth)
		assert.Equal(t, "Invalid or missing authorization", env.Error)
		assert.False(t, env.Success)
	}

	rec, env := do(t, e, http.MethodGet, "/api/data", "bearer   "+strings.ToUpper(testIdentity), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestUnknownIdentityGetsEmptyRecord(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})

	rec, env := do(t, e, http.MethodGet, "/api/data", bearer(testIdentity), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data model.UserData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Tasks)
	assert.Empty(t, data.Links)
	assert.NotZero(t, data.CreatedAt)
}

func TestTaskEndpoints(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	auth := bearer(testIdentity)

	for _, id := range []string{"a", "b", "c"} {
		rec, env := do(t, e, http.MethodPost, "/api/tasks", auth, `{"id":"`+id+`","title":"task `+id+`","q":"do"}`)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
	}

	rec, env := do(t, e, http.MethodPost, "/api/tasks", auth, `{"id":"a"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)

	rec, env = do(t, e, http.MethodPost, "/api/tasks", auth, `{"title":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Error)

	rec, env = do(t, e, http.MethodPut, "/api/tasks/b", auth, `{"q":null,"kanban":"done","note":null}`)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var task model.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, model.QuadrantNone, task.Quadrant)
	assert.Equal(t, model.KanbanDone, task.Kanban)
	assert.Equal(t, "task b", task.Title)
	assert.Contains(t, string(env.Data), `"q":null`)

	rec, env = do(t, e, http.MethodPut, "/api/tasks/zzz", auth, `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", env.Error)

	rec, _ = do(t, e, http.MethodPut, "/api/tasks/b", auth, `{"q":"sometime"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, e, http.MethodPut, "/api/tasks/reorder", auth, `{"taskIds":["c","a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Equal(t, "null", string(env.Data))

	rec, env = do(t, e, http.MethodDelete, "/api/tasks/a", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodDelete, "/api/tasks/a", auth, "")
	assert.Equal(t, http.StatusOK, rec.Code, "delete is idempotent")

	_, env = do(t, e, http.MethodGet, "/api/tasks", auth, "")
	var tasks []model.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "c", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestLinkEndpoints(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	auth := bearer(testIdentity)

	for _, id := range []string{"l1", "l2"} {
		rec, env := do(t, e, http.MethodPost, "/api/links", auth, `{"id":"`+id+`","url":"https://example.com/`+id+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
	}
	rec, _ := do(t, e, http.MethodPost, "/api/links", auth, `{"id":"l3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "url is required")

	rec, _ = do(t, e, http.MethodPut, "/api/links/reorder", auth, `{"linkIds":["l2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env := do(t, e, http.MethodGet, "/api/links", auth, "")
	var links []model.Link
	require.NoError(t, json.Unmarshal(env.Data, &links))
	require.Len(t, links, 2)
	assert.Equal(t, "l2", links[0].ID)

	rec, _ = do(t, e, http.MethodDelete, "/api/links/l2", auth, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPutDataReplacesDocument(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	auth := bearer(testIdentity)

	do(t, e, http.MethodPost, "/api/tasks", auth, `{"id":"old"}`)

	body := `{"tasks":[{"id":"n2","title":"second"},{"id":"n1","title":"first","tags":["x"]}],"links":[],"createdAt":5,"updatedAt":6}`
	rec, env := do(t, e, http.MethodPut, "/api/data", auth, body)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var echoed model.UserData
	require.NoError(t, json.Unmarshal(env.Data, &echoed))
	assert.Equal(t, int64(5), echoed.CreatedAt)
	assert.Greater(t, echoed.UpdatedAt, int64(6))

	_, env = do(t, e, http.MethodGet, "/api/data", auth, "")
	var data model.UserData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Tasks, 2)
	assert.Equal(t, "n2", data.Tasks[0].ID)
	assert.Equal(t, []string{"x"}, data.Tasks[1].Tags)

	rec, _ = do(t, e, http.MethodPut, "/api/data", auth, `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAccountCascades(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	auth := bearer(testIdentity)

	do(t, e, http.MethodPost, "/api/register", "", `{"uuid":"`+testIdentity+`"}`)
	do(t, e, http.MethodPost, "/api/tasks", auth, `{"id":"a"}`)
	do(t, e, http.MethodPost, "/api/links", auth, `{"id":"l","url":"https://go.dev"}`)

	rec, env := do(t, e, http.MethodDelete, "/api/account", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	_, env = do(t, e, http.MethodGet, "/api/data", auth, "")
	var data model.UserData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Tasks)
	assert.Empty(t, data.Links)

	_, env = do(t, e, http.MethodGet, "/api/exists/"+testIdentity, "", "")
	assert.JSONEq(t, `{"exists":false}`, string(env.Data))
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})
	rec, env := do(t, e, http.MethodGet, "/api/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Not found", env.Error)
}

func TestCORSPreflight(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set(echo.HeaderOrigin, "chrome-extension://abc")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
}

func TestRateLimitedRequestsGetEnvelope(t *testing.T) {
	e, _ := newTestServer(t, RouteOptions{Limiter: middleware.NewMemoryLimiter(2, time.Minute)})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, e, http.MethodGet, "/api/health", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, e, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", env.Error)
}

func TestRequestsAreLogged(t *testing.T) {
	e, hook := newTestServer(t, RouteOptions{})
	do(t, e, http.MethodGet, "/api/health", "", "")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "http.request", entry.Message)
	assert.Equal(t, "/api/health", entry.Data["route"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
