package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	api "notegrid.app/notegrid/internal/http"
	repository "notegrid.app/notegrid/internal/repositories"
	"notegrid.app/notegrid/internal/services"
	model "notegrid.app/notegrid/pkg/models"
)

const testIdentity = "0d9a4c1e-8f2b-4a6d-b3c7-5e9f1a2b3c4d"

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

func newTestClient(t *testing.T) *Client {
	logger, _ := test.NewNullLogger()
	store := repository.NewSQLStore(setupTestDB(t))
	h := api.NewHandler(services.NewAccountService(store, "test"), services.NewDataService(store))

	e := api.NewEcho(logger)
	api.Register(e, h, logger, api.RouteOptions{})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "test", h.Version)
}

func TestRegisterAndExists(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	exists, err := c.CheckExists(ctx, testIdentity)
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := c.RegisterIdentity(ctx, testIdentity)
	require.NoError(t, err)
	assert.Empty(t, data.Tasks)

	_, err = c.RegisterIdentity(ctx, testIdentity)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "UUID already registered", apiErr.Message)

	exists, err = c.CheckExists(ctx, testIdentity)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.CheckExists(ctx, "not a uuid")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	c := newTestClient(t)
	_, err := c.FetchUserData(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid or missing authorization", apiErr.Message)
}

func TestTaskLifecycle(t *testing.T) {
	c := newTestClient(t).WithIdentity(testIdentity)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		task := model.NewTask(id, 1)
		task.Title = "task " + id
		_, err := c.CreateTask(ctx, task)
		require.NoError(t, err)
	}

	updated, err := c.UpdateTask(ctx, "a", model.TaskUpdate{
		Quadrant:  model.Some(model.QuadrantDecide),
		Completed: model.Some(true),
	})
	require.NoError(t, err)
	assert.Equal(t, model.QuadrantDecide, updated.Quadrant)
	assert.True(t, updated.Completed)
	assert.Equal(t, "task a", updated.Title)

	cleared, err := c.UpdateTask(ctx, "a", model.TaskUpdate{Quadrant: model.Null[model.Quadrant]()})
	require.NoError(t, err)
	assert.Equal(t, model.QuadrantNone, cleared.Quadrant)

	_, err = c.UpdateTask(ctx, "missing", model.TaskUpdate{Title: model.Some("x")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, c.ReorderTasks(ctx, []string{"b", "a"}))
	tasks, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].ID)

	require.NoError(t, c.DeleteTask(ctx, "b"))
	require.NoError(t, c.DeleteTask(ctx, "b"))

	data, err := c.FetchUserData(ctx)
	require.NoError(t, err)
	require.Len(t, data.Tasks, 1)
	assert.Equal(t, "a", data.Tasks[0].ID)
}

func TestLinkLifecycle(t *testing.T) {
	c := newTestClient(t).WithIdentity(testIdentity)
	ctx := context.Background()

	for _, id := range []string{"x", "y"} {
		_, err := c.CreateLink(ctx, model.Link{ID: id, URL: "https://example.com/" + id, CreatedAt: 1})
		require.NoError(t, err)
	}
	require.NoError(t, c.ReorderLinks(ctx, []string{"y", "x"}))

	links, err := c.FetchLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "y", links[0].ID)

	require.NoError(t, c.DeleteLink(ctx, "y"))
	links, err = c.FetchLinks(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestReplaceUserDataAndDeleteAccount(t *testing.T) {
	c := newTestClient(t).WithIdentity(testIdentity)
	ctx := context.Background()

	doc := model.NewUserData(100)
	doc.Tasks = append(doc.Tasks, model.NewTask("t1", 100))
	doc.Links = append(doc.Links, model.Link{ID: "l1", URL: "https://go.dev", CreatedAt: 100})

	echoed, err := c.ReplaceUserData(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(100), echoed.CreatedAt)
	assert.Greater(t, echoed.UpdatedAt, int64(100))

	got, err := c.FetchUserData(ctx)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 1)
	require.Len(t, got.Links, 1)

	require.NoError(t, c.DeleteAccount(ctx))
	got, err = c.FetchUserData(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
	assert.Empty(t, got.Links)
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond)).WithIdentity(testIdentity)
	_, err := c.FetchUserData(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestNonEnvelopeErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).FetchTasks(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestEnvelopeDataIsDecodedFromRawPayload(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL).WithIdentity(testIdentity)
	ctx := context.Background()

	body = `{"success":true,"data":[{"id":"t1","title":"x","tags":["a"],"q":"do","kanban":null}]}`
	tasks, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "x", tasks[0].Title)
	assert.Equal(t, []string{"a"}, tasks[0].Tags)
	assert.Equal(t, model.QuadrantDo, tasks[0].Quadrant)
	assert.Equal(t, model.KanbanNone, tasks[0].Kanban)

	body = `{"success":true,"data":null}`
	require.NoError(t, c.ReorderTasks(ctx, []string{"t1"}))

	body = `{"success":false,"error":"Task not found"}`
	err = c.DeleteTask(ctx, "t1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Task not found", apiErr.Message)
}
