package engine

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	config "notegrid.app/notegrid/internal/configs"
	api "notegrid.app/notegrid/internal/http"
	"notegrid.app/notegrid/internal/localstore"
	"notegrid.app/notegrid/internal/remote"
	repository "notegrid.app/notegrid/internal/repositories"
	"notegrid.app/notegrid/internal/services"
	model "notegrid.app/notegrid/pkg/models"
)

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

// apiHarness drives an engine against the real router backed by sqlite.
type apiHarness struct {
	engine *Engine
	client *remote.Client
	hook   *test.Hook
}

func newAPIHarness(t *testing.T, opts ...Option) *apiHarness {
	t.Helper()
	silent, _ := test.NewNullLogger()
	store := repository.NewSQLStore(setupTestDB(t))
	h := api.NewHandler(services.NewAccountService(store, "test"), services.NewDataService(store))
	e := api.NewEcho(silent)
	api.Register(e, h, silent, api.RouteOptions{})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := remote.New(srv.URL, remote.WithHTTPClient(srv.Client())).WithIdentity(testIdentity)
	_, err := client.RegisterIdentity(context.Background(), testIdentity)
	require.NoError(t, err)

	lg, hook := test.NewNullLogger()
	lg.SetLevel(log.DebugLevel)
	base := []Option{
		WithLogger(lg),
		WithDebounce(0),
		WithIDGenerator(sequentialIDs()),
	}
	eng := New(func(id string) Remote { return client.WithIdentity(id) }, localstore.NewMemory(), append(base, opts...)...)
	t.Cleanup(eng.Shutdown)

	eng.Load(context.Background(), testIdentity)
	require.False(t, eng.Loading())
	return &apiHarness{engine: eng, client: client, hook: hook}
}

// server drains pending changes and returns what the API stores.
func (h *apiHarness) server(t *testing.T) model.UserData {
	t.Helper()
	h.engine.Shutdown()
	data, err := h.client.FetchUserData(context.Background())
	require.NoError(t, err)
	return data
}

func (h *apiHarness) requireNoSyncFailures(t *testing.T) {
	t.Helper()
	for _, entry := range h.hook.AllEntries() {
		require.NotEqual(t, "sync failed", entry.Message, "%v", entry.Data)
	}
}

func TestImportOfLooseDocumentReachesServer(t *testing.T) {
	for _, mode := range []string{config.SyncModeDocument, config.SyncModeField} {
		t.Run(mode, func(t *testing.T) {
			h := newAPIHarness(t, WithSyncMode(mode))

			doc := `{
				"createdAt": -7,
				"tasks": [
					{"id": "t1", "title": "x", "createdAt": -1},
					{"id": "` + strings.Repeat("a", 200) + `", "title": "long", "updatedAt": 1e300},
					{"id": "", "title": "blank", "createdAt": 0.25}
				],
				"links": [
					{"id": "l1", "url": " https://go.dev ", "createdAt": -5}
				]
			}`
			res := h.engine.Import([]byte(doc))
			require.True(t, res.Success, res.Error)

			data := h.server(t)
			h.requireNoSyncFailures(t)
			assert.Equal(t, []string{"x", "long", "blank"}, taskTitles(data.Tasks))
			assert.Equal(t, []string{"t1", "id-1", "id-2"}, taskIDs(data.Tasks))
			for _, task := range data.Tasks {
				assert.Positive(t, task.CreatedAt)
				assert.Positive(t, task.UpdatedAt)
			}
			require.Len(t, data.Links, 1)
			assert.Equal(t, "https://go.dev", data.Links[0].URL)
			assert.Positive(t, data.Links[0].CreatedAt)
			assert.Positive(t, data.CreatedAt)
		})
	}
}

func TestBlankLinkDoesNotBlockLaterEdits(t *testing.T) {
	h := newAPIHarness(t)

	_, ok := h.engine.AddLink(model.LinkDraft{URL: "   "})
	assert.False(t, ok)
	assert.Empty(t, h.engine.Links())

	_, ok = h.engine.AddTask(model.TaskUpdate{Title: model.Some("real work")})
	require.True(t, ok)
	_, ok = h.engine.AddLink(model.LinkDraft{URL: "https://go.dev", Title: "Go"})
	require.True(t, ok)

	data := h.server(t)
	h.requireNoSyncFailures(t)
	assert.Equal(t, []string{"real work"}, taskTitles(data.Tasks))
	require.Len(t, data.Links, 1)
	assert.Equal(t, "https://go.dev", data.Links[0].URL)
}

func TestDebouncedEditsReachServer(t *testing.T) {
	h := newAPIHarness(t, WithDebounce(20*time.Millisecond))

	for _, title := range []string{"a", "b", "c"} {
		_, ok := h.engine.AddTask(model.TaskUpdate{Title: model.Some(title)})
		require.True(t, ok)
	}

	require.Eventually(t, func() bool {
		data, err := h.client.FetchUserData(context.Background())
		return err == nil && len(data.Tasks) == 3
	}, 2*time.Second, 10*time.Millisecond)
	h.requireNoSyncFailures(t)
}
