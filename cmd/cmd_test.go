package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "notegrid.app/notegrid/internal/configs"
	httpapi "notegrid.app/notegrid/internal/http"
	middleware "notegrid.app/notegrid/internal/http/middlewares"
	"notegrid.app/notegrid/internal/identity"
	"notegrid.app/notegrid/internal/remote"
	repository "notegrid.app/notegrid/internal/repositories"
	"notegrid.app/notegrid/internal/services"
	model "notegrid.app/notegrid/pkg/models"
)

func startAPI(t *testing.T) string {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := config.Config{StoreBackend: config.BackendSQL, DatabaseDSN: ":memory:"}

	store, err := newStore(context.Background(), cfg, nil, logger)
	require.NoError(t, err)

	e := httpapi.NewEcho(logger)
	httpapi.Register(e, httpapi.NewHandler(
		services.NewAccountService(store, "test"),
		services.NewDataService(store),
	), logger, httpapi.RouteOptions{})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeClientConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	yaml := "api_url: " + apiURL + "\nsync_mode: field\ndebounce: 0s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClientCommandsAgainstAPI(t *testing.T) {
	apiURL := startAPI(t)
	dir := writeClientConfig(t, apiURL)

	_, err := run(t, dir, "tasks", "list")
	assert.ErrorIs(t, err, errNoIdentity)

	out, err := run(t, dir, "identity", "register")
	require.NoError(t, err)
	id := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	require.True(t, identity.Validate(id), out)

	out, err = run(t, dir, "identity", "show")
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(out))

	_, err = run(t, dir, "tasks", "add", "write report")
	require.NoError(t, err)
	_, err = run(t, dir, "tasks", "add", "call bank")
	require.NoError(t, err)
	_, err = run(t, dir, "links", "capture", "https://go.dev/blog")
	require.NoError(t, err)
	_, err = run(t, dir, "links", "capture", "https://go.dev/blog")
	assert.ErrorContains(t, err, "already saved")

	out, err = run(t, dir, "tasks", "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "write report")

	api := remote.New(apiURL).WithIdentity(id)
	data, err := api.FetchUserData(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Tasks, 2)
	assert.Equal(t, "write report", data.Tasks[0].Title)
	assert.Equal(t, "call bank", data.Tasks[1].Title)
	require.Len(t, data.Links, 1)
	assert.Equal(t, "go.dev", data.Links[0].Title)

	out, err = run(t, dir, "data", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exportedAt")

	_, err = run(t, dir, "identity", "logout")
	require.NoError(t, err)
	_, err = run(t, dir, "identity", "show")
	assert.ErrorIs(t, err, errNoIdentity)
}

func TestIdentityValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "identity", "validate", "6F1C2F7E-3B1A-4C55-9D2E-1A2B3C4D5E6F")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	_, err = run(t, dir, "identity", "validate", "nope")
	assert.ErrorIs(t, err, identity.ErrInvalidFormat)
}

func TestGroupUpdate(t *testing.T) {
	upd, err := groupUpdate(model.GroupQuadrant, "decide")
	require.NoError(t, err)
	assert.Equal(t, model.Some(model.QuadrantDecide), upd.Quadrant)

	upd, err = groupUpdate(model.GroupKanban, "")
	require.NoError(t, err)
	assert.True(t, upd.Kanban.Null)

	_, err = groupUpdate(model.GroupColor, "#123456")
	assert.Error(t, err)

	_, err = groupUpdate(model.GroupQuadrant, "later")
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	l := newLimiter(config.Config{RateLimit: 5, RateLimitBackend: config.LimiterMemory}, nil)
	assert.IsType(t, &middleware.MemoryLimiter{}, l)
}

func TestNewStoreDefaultsToSQL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := config.Config{StoreBackend: config.BackendSQL, DatabaseDSN: ":memory:"}

	store, err := newStore(context.Background(), cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLStore{}, store)
}
