package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/rueidis"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "notegrid.app/notegrid/internal/errors"
)

const testIdentity = "6f1c2f7e-3b1a-4c55-9d2e-1a2b3c4d5e6f"

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return mr, client
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthStoresNormalizedIdentity(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/me", func(c echo.Context) error {
		seen = Identity(c)
		return c.NoContent(http.StatusNoContent)
	}, Auth())

	tests := []struct {
		name   string
		header string
		status int
		want   string
	}{
		{"canonical", "Bearer " + testIdentity, http.StatusNoContent, testIdentity},
		{"case insensitive scheme and upper id", "BEARER  6F1C2F7E-3B1A-4C55-9D2E-1A2B3C4D5E6F", http.StatusNoContent, testIdentity},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token " + testIdentity, http.StatusUnauthorized, ""},
		{"malformed id", "Bearer 1234", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			rec := serve(e, http.MethodGet, "/me", tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestIdentityWithoutAuth(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "", Identity(c))
}

func TestMemoryLimiterWindows(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "third request in window is rejected")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are counted separately")

	now = now.Add(time.Minute + time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "a new window resets the count")
}

func TestMemoryLimiterSweepsExpiredBuckets(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < maxBuckets; i++ {
		_, _ = l.Allow(context.Background(), time.Duration(i).String())
	}
	now = now.Add(2 * time.Second)
	_, _ = l.Allow(context.Background(), "fresh")
	assert.Len(t, l.buckets, 1)
}

func TestRedisLimiterSharesCounters(t *testing.T) {
	mr, client := setupRedis(t)
	now := time.Unix(1_700_000_000, 0)

	a := NewRedisLimiter(client, "notegrid:", 3, time.Minute)
	b := NewRedisLimiter(client, "notegrid:", 3, time.Minute)
	a.now = func() time.Time { return now }
	b.now = a.now
	ctx := context.Background()

	for _, l := range []*RedisLimiter{a, b, a} {
		ok, err := l.Allow(ctx, "9.9.9.9")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := b.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, ok)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "notegrid:ratelimit:9.9.9.9:")
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, context.DeadlineExceeded
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

func TestRateLimiterMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	e := echo.New()
	e.GET("/open", handler, RateLimiter(brokenLimiter{}, logger))
	e.GET("/closed", handler, RateLimiter(denyLimiter{}, logger))

	rec := serve(e, http.MethodGet, "/open", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "limiter errors let requests through")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "rate limiter unavailable", hook.LastEntry().Message)

	var gotErr error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		gotErr = err
		_ = c.NoContent(apperrors.StatusCode(err))
	}
	rec = serve(e, http.MethodGet, "/closed", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.ErrorIs(t, gotErr, apperrors.ErrRateLimited)
}

func TestTracingRecordsRouteAndStatus(t *testing.T) {
	tp, exporter := setupTestTracer(t)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(statusOf(err))
	}
	e.Use(Tracing(tp.Tracer("test")))
	e.GET("/tasks/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Auth())
	e.GET("/boom", func(c echo.Context) error {
		return apperrors.ErrInternal
	})

	serve(e, http.MethodGet, "/tasks/abc", "Bearer "+testIdentity)
	serve(e, http.MethodGet, "/boom", "")

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "GET /tasks/:id", ok.Name)
	assert.Equal(t, codes.Ok, ok.Status.Code)
	assert.Contains(t, ok.Attributes, attribute.Int("http.status_code", http.StatusOK))
	assert.Contains(t, ok.Attributes, attribute.Bool("notegrid.authenticated", true))

	failed := spans[1]
	assert.Equal(t, "GET /boom", failed.Name)
	assert.Equal(t, codes.Error, failed.Status.Code)
	assert.Contains(t, failed.Attributes, attribute.Int("http.status_code", http.StatusInternalServerError))
	require.NotEmpty(t, failed.Events, "error is recorded on the span")
}
