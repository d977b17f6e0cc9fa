package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetlink/pkg/client"
	"fleetlink/pkg/config"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/middleware"

	"github.com/go-redis/redismock/v9"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":"pong"}`))
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    1 << 20,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a := NewApplication(cfg)
	a.SetApp(pingHandler{})
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a
}

func TestSetApp_RoutesRegisteredHandlers(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"data":"pong"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSetApp_ExposesMetrics(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "fleetlink_http_requests_total"))
}

func TestSetApp_RejectsWrongContentType(t *testing.T) {
	a := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestSetApp_IdempotencyStoreFollowsRedis(t *testing.T) {
	a := newTestApp(t, testConfig())
	_, inMemory := a.idempotencyStore.(*middleware.InMemoryIdempotencyStore)
	assert.True(t, inMemory)

	cfg := testConfig()
	db, _ := redismock.NewClientMock()
	cfg.Client.Redis = db
	a = newTestApp(t, cfg)
	_, inRedis := a.idempotencyStore.(*middleware.RedisIdempotencyStore)
	assert.True(t, inRedis)
}

func TestGracefulShutdown_ClosesInReverseOrder(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(pingHandler{})

	var order []string
	a.OnShutdown("first", closerFunc(func() error { order = append(order, "first"); return nil }))
	a.OnShutdown("second", closerFunc(func() error { order = append(order, "second"); return nil }))

	a.gracefulShutdown()

	assert.Equal(t, []string{"second", "first"}, order)
}
