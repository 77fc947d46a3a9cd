package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abduss/homelist/internal/auth"
	"github.com/abduss/homelist/internal/config"
	"github.com/abduss/homelist/internal/image"
	"github.com/abduss/homelist/internal/listing"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeBuckets struct {
	exists bool
	err    error
}

func (f fakeBuckets) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.exists, f.err
}

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) RunOnce(ctx context.Context) (image.SweepResult, error) {
	f.calls++
	return image.SweepResult{Scanned: 3, Removed: 1}, f.err
}

func testConfig() config.Config {
	return config.Config{
		Server:  config.ServerConfig{CORSOrigins: []string{"*"}},
		MinIO:   config.MinIOConfig{Bucket: "homelist"},
		Metrics: config.MetricsConfig{PrometheusPath: "/metrics"},
	}
}

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	dir := t.TempDir()
	images := image.NewDiskStore(filepath.Join(dir, "uploads"))
	store := listing.NewFileStore(filepath.Join(dir, "listings.json"), nil)
	return Dependencies{
		Config:   testConfig(),
		Listings: listing.NewService(store, image.NewIngester(images, 0, nil), nil),
		Images:   images,
	}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealthLive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := serve(NewRouter(newTestDeps(t)), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		mutate    func(*Dependencies)
		want      int
		component string
	}{
		{"file backend only", func(*Dependencies) {}, http.StatusOK, ""},
		{"postgres down", func(d *Dependencies) { d.DB = fakePinger{err: errors.New("refused")} }, http.StatusServiceUnavailable, "postgres"},
		{"bucket missing", func(d *Dependencies) { d.ObjectStore = fakeBuckets{exists: false} }, http.StatusServiceUnavailable, "minio"},
		{"all up", func(d *Dependencies) {
			d.DB = fakePinger{}
			d.ObjectStore = fakeBuckets{exists: true}
		}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			tt.mutate(&deps)

			rr := serve(NewRouter(deps), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.component != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.component, body["component"])
			}
		})
	}
}

func TestHealthReadyReportsCorruptCollection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	path := filepath.Join(dir, "listings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	deps := newTestDeps(t)
	deps.Listings = listing.NewService(listing.NewFileStore(path, nil), nil, nil)

	rr := serve(NewRouter(deps), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "listings")
}

func TestRouterMountsListingsAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(newTestDeps(t))

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/v1/listings", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	rr = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "homelist_http_requests_total")
}

func TestRouterCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := newTestDeps(t)
	deps.Config.Server.CORSOrigins = []string{"https://app.example"}

	req := httptest.NewRequest(http.MethodOptions, "/v1/listings", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := serve(NewRouter(deps), req)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaintenanceSweepRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sweeper := &fakeSweeper{}
	authService := auth.NewService(config.AuthConfig{JWTSecret: "secret", Issuer: "homelist", TokenTTL: time.Minute})
	token, _, err := authService.IssueAccessToken("ops", 0)
	require.NoError(t, err)

	deps := newTestDeps(t)
	deps.Sweeper = sweeper
	deps.AuthService = authService
	r := NewRouter(deps)

	rr := serve(r, httptest.NewRequest(http.MethodPost, "/v1/maintenance/sweep", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, sweeper.calls)

	req := httptest.NewRequest(http.MethodPost, "/v1/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = serve(r, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, sweeper.calls)

	var result image.SweepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Removed)
}

func TestMaintenanceSweepNotMountedWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sweeper := &fakeSweeper{}

	deps := newTestDeps(t)
	deps.Sweeper = sweeper

	rr := serve(NewRouter(deps), httptest.NewRequest(http.MethodPost, "/v1/maintenance/sweep", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Zero(t, sweeper.calls)
}

func TestMaintenanceSweepLogsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	authService := auth.NewService(config.AuthConfig{JWTSecret: "secret", Issuer: "homelist", TokenTTL: time.Minute})
	token, _, err := authService.IssueAccessToken("ops@example.com", 0)
	require.NoError(t, err)

	deps := newTestDeps(t)
	deps.Sweeper = &fakeSweeper{}
	deps.AuthService = authService

	req := httptest.NewRequest(http.MethodPost, "/v1/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := serve(NewRouter(deps), req)
	require.Equal(t, http.StatusOK, rr.Code)

	entries := logs.FilterMessage("manual sweep").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ops@example.com", entries[0].ContextMap()["subject"])
}
