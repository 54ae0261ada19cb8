package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/car-park/app"
	"github.com/upb/car-park/config"
	"github.com/upb/car-park/repositories/postgres"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, basePath string) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Port: 8080, BasePath: basePath},
		SDK: config.SDKConfig{
			API: config.APISDKConfig{Endpoints: []config.APIEndpoint{{Name: config.DefaultAPIName}}},
		},
		Cognito:   config.CognitoConfig{HookSecret: "hook-secret"},
		Redis:     config.RedisConfig{Addr: "127.0.0.1:1"},
		Parking:   config.ParkingConfig{HourlyRate: 2, OperatorGroup: "operators"},
		Scheduler: config.SchedulerConfig{JWKSRefreshSchedule: "@every 1h"},
	}

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	logger := zap.NewNop()
	deps, err := app.NewDependenciesFromDB(context.Background(), cfg, postgres.Wrap(sqlDB, logger), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	return SetupRoutes(deps)
}

func serve(h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader("{}"))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes(t *testing.T) {
	router := newTestRouter(t, "/")

	tests := []struct {
		name         string
		method       string
		target       string
		headers      map[string]string
		wantStatus   int
		wantLocation string
	}{
		{name: "liveness", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK},
		{name: "home page", method: http.MethodGet, target: "/", wantStatus: http.StatusOK},
		{name: "login page", method: http.MethodGet, target: "/login", wantStatus: http.StatusOK},
		{name: "register page", method: http.MethodGet, target: "/register", wantStatus: http.StatusOK},
		{name: "profile page without session", method: http.MethodGet, target: "/profile", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "profile api without token", method: http.MethodGet, target: "/api/v1/profile", wantStatus: http.StatusUnauthorized},
		{name: "detections without token", method: http.MethodPost, target: "/api/v1/detections", wantStatus: http.StatusUnauthorized},
		{name: "hook without secret", method: http.MethodPost, target: "/api/v1/hooks/post-confirmation", wantStatus: http.StatusUnauthorized},
		{
			name:       "hook with wrong secret",
			method:     http.MethodPost,
			target:     "/api/v1/hooks/post-confirmation",
			headers:    map[string]string{"X-Hook-Secret": "guess"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "hook ignores other triggers",
			method:     http.MethodPost,
			target:     "/api/v1/hooks/post-confirmation",
			headers:    map[string]string{"X-Hook-Secret": "hook-secret"},
			wantStatus: http.StatusOK,
		},
		{name: "unknown path", method: http.MethodGet, target: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.target, tt.headers)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestSetupRoutes_BasePath(t *testing.T) {
	router := newTestRouter(t, "/car-park")

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/car-park/login", nil).Code)

	w := serve(router, http.MethodGet, "/car-park/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/car-park/login", w.Header().Get("Location"))

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/car-park/api/v1/profile", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/login", nil).Code)
}
