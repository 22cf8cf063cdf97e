package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/aliuyar1234/printshop/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Env:              "dev",
		BaseURL:          "http://localhost:8080",
		JWTSecret:        "test-secret",
		SessionDays:      7,
		LoginRateLimit:   2,
		DesignHourlyRate: config.DefaultDesignHourlyRate,
	}
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	// No handler reached in these tests touches the pool.
	services := NewServices(nil, cfg, live.NewMemoryBus(), m)
	return NewRouter(RouterDeps{
		Config:   cfg,
		DB:       db,
		Services: services,
		Metrics:  m,
		Live:     live.NewHandler(live.NewHub(), services.LiveSources(), live.DefaultConfig(), nil),
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, fakePinger{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(apperrors.RequestIDHeader))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	down := newTestRouter(t, fakePinger{err: errors.New("connection refused")})
	rec = serve(down, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"retryable":true`)
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, fakePinger{})

	serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	h := newTestRouter(t, fakePinger{})

	for _, path := range []string{
		"/api/v1/session",
		"/api/v1/auth/me",
		"/api/v1/orgs/00000000-0000-0000-0000-000000000001",
		"/api/v1/orgs/00000000-0000-0000-0000-000000000001/projects",
		"/api/v1/orgs/00000000-0000-0000-0000-000000000001/live/projects",
	} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_CSRFAndLoginRateLimit(t *testing.T) {
	h := newTestRouter(t, fakePinger{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Set-Cookie"), auth.CSRFCookieName+"=")
	require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	// Without the double-submit token the login form is refused outright.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	require.Equal(t, http.StatusForbidden, serve(h, req).Code)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{`))
		req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: "token"})
		req.Header.Set(auth.CSRFHeaderName, "token")
		return serve(h, req).Code
	}
	require.Equal(t, http.StatusBadRequest, login())
	require.Equal(t, http.StatusBadRequest, login())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{`))
	req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: "token"})
	req.Header.Set(auth.CSRFHeaderName, "token")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}
