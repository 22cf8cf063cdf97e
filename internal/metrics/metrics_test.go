package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, counter.WithLabelValues(labels...).(prometheus.Metric).Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddleware_CountsByMethodAndStatus(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/", "/", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, float64(2), counterValue(t, m.HTTPRequests, "GET", "200"))
	require.Equal(t, float64(1), counterValue(t, m.HTTPRequests, "GET", "404"))
}

func TestRecorders(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordMembershipEvent("org.invite_created")
	m.RecordMembershipEvent("org.invite_created")
	m.RecordMailDelivery("sent")
	m.LiveSubscriptions.Set(3)

	require.Equal(t, float64(2), counterValue(t, m.MembershipEvents, "org.invite_created"))
	require.Equal(t, float64(1), counterValue(t, m.MailDeliveries, "sent"))

	var g dto.Metric
	require.NoError(t, m.LiveSubscriptions.Write(&g))
	require.Equal(t, float64(3), g.GetGauge().GetValue())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordMembershipEvent("x")
	m.RecordMailDelivery("sent")

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	m.RecordMailDelivery("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `printshop_mail_deliveries_total{result="failed"} 1`))
}

func TestNew_RejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
