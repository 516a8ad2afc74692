package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveGatewayRequest("get_camera_alerts", "ok", 120*time.Millisecond)
	m.ObserveGatewayRequest("get_camera_alerts", "NETWORK_UNREACHABLE", time.Second)
	m.IncPoll("Library Fights", "success")
	m.IncPoll("Library Fights", "success")
	m.IncPollSkipped("Library Fights")
	m.IncStaleCompletion("Library Fights")
	m.IncNotification("Library Fights")
	m.IncSMSFallback()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.gatewayRequests.WithLabelValues("get_camera_alerts", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.pollsTotal.WithLabelValues("Library Fights", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pollsSkipped.WithLabelValues("Library Fights")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.staleCompletions.WithLabelValues("Library Fights")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("Library Fights")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.smsFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.gatewayDurationMs))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := New()
	b := New()

	a.IncSMSFallback()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.smsFallbacks))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.smsFallbacks))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncNotification("Gate")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `crimewatch_alert_notifications_total{watch="Gate"} 1`))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveGatewayRequest("health", "ok", time.Millisecond)
		m.IncPoll("w", "success")
		m.IncPollSkipped("w")
		m.IncStaleCompletion("w")
		m.IncNotification("w")
		m.IncSMSFallback()
	})
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
