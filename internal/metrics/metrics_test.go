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

func TestRecorders(t *testing.T) {
	m := NewManager()
	p := m.GetPrometheusMetrics()

	p.RecordCycle(250*time.Millisecond, time.Unix(1700000000, 0))
	p.RecordFetch("Saber", "success", 3, 10*time.Millisecond)
	p.RecordFetch("Saber", "failure", 0, time.Millisecond)
	p.RecordDetection("Saber")
	p.RecordDetection("Saber")
	p.UpdateSeenMints(2)
	p.RecordSinkFailure("webhook")
	p.UpdateMonitoredAddresses(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.CyclesTotal))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(p.LastCycleTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.FetchRequestsTotal.WithLabelValues("Saber", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.FetchRequestsTotal.WithLabelValues("Saber", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.TransactionsFetchedTotal.WithLabelValues("Saber")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.DetectionsTotal.WithLabelValues("Saber")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.SeenMints))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.SinkFailuresTotal.WithLabelValues("webhook")))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.MonitoredAddresses))
}

func TestManagersAreIndependent(t *testing.T) {
	a := NewManager()
	b := NewManager()

	a.GetPrometheusMetrics().RecordDetection("A")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.GetPrometheusMetrics().DetectionsTotal.WithLabelValues("A")))
}

func TestHandler(t *testing.T) {
	m := NewManager()
	m.UpdateSystemMetrics()
	m.GetPrometheusMetrics().RecordDetection("Token Program")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `solscanner_detections_total{source="Token Program"} 1`))
	assert.True(t, strings.Contains(body, "solscanner_goroutines"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
