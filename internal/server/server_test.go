package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/solana-mint-scanner/internal/metrics"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/internal/monitor"
	"github.com/smartdevs17/solana-mint-scanner/internal/notification"
	"github.com/smartdevs17/solana-mint-scanner/internal/storage"
)

type fakeMonitor struct {
	healthy bool
}

func (f *fakeMonitor) Run(ctx context.Context) error   { return nil }
func (f *fakeMonitor) Start(ctx context.Context) error { return nil }
func (f *fakeMonitor) Stop() error                     { return nil }
func (f *fakeMonitor) IsRunning() bool                 { return true }
func (f *fakeMonitor) ScanOnce(ctx context.Context) *monitor.CycleResult {
	return &monitor.CycleResult{}
}

func (f *fakeMonitor) GetAddresses() []models.MonitoredAddress {
	return []models.MonitoredAddress{
		{Label: "Token Program", Address: "TokenkegQfeZyiNwAJbNbGKPFXCWvBvf9Ss623VQ5DA"},
		{Label: "Saber", Address: "SaberESsHnJptWVA4z7hEFS4wCWv95fkt2yC7oDwP23"},
	}
}

func (f *fakeMonitor) GetStats() *monitor.MonitorStats {
	return &monitor.MonitorStats{CyclesCompleted: 4, AddressesMonitored: 2}
}

func (f *fakeMonitor) GetHealth() *monitor.HealthStatus {
	health := &monitor.HealthStatus{Healthy: f.healthy}
	if !f.healthy {
		health.Issues = []string{"every address failed in the last cycle"}
	}
	return health
}

func newTestServer(t *testing.T, mon *fakeMonitor) (*HTTPServer, storage.Storage, *metrics.Manager) {
	t.Helper()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Connect())

	ctx := context.Background()
	for i, mint := range []string{"M1", "M2", "M3"} {
		source := "Saber"
		if mint == "M2" {
			source = "Token Program"
		}
		at := time.Unix(int64(1000*(i+1)), 0).UTC()
		require.NoError(t, store.SaveDetection(ctx, &models.DetectionEvent{
			ID:          "id-" + mint,
			MintAddress: mint,
			Timestamp:   at.Add(-time.Minute),
			AgeMinutes:  1,
			Source:      source,
			DetectedAt:  at,
		}))
	}

	manager := metrics.NewManager()
	srv := NewHTTPServer(&ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		EnableMetrics: true,
		EnableHealth:  true,
		Version:       "test",
	}, store, mon, notification.NewNotificationManager(), manager)
	return srv, store, manager
}

func serve(t *testing.T, srv *HTTPServer, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthHandler(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})
	rec, body := serve(t, srv, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	srv, _, _ = newTestServer(t, &fakeMonitor{healthy: false})
	rec, body = serve(t, srv, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestHealthReflectsStorage(t *testing.T) {
	srv, store, _ := newTestServer(t, &fakeMonitor{healthy: true})
	require.NoError(t, store.Close())

	rec, _ := serve(t, srv, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsHandler(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})
	rec, body := serve(t, srv, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	storageStats := body["storage"].(map[string]interface{})
	assert.Equal(t, float64(3), storageStats["total_detections"])
	monitorStats := body["monitor"].(map[string]interface{})
	assert.Equal(t, float64(4), monitorStats["cycles_completed"])
	assert.Contains(t, body, "notification")
}

func TestListAddresses(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})
	rec, body := serve(t, srv, "/api/v1/addresses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])

	addresses := body["addresses"].([]interface{})
	assert.Equal(t, "Token Program", addresses[0].(map[string]interface{})["label"])
	assert.Equal(t, "Saber", addresses[1].(map[string]interface{})["label"])
}

func TestListDetections(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})

	tests := []struct {
		name   string
		target string
		mints  []string
		total  float64
	}{
		{"all newest first", "/api/v1/detections", []string{"M3", "M2", "M1"}, 3},
		{"source filter", "/api/v1/detections?source=Saber", []string{"M3", "M1"}, 2},
		{"comma separated sources", "/api/v1/detections?source=Saber,Token%20Program", []string{"M3", "M2", "M1"}, 3},
		{"since unix seconds", "/api/v1/detections?since=1500", []string{"M3", "M2"}, 2},
		{"since rfc3339", "/api/v1/detections?since=1970-01-01T00:41:40Z", []string{"M3"}, 1},
		{"pagination", "/api/v1/detections?limit=1&offset=1", []string{"M2"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, srv, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.total, body["total"])

			var got []string
			for _, d := range body["detections"].([]interface{}) {
				got = append(got, d.(map[string]interface{})["mint_address"].(string))
			}
			assert.Equal(t, tt.mints, got)
		})
	}
}

func TestListDetectionsRejectsBadQuery(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})

	for _, target := range []string{
		"/api/v1/detections?limit=0",
		"/api/v1/detections?limit=abc",
		"/api/v1/detections?offset=-1",
		"/api/v1/detections?since=yesterday",
	} {
		rec, body := serve(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "Invalid query parameters", body["error"], target)
	}
}

func TestGetDetection(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})

	rec, body := serve(t, srv, "/api/v1/detections/M2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Token Program", body["source"])

	rec, body = serve(t, srv, "/api/v1/detections/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Detection not found", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})

	serve(t, srv, "/api/v1/detections/M1")
	rec, _ := serve(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "solscanner_http_requests_total")
	assert.Contains(t, body, `path="/api/v1/detections/{mint}"`)
	assert.NotContains(t, body, `path="/api/v1/detections/M1"`)
}

func TestDisabledEndpoints(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Connect())
	srv := NewHTTPServer(&ServerConfig{}, store, &fakeMonitor{healthy: true}, nil, nil)

	rec, _ := serve(t, srv, "/api/v1/health")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = serve(t, srv, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeMonitor{healthy: true})
	require.NoError(t, srv.Start())
	assert.NoError(t, srv.Stop(context.Background()))
}
