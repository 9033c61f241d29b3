// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/metrics"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/internal/monitor"
	"github.com/smartdevs17/solana-mint-scanner/internal/notification"
	"github.com/smartdevs17/solana-mint-scanner/internal/storage"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
	Version       string        `json:"version"`
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	monitor        monitor.Monitor
	notification   *notification.NotificationManager
	metricsManager *metrics.Manager
	logger         *logrus.Entry
	stopUpdater    chan struct{}
}

// NewHTTPServer creates a new HTTP server. notification and metricsManager
// may be nil.
func NewHTTPServer(
	config *ServerConfig,
	storage storage.Storage,
	monitor monitor.Monitor,
	notification *notification.NotificationManager,
	metricsManager *metrics.Manager,
) *HTTPServer {

	server := &HTTPServer{
		config:         config,
		storage:        storage,
		monitor:        monitor,
		notification:   notification,
		metricsManager: metricsManager,
		logger:         utils.ComponentLogger("server"),
		stopUpdater:    make(chan struct{}),
	}

	// Setup router
	server.setupRouter()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoint
	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	// Metrics endpoint
	if s.config.EnableMetrics && s.metricsManager != nil {
		s.router.Handle("/metrics", s.metricsManager.Handler())
	}

	api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	api.HandleFunc("/addresses", s.listAddressesHandler).Methods("GET")

	// Detection endpoints
	api.HandleFunc("/detections", s.listDetectionsHandler).Methods("GET")
	api.HandleFunc("/detections/{mint}", s.getDetectionHandler).Methods("GET")
}

// Handler returns the configured router
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// Update system metrics so they appear on first scrape
	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		go s.systemMetricsUpdater()
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.metricsManager.UpdateSystemMetrics()
		case <-s.stopUpdater:
			return
		}
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")

	select {
	case <-s.stopUpdater:
	default:
		close(s.stopUpdater)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Health Handlers

// healthHandler reports overall and per-component health
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := true
	components := map[string]interface{}{}

	if s.monitor != nil {
		health := s.monitor.GetHealth()
		components["monitor"] = health
		healthy = healthy && health.Healthy
	}
	if s.storage != nil {
		storageHealthy := s.storage.IsHealthy()
		components["storage"] = map[string]bool{"healthy": storageHealthy}
		healthy = healthy && storageHealthy
	}
	if s.notification != nil {
		components["notification"] = map[string]bool{"healthy": s.notification.IsHealthy()}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"version":    s.config.Version,
		"components": components,
	})
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp":       time.Now().UTC(),
		"metrics_enabled": s.config.EnableMetrics,
	}

	if s.storage != nil {
		storageStats, err := s.storage.GetStorageStats()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
			return
		}
		stats["storage"] = storageStats
	}
	if s.monitor != nil {
		stats["monitor"] = s.monitor.GetStats()
	}
	if s.notification != nil {
		stats["notification"] = s.notification.GetStats()
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// listAddressesHandler returns the monitored registry in order
func (s *HTTPServer) listAddressesHandler(w http.ResponseWriter, r *http.Request) {
	addresses := []models.MonitoredAddress{}
	if s.monitor != nil {
		addresses = s.monitor.GetAddresses()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// Detection Handlers

// listDetectionsHandler lists journaled detections, newest first
func (s *HTTPServer) listDetectionsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDetectionFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	detections, err := s.storage.GetDetections(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve detections", err)
		return
	}

	countFilter := filter
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := s.storage.GetDetectionCount(r.Context(), countFilter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to count detections", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"detections": detections,
		"count":      len(detections),
		"total":      total,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

// getDetectionHandler returns the detection for one mint address
func (s *HTTPServer) getDetectionHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]

	detection, err := s.storage.GetDetection(r.Context(), mint)
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			s.writeError(w, http.StatusNotFound, "Detection not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve detection", err)
		return
	}

	s.writeJSON(w, http.StatusOK, detection)
}

// parseDetectionFilter reads source, since, limit and offset. since accepts
// RFC3339 or unix seconds; source may repeat or be comma separated.
func parseDetectionFilter(r *http.Request) (models.DetectionFilter, error) {
	query := r.URL.Query()
	filter := models.DetectionFilter{Limit: defaultPageSize}

	for _, raw := range query["source"] {
		for _, source := range strings.Split(raw, ",") {
			if source = strings.TrimSpace(source); source != "" {
				filter.Sources = append(filter.Sources, source)
			}
		}
	}

	if raw := query.Get("since"); raw != "" {
		since, err := parseTime(raw)
		if err != nil {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid since", raw)
		}
		filter.Since = &since
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid limit", raw)
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		filter.Limit = limit
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid offset", raw)
		}
		filter.Offset = offset
	}

	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Helpers

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err.Error(),
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
