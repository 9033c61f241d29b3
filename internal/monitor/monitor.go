// File: internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/connection"
	"github.com/smartdevs17/solana-mint-scanner/internal/metrics"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// DefaultInterval is the sleep between the end of one cycle and the start of the next
const DefaultInterval = 3 * time.Second

// Monitor defines the mint monitor interface
type Monitor interface {
	// Lifecycle management
	Run(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool

	// Scanning
	ScanOnce(ctx context.Context) *CycleResult
	GetAddresses() []models.MonitoredAddress

	// Statistics and monitoring
	GetStats() *MonitorStats
	GetHealth() *HealthStatus
}

// MintMonitor schedules scan cycles until its context is cancelled. It is
// single-use: the session is closed when the loop exits, so a finished
// monitor cannot be run or started again.
type MintMonitor struct {
	// Dependencies
	scanner *Scanner
	session connection.Session
	logger  *logrus.Entry

	// Configuration
	config *MonitorConfig

	// State management
	mu       sync.RWMutex
	running  bool
	finished bool
	cancel   context.CancelFunc
	done     chan struct{}

	// Statistics
	lastFailures   int
	stats          *MonitorStats
	metricsManager *metrics.Manager
}

// MonitorConfig holds monitor configuration
type MonitorConfig struct {
	Interval time.Duration `json:"interval"`
}

// MonitorStats provides monitoring statistics
type MonitorStats struct {
	StartTime          time.Time     `json:"start_time"`
	Uptime             time.Duration `json:"uptime"`
	IsRunning          bool          `json:"is_running"`
	CyclesCompleted    uint64        `json:"cycles_completed"`
	TotalTransactions  uint64        `json:"total_transactions"`
	TotalDetections    uint64        `json:"total_detections"`
	FailedFetches      uint64        `json:"failed_fetches"`
	SeenMints          int           `json:"seen_mints"`
	AddressesMonitored int           `json:"addresses_monitored"`
	LastCycleAt        *time.Time    `json:"last_cycle_at,omitempty"`
	LastCycleDuration  time.Duration `json:"last_cycle_duration"`
	LastError          *string       `json:"last_error,omitempty"`
	LastErrorTime      *time.Time    `json:"last_error_time,omitempty"`
}

// HealthStatus provides health information
type HealthStatus struct {
	Healthy     bool       `json:"healthy"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
	Issues      []string   `json:"issues,omitempty"`
}

// NewMintMonitor creates a monitor that owns session and closes it on exit
func NewMintMonitor(scanner *Scanner, session connection.Session, config *MonitorConfig) *MintMonitor {
	if config == nil {
		config = &MonitorConfig{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &MintMonitor{
		scanner: scanner,
		session: session,
		config:  config,
		logger:  utils.ComponentLogger("monitor"),
		stats: &MonitorStats{
			StartTime:          time.Now(),
			AddressesMonitored: len(scanner.addresses),
		},
	}
}

// SetMetricsManager enables metric recording for the monitor and its scanner
func (mm *MintMonitor) SetMetricsManager(m *metrics.Manager) {
	mm.metricsManager = m
	if m != nil {
		mm.scanner.SetMetrics(m.GetPrometheusMetrics())
	}
}

// Run scans until ctx is cancelled, sleeping the configured interval after
// each cycle completes. The session is closed on return.
func (mm *MintMonitor) Run(ctx context.Context) error {
	mm.mu.RLock()
	finished := mm.finished
	mm.mu.RUnlock()
	if finished {
		return errMonitorFinished()
	}
	defer mm.closeSession()

	mm.logger.WithFields(logrus.Fields{
		"interval":  mm.config.Interval.String(),
		"addresses": len(mm.scanner.addresses),
	}).Info("Starting scan loop")

	for {
		if ctx.Err() != nil {
			mm.logger.Info("Scan loop stopped by context")
			return nil
		}

		mm.recordCycle(mm.scanner.ScanOnce(ctx))

		select {
		case <-ctx.Done():
			mm.logger.Info("Scan loop stopped by context")
			return nil
		case <-time.After(mm.config.Interval):
		}
	}
}

// Start runs the scan loop in the background
func (mm *MintMonitor) Start(ctx context.Context) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Monitor already running", "")
	}
	if mm.finished {
		return errMonitorFinished()
	}

	runCtx, cancel := context.WithCancel(ctx)
	mm.cancel = cancel
	mm.done = make(chan struct{})
	mm.running = true
	mm.stats.StartTime = time.Now()
	mm.stats.IsRunning = true

	go func(done chan struct{}) {
		defer close(done)
		_ = mm.Run(runCtx)

		mm.mu.Lock()
		mm.running = false
		mm.stats.IsRunning = false
		mm.mu.Unlock()
	}(mm.done)

	mm.logger.Info("Mint monitor started")
	return nil
}

// Stop cancels the background loop and waits for it to finish
func (mm *MintMonitor) Stop() error {
	mm.mu.Lock()
	cancel, done := mm.cancel, mm.done
	mm.cancel = nil
	mm.mu.Unlock()

	if cancel == nil {
		return nil
	}

	mm.logger.Info("Stopping mint monitor")
	cancel()
	<-done
	mm.logger.Info("Mint monitor stopped")
	return nil
}

// IsRunning returns whether the background loop is running
func (mm *MintMonitor) IsRunning() bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.running
}

// ScanOnce runs a single cycle and records its statistics
func (mm *MintMonitor) ScanOnce(ctx context.Context) *CycleResult {
	result := mm.scanner.ScanOnce(ctx)
	mm.recordCycle(result)
	return result
}

// GetAddresses returns the monitored registry
func (mm *MintMonitor) GetAddresses() []models.MonitoredAddress {
	return mm.scanner.Addresses()
}

// GetStats returns a snapshot of monitor statistics
func (mm *MintMonitor) GetStats() *MonitorStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	stats := *mm.stats
	stats.Uptime = time.Since(stats.StartTime)
	stats.SeenMints = mm.scanner.SeenCount()
	return &stats
}

// GetHealth reports unhealthy when the last cycle failed for every address
// or no cycle has completed recently
func (mm *MintMonitor) GetHealth() *HealthStatus {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	health := &HealthStatus{Healthy: true, LastCycleAt: mm.stats.LastCycleAt}

	if mm.stats.LastCycleAt != nil {
		if stale := 10 * (mm.config.Interval + mm.stats.LastCycleDuration); time.Since(*mm.stats.LastCycleAt) > stale {
			health.Issues = append(health.Issues, fmt.Sprintf("no scan cycle completed in %s", stale))
		}
	}
	if mm.lastCycleAllFailed() {
		health.Issues = append(health.Issues, "every address failed in the last cycle")
	}

	health.Healthy = len(health.Issues) == 0
	return health
}

func (mm *MintMonitor) recordCycle(result *CycleResult) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	completedAt := result.StartedAt.Add(result.Duration)
	mm.stats.CyclesCompleted++
	mm.stats.TotalTransactions += uint64(result.Transactions)
	mm.stats.TotalDetections += uint64(len(result.Events))
	mm.stats.FailedFetches += uint64(result.Failures)
	mm.stats.LastCycleAt = &completedAt
	mm.stats.LastCycleDuration = result.Duration
	mm.stats.SeenMints = mm.scanner.SeenCount()

	mm.lastFailures = result.Failures
	for _, res := range result.Results {
		if res.Failed() {
			msg := res.Err.Error()
			mm.stats.LastError = &msg
			mm.stats.LastErrorTime = &completedAt
		}
	}

	if mm.metricsManager != nil {
		mm.metricsManager.UpdateSystemMetrics()
	}
}

func (mm *MintMonitor) lastCycleAllFailed() bool {
	return mm.stats.CyclesCompleted > 0 && mm.stats.AddressesMonitored > 0 &&
		mm.lastFailures == mm.stats.AddressesMonitored
}

func errMonitorFinished() error {
	return utils.NewAppError(utils.ErrCodeInternal, "Monitor already finished", "connection session is closed")
}

func (mm *MintMonitor) closeSession() {
	mm.mu.Lock()
	mm.finished = true
	mm.mu.Unlock()

	if mm.session == nil {
		return
	}
	if err := mm.session.Close(); err != nil {
		mm.logger.WithError(err).Warn("Failed to close connection session")
	}
}
