// File: internal/monitor/scanner.go
package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartdevs17/solana-mint-scanner/internal/metrics"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// EventSink receives every reported detection
type EventSink interface {
	Name() string
	HandleDetection(ctx context.Context, event *models.DetectionEvent) error
}

// CycleResult contains the outcome of one scan cycle
type CycleResult struct {
	Cycle        uint64                  `json:"cycle"`
	StartedAt    time.Time               `json:"started_at"`
	Duration     time.Duration           `json:"duration"`
	Transactions int                     `json:"transactions"`
	Failures     int                     `json:"failures"`
	Results      []models.FetchResult    `json:"-"`
	Events       []models.DetectionEvent `json:"events"`
}

// Scanner runs one full cycle: concurrent fetch of every address, then
// detection and reporting in registry order
type Scanner struct {
	fetcher   TransactionFetcher
	detector  *Detector
	addresses []models.MonitoredAddress
	seen      *SeenSet
	sinks     []EventSink
	metrics   *metrics.PrometheusMetrics
	logger    *logrus.Entry

	cycles    atomic.Uint64
	seenCount atomic.Int64
}

// NewScanner creates a scanner over addresses with an empty seen set
func NewScanner(fetcher TransactionFetcher, detector *Detector, addresses []models.MonitoredAddress) *Scanner {
	if detector == nil {
		detector = NewDetector(nil)
	}
	addrs := make([]models.MonitoredAddress, len(addresses))
	copy(addrs, addresses)

	return &Scanner{
		fetcher:   fetcher,
		detector:  detector,
		addresses: addrs,
		seen:      NewSeenSet(),
		logger:    utils.ComponentLogger("scanner"),
	}
}

// AddSink registers a sink for reported detections
func (s *Scanner) AddSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// SetMetrics enables metric recording
func (s *Scanner) SetMetrics(m *metrics.PrometheusMetrics) {
	s.metrics = m
	if m != nil {
		m.UpdateMonitoredAddresses(len(s.addresses))
	}
}

// SetLogger replaces the scanner's log entry
func (s *Scanner) SetLogger(logger *logrus.Entry) {
	s.logger = logger
}

// Addresses returns a copy of the monitored registry
func (s *Scanner) Addresses() []models.MonitoredAddress {
	addrs := make([]models.MonitoredAddress, len(s.addresses))
	copy(addrs, s.addresses)
	return addrs
}

// SeenCount returns the seen set size as of the last completed cycle
func (s *Scanner) SeenCount() int {
	return int(s.seenCount.Load())
}

// ScanOnce runs one cycle. It always completes, whatever the fetch outcomes.
func (s *Scanner) ScanOnce(ctx context.Context) *CycleResult {
	result := &CycleResult{
		Cycle:     s.cycles.Add(1),
		StartedAt: time.Now(),
	}

	s.logger.WithFields(logrus.Fields{
		"cycle":     result.Cycle,
		"addresses": len(s.addresses),
	}).Info("Starting scan cycle")

	result.Results = s.fetchAll(ctx)

	for _, res := range result.Results {
		s.recordFetch(res)

		if res.Failed() {
			result.Failures++
			fields := logrus.Fields{
				"label":   res.Label,
				"address": res.Address,
				"error":   res.Err.Error(),
			}
			var fetchErr *FetchError
			if errors.As(res.Err, &fetchErr) {
				fields["code"] = fetchErr.Code()
			}
			s.logger.WithFields(fields).Error("Error while scanning address")
			continue
		}

		result.Transactions += len(res.Transactions)
		events := s.detector.Detect(res.Label, res.Transactions, s.seen)
		if len(events) == 0 {
			s.logger.WithField("source", res.Label).Info("No new tokens detected")
			continue
		}

		for i := range events {
			s.report(ctx, &events[i])
		}
		result.Events = append(result.Events, events...)
	}

	result.Duration = time.Since(result.StartedAt)
	s.seenCount.Store(int64(s.seen.Len()))
	if s.metrics != nil {
		s.metrics.UpdateSeenMints(s.seen.Len())
		s.metrics.RecordCycle(result.Duration, time.Now())
	}

	s.logger.WithFields(logrus.Fields{
		"cycle":      result.Cycle,
		"detections": len(result.Events),
		"failures":   result.Failures,
		"duration":   result.Duration.String(),
	}).Info("Scan cycle complete")

	return result
}

// fetchAll launches one fetch per address and waits for all of them.
// Results are indexed by registry position.
func (s *Scanner) fetchAll(ctx context.Context) []models.FetchResult {
	results := make([]models.FetchResult, len(s.addresses))

	var g errgroup.Group
	for i, addr := range s.addresses {
		i, addr := i, addr
		g.Go(func() error {
			results[i] = s.fetcher.Fetch(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scanner) report(ctx context.Context, event *models.DetectionEvent) {
	s.logger.WithFields(logrus.Fields{
		"mint":        event.MintAddress,
		"source":      event.Source,
		"timestamp":   event.Timestamp.Format(time.RFC3339),
		"age_minutes": event.AgeMinutes,
	}).Info("New token detected")

	if s.metrics != nil {
		s.metrics.RecordDetection(event.Source)
	}

	for _, sink := range s.sinks {
		if err := sink.HandleDetection(ctx, event); err != nil {
			s.logger.WithFields(logrus.Fields{
				"sink":  sink.Name(),
				"mint":  utils.ShortAddress(event.MintAddress),
				"error": err.Error(),
			}).Warn("Failed to deliver detection")
			if s.metrics != nil {
				s.metrics.RecordSinkFailure(sink.Name())
			}
		}
	}
}

func (s *Scanner) recordFetch(res models.FetchResult) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if res.Failed() {
		status = "failure"
	}
	s.metrics.RecordFetch(res.Label, status, len(res.Transactions), res.Duration)
}
