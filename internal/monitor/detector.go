// File: internal/monitor/detector.go
package monitor

import (
	"math"
	"time"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// SeenSet holds every mint address reported so far. It only grows.
// It is not safe for concurrent use; the Scanner mutates it from a single
// reporting flow.
type SeenSet struct {
	mints map[string]struct{}
}

// NewSeenSet creates an empty seen set
func NewSeenSet() *SeenSet {
	return &SeenSet{mints: make(map[string]struct{})}
}

// Contains reports whether mint was already reported
func (s *SeenSet) Contains(mint string) bool {
	_, ok := s.mints[mint]
	return ok
}

// Add records mint and reports whether it was new
func (s *SeenSet) Add(mint string) bool {
	if s.Contains(mint) {
		return false
	}
	s.mints[mint] = struct{}{}
	return true
}

// Len returns the number of distinct mints
func (s *SeenSet) Len() int {
	return len(s.mints)
}

// Detector turns a transaction batch into detection events
type Detector struct {
	now func() time.Time
}

// NewDetector creates a detector; nil now uses time.Now
func NewDetector(now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{now: now}
}

// Detect returns one event per qualifying mint transfer whose mint is not in
// seen, in transaction then transfer order, adding each such mint to seen.
// Transactions without a timestamp are skipped.
func (d *Detector) Detect(source string, txs []models.Transaction, seen *SeenSet) []models.DetectionEvent {
	now := d.now().UTC()
	var events []models.DetectionEvent

	for _, tx := range txs {
		if !tx.HasTimestamp {
			continue
		}
		ts := tx.Time()

		for _, transfer := range tx.TokenTransfers {
			if !transfer.IsMint() || !seen.Add(transfer.Mint) {
				continue
			}
			events = append(events, models.DetectionEvent{
				ID:          utils.CreateDetectionID(source, transfer.Mint, tx.Signature),
				MintAddress: transfer.Mint,
				Timestamp:   ts,
				AgeMinutes:  AgeMinutes(now, ts),
				Source:      source,
				Signature:   tx.Signature,
				Slot:        tx.Slot,
				DetectedAt:  now,
			})
		}
	}

	return events
}

// AgeMinutes returns now-ts in minutes rounded to two decimals. A timestamp
// in the future yields a negative age.
func AgeMinutes(now, ts time.Time) float64 {
	return math.Round(now.Sub(ts).Seconds()/60*100) / 100
}
