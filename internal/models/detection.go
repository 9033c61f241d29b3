package models

import (
	"time"
)

// MonitoredAddress is a labelled program address polled every cycle
type MonitoredAddress struct {
	Label   string `json:"label" mapstructure:"label"`
	Address string `json:"address" mapstructure:"address"`
}

// DetectionEvent is a newly observed mint, reported once per process lifetime
type DetectionEvent struct {
	ID          string    `json:"id" db:"id"`
	MintAddress string    `json:"mint_address" db:"mint_address"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	AgeMinutes  float64   `json:"age_minutes" db:"age_minutes"`
	Source      string    `json:"source" db:"source"`
	Signature   string    `json:"signature,omitempty" db:"signature"`
	Slot        uint64    `json:"slot,omitempty" db:"slot"`
	DetectedAt  time.Time `json:"detected_at" db:"detected_at"`
}

// DetectionFilter for querying recorded detections
type DetectionFilter struct {
	Sources []string   `json:"sources,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
}

// Matches reports whether the event satisfies the filter's predicates.
// Limit and Offset are applied by the caller.
func (f DetectionFilter) Matches(event *DetectionEvent) bool {
	if f.Since != nil && event.DetectedAt.Before(*f.Since) {
		return false
	}
	if len(f.Sources) == 0 {
		return true
	}
	for _, source := range f.Sources {
		if source == event.Source {
			return true
		}
	}
	return false
}

// FetchResult is the outcome of fetching one address in one cycle.
// Exactly one of Transactions or Err is meaningful.
type FetchResult struct {
	Label        string
	Address      string
	Transactions []Transaction
	Err          error
	Duration     time.Duration
}

// Failed reports whether the fetch ended in a failure
func (r FetchResult) Failed() bool {
	return r.Err != nil
}
