package storage

import (
	"context"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
)

// Recorder journals every reported detection
type Recorder struct {
	store Storage
}

// NewRecorder creates a detection sink backed by store
func NewRecorder(store Storage) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Name() string {
	return "journal"
}

func (r *Recorder) HandleDetection(ctx context.Context, event *models.DetectionEvent) error {
	return r.store.SaveDetection(ctx, event)
}
