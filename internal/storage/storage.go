// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
)

// Storage defines the interface for the detection journal
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Detection operations
	SaveDetection(ctx context.Context, event *models.DetectionEvent) error
	GetDetection(ctx context.Context, mint string) (*models.DetectionEvent, error)
	GetDetections(ctx context.Context, filter models.DetectionFilter) ([]*models.DetectionEvent, error)
	GetDetectionCount(ctx context.Context, filter models.DetectionFilter) (int64, error)

	// Statistics and monitoring
	GetStorageStats() (*StorageStats, error)
	IsHealthy() bool
}

// StorageStats provides storage statistics
type StorageStats struct {
	Type               string           `json:"type"`
	TotalDetections    int64            `json:"total_detections"`
	DetectionsBySource map[string]int64 `json:"detections_by_source"`
	OldestDetection    *time.Time       `json:"oldest_detection,omitempty"`
	LatestDetection    *time.Time       `json:"latest_detection,omitempty"`
	DatabaseSize       int64            `json:"database_size_bytes"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
