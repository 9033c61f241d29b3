package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// MemoryStorage keeps the journal in process memory
type MemoryStorage struct {
	mu        sync.RWMutex
	connected bool
	byMint    map[string]*models.DetectionEvent
	ordered   []*models.DetectionEvent
}

// NewMemoryStorage creates an empty in-memory journal
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byMint: make(map[string]*models.DetectionEvent)}
}

func (m *MemoryStorage) Connect() error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Ping() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return nil
}

func (m *MemoryStorage) Migrate() error {
	return m.Ping()
}

func (m *MemoryStorage) SaveDetection(ctx context.Context, event *models.DetectionEvent) error {
	if err := m.Ping(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byMint[event.MintAddress]; ok {
		return nil
	}
	stored := *event
	m.byMint[event.MintAddress] = &stored
	m.ordered = append(m.ordered, &stored)
	return nil
}

func (m *MemoryStorage) GetDetection(ctx context.Context, mint string) (*models.DetectionEvent, error) {
	if err := m.Ping(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.byMint[mint]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Detection not found", mint)
	}
	found := *event
	return &found, nil
}

func (m *MemoryStorage) GetDetections(ctx context.Context, filter models.DetectionFilter) ([]*models.DetectionEvent, error) {
	matched, err := m.matching(filter)
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*models.DetectionEvent{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *MemoryStorage) GetDetectionCount(ctx context.Context, filter models.DetectionFilter) (int64, error) {
	matched, err := m.matching(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (m *MemoryStorage) GetStorageStats() (*StorageStats, error) {
	if err := m.Ping(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &StorageStats{
		Type:               "memory",
		TotalDetections:    int64(len(m.ordered)),
		DetectionsBySource: make(map[string]int64),
	}
	for _, event := range m.ordered {
		stats.DetectionsBySource[event.Source]++
		at := event.DetectedAt
		if stats.OldestDetection == nil || at.Before(*stats.OldestDetection) {
			stats.OldestDetection = &at
		}
		if stats.LatestDetection == nil || at.After(*stats.LatestDetection) {
			stats.LatestDetection = &at
		}
	}
	return stats, nil
}

func (m *MemoryStorage) IsHealthy() bool {
	return m.Ping() == nil
}

// matching returns copies of matching events, newest first
func (m *MemoryStorage) matching(filter models.DetectionFilter) ([]*models.DetectionEvent, error) {
	if err := m.Ping(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*models.DetectionEvent{}
	for i := len(m.ordered) - 1; i >= 0; i-- {
		if filter.Matches(m.ordered[i]) {
			event := *m.ordered[i]
			matched = append(matched, &event)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].DetectedAt.After(matched[b].DetectedAt)
	})
	return matched, nil
}
