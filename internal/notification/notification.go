// File: internal/notification/notification.go
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// Sender delivers a detection to one external channel
type Sender interface {
	Type() string
	Send(ctx context.Context, event *models.DetectionEvent) error
	Close() error
}

// NotificationManager fans every detection out to its senders
type NotificationManager struct {
	logger *logrus.Entry

	mu      sync.RWMutex
	senders []Sender
	closed  bool

	// Statistics
	stats *NotificationStats
}

// NotificationStats provides notification statistics
type NotificationStats struct {
	TotalNotificationsSent   uint64            `json:"total_notifications_sent"`
	TotalNotificationsFailed uint64            `json:"total_notifications_failed"`
	SentByType               map[string]uint64 `json:"sent_by_type"`
	FailedByType             map[string]uint64 `json:"failed_by_type"`
	ActiveSenders            int               `json:"active_senders"`
	LastError                *string           `json:"last_error,omitempty"`
	LastErrorTime            *time.Time        `json:"last_error_time,omitempty"`
}

// NewNotificationManager creates a manager over the given senders
func NewNotificationManager(senders ...Sender) *NotificationManager {
	return &NotificationManager{
		logger:  utils.ComponentLogger("notification"),
		senders: senders,
		stats: &NotificationStats{
			SentByType:   make(map[string]uint64),
			FailedByType: make(map[string]uint64),
		},
	}
}

// NewNotificationManagerFromConfig creates a manager with every enabled sender
func NewNotificationManagerFromConfig(cfg *config.NotificationConfig) (*NotificationManager, error) {
	var senders []Sender

	if cfg.Webhook.Enabled {
		webhook, err := NewWebhookSender(&cfg.Webhook)
		if err != nil {
			return nil, err
		}
		senders = append(senders, webhook)
	}

	if cfg.Kafka.Enabled {
		kafkaSender, err := NewKafkaSender(&cfg.Kafka)
		if err != nil {
			return nil, err
		}
		senders = append(senders, kafkaSender)
	}

	return NewNotificationManager(senders...), nil
}

// Name identifies the manager as a detection sink
func (nm *NotificationManager) Name() string {
	return "notifications"
}

// HasSenders reports whether any sender is configured
func (nm *NotificationManager) HasSenders() bool {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return len(nm.senders) > 0
}

// HandleDetection sends event to every sender. Every sender is attempted;
// the returned error joins the individual failures.
func (nm *NotificationManager) HandleDetection(ctx context.Context, event *models.DetectionEvent) error {
	nm.mu.RLock()
	senders := nm.senders
	closed := nm.closed
	nm.mu.RUnlock()

	if closed {
		return utils.NewAppError(utils.ErrCodeNotification, "Notification manager is closed")
	}

	var errs []error
	for _, sender := range senders {
		err := sender.Send(ctx, event)
		nm.recordResult(sender.Type(), err)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nm.logger.WithFields(logrus.Fields{
			"type": sender.Type(),
			"mint": event.MintAddress,
		}).Debug("Notification sent")
	}

	if len(errs) > 0 {
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to deliver notification").
			WithCause(errors.Join(errs...))
	}
	return nil
}

// Close closes every sender
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if nm.closed {
		return nil
	}
	nm.closed = true

	var errs []error
	for _, sender := range nm.senders {
		if err := sender.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	nm.logger.Info("Notification manager stopped")
	return errors.Join(errs...)
}

// IsHealthy returns whether the manager accepts detections
func (nm *NotificationManager) IsHealthy() bool {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return !nm.closed
}

// GetStats returns a snapshot of notification statistics
func (nm *NotificationManager) GetStats() *NotificationStats {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	stats := *nm.stats
	stats.SentByType = make(map[string]uint64, len(nm.stats.SentByType))
	for k, v := range nm.stats.SentByType {
		stats.SentByType[k] = v
	}
	stats.FailedByType = make(map[string]uint64, len(nm.stats.FailedByType))
	for k, v := range nm.stats.FailedByType {
		stats.FailedByType[k] = v
	}
	stats.ActiveSenders = len(nm.senders)
	return &stats
}

func (nm *NotificationManager) recordResult(senderType string, err error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if err == nil {
		nm.stats.TotalNotificationsSent++
		nm.stats.SentByType[senderType]++
		return
	}

	now := time.Now()
	msg := err.Error()
	nm.stats.TotalNotificationsFailed++
	nm.stats.FailedByType[senderType]++
	nm.stats.LastError = &msg
	nm.stats.LastErrorTime = &now
}
