// File: internal/notification/kafka.go
package notification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// messageWriter is the subset of *kafka.Writer the sender uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes detections to a topic, keyed by mint address
type KafkaSender struct {
	writer messageWriter
	topic  string
	logger *logrus.Entry
	mu     sync.Mutex
}

// DefaultKafkaBatchTimeout bounds how long a write waits to fill a batch
const DefaultKafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaSender creates a sender writing to cfg.Topic
func NewKafkaSender(cfg *config.KafkaConfig) (*KafkaSender, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Kafka brokers and topic are required")
	}

	// Send writes one message per call and blocks the reporting phase, so
	// a batch must not wait for more messages to arrive
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: DefaultKafkaBatchTimeout,
	}
	if cfg.BatchTimeout > 0 {
		writer.BatchTimeout = cfg.BatchTimeout
	}

	return newKafkaSenderWithWriter(writer, cfg.Topic), nil
}

func newKafkaSenderWithWriter(writer messageWriter, topic string) *KafkaSender {
	return &KafkaSender{
		writer: writer,
		topic:  topic,
		logger: utils.ComponentLogger("kafka_sender"),
	}
}

// Type returns the sender type
func (ks *KafkaSender) Type() string {
	return "kafka"
}

// Send writes one message for event
func (ks *KafkaSender) Send(ctx context.Context, event *models.DetectionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal event").WithCause(err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.writer == nil {
		return utils.NewAppError(utils.ErrCodeNotification, "Kafka sender is closed")
	}

	err = ks.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MintAddress),
		Value: value,
	})
	if err != nil {
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to write message to Kafka").WithCause(err)
	}

	ks.logger.WithFields(logrus.Fields{
		"topic": ks.topic,
		"mint":  event.MintAddress,
	}).Debug("Detection published to Kafka")
	return nil
}

// Close flushes and closes the writer
func (ks *KafkaSender) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.writer != nil {
		err := ks.writer.Close()
		ks.writer = nil
		return err
	}
	return nil
}
