package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

func sampleEvent() *models.DetectionEvent {
	return &models.DetectionEvent{
		ID:          utils.CreateDetectionID("Saber", "M1", "sig"),
		MintAddress: "M1",
		Timestamp:   time.Unix(1000, 0).UTC(),
		AgeMinutes:  2,
		Source:      "Saber",
		Signature:   "sig",
		DetectedAt:  time.Unix(1120, 0).UTC(),
	}
}

func TestWebhookSend(t *testing.T) {
	var payload WebhookPayload
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(&config.WebhookConfig{
		URL:     srv.URL,
		Timeout: time.Second,
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), sampleEvent()))
	assert.Equal(t, "token.mint", payload.Type)
	assert.Equal(t, "solana-mint-scanner", payload.Source)
	assert.Equal(t, "1.0", payload.Version)
	require.NotNil(t, payload.Data)
	assert.Equal(t, "M1", payload.Data.MintAddress)
	assert.Equal(t, 2.0, payload.Data.AgeMinutes)
	assert.Equal(t, "Bearer token", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.NotEmpty(t, headers.Get("X-Request-ID"))
}

func TestWebhookNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(&config.WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	err = sender.Send(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeNotification))
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookInvalidURL(t *testing.T) {
	_, err := NewWebhookSender(&config.WebhookConfig{URL: "not a url"})
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSend(t *testing.T) {
	writer := &fakeWriter{}
	sender := newKafkaSenderWithWriter(writer, "solana-token-mints")

	require.NoError(t, sender.Send(context.Background(), sampleEvent()))
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "M1", string(writer.msgs[0].Key))

	var decoded models.DetectionEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	assert.Equal(t, "Saber", decoded.Source)

	require.NoError(t, sender.Close())
	assert.True(t, writer.closed)
	assert.Error(t, sender.Send(context.Background(), sampleEvent()))
}

func TestNewKafkaSenderValidates(t *testing.T) {
	_, err := NewKafkaSender(&config.KafkaConfig{Topic: "t"})
	assert.Error(t, err)

	sender, err := NewKafkaSender(&config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, "kafka", sender.Type())

	// Each detection is flushed on its own write
	writer, ok := sender.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, writer.BatchSize)
	assert.Equal(t, DefaultKafkaBatchTimeout, writer.BatchTimeout)
	require.NoError(t, sender.Close())

	sender, err = NewKafkaSender(&config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", BatchTimeout: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, sender.writer.(*kafka.Writer).BatchTimeout)
	require.NoError(t, sender.Close())
}

type stubSender struct {
	kind  string
	err   error
	count int
}

func (s *stubSender) Type() string { return s.kind }

func (s *stubSender) Send(ctx context.Context, event *models.DetectionEvent) error {
	s.count++
	return s.err
}

func (s *stubSender) Close() error { return nil }

func TestManagerAttemptsEverySender(t *testing.T) {
	failing := &stubSender{kind: "webhook", err: errors.New("down")}
	working := &stubSender{kind: "kafka"}
	nm := NewNotificationManager(failing, working)

	err := nm.HandleDetection(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeNotification))
	assert.Equal(t, 1, failing.count)
	assert.Equal(t, 1, working.count)

	stats := nm.GetStats()
	assert.Equal(t, uint64(1), stats.TotalNotificationsSent)
	assert.Equal(t, uint64(1), stats.TotalNotificationsFailed)
	assert.Equal(t, uint64(1), stats.FailedByType["webhook"])
	assert.Equal(t, uint64(1), stats.SentByType["kafka"])
	assert.Equal(t, 2, stats.ActiveSenders)
	require.NotNil(t, stats.LastError)
}

func TestManagerClose(t *testing.T) {
	nm := NewNotificationManager(&stubSender{kind: "kafka"})
	assert.True(t, nm.IsHealthy())
	require.NoError(t, nm.Close())
	assert.False(t, nm.IsHealthy())
	assert.Error(t, nm.HandleDetection(context.Background(), sampleEvent()))
}

func TestManagerFromConfig(t *testing.T) {
	nm, err := NewNotificationManagerFromConfig(&config.NotificationConfig{})
	require.NoError(t, err)
	assert.False(t, nm.HasSenders())
	assert.Equal(t, "notifications", nm.Name())

	nm, err = NewNotificationManagerFromConfig(&config.NotificationConfig{
		Webhook: config.WebhookConfig{Enabled: true, URL: "http://localhost:1/hook"},
	})
	require.NoError(t, err)
	assert.True(t, nm.HasSenders())
}
