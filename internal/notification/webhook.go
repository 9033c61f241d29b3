// File: internal/notification/webhook.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

const (
	webhookSource       = "solana-mint-scanner"
	webhookEventType    = "token.mint"
	webhookVersion      = "1.0"
	defaultWebhookLimit = 30 * time.Second
)

// WebhookSender posts detections as JSON
type WebhookSender struct {
	url        string
	headers    map[string]string
	logger     *logrus.Entry
	httpClient *http.Client
}

// WebhookPayload defines the webhook payload structure
type WebhookPayload struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Type      string                 `json:"type"`
	Data      *models.DetectionEvent `json:"data"`
	Version   string                 `json:"version"`
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(cfg *config.WebhookConfig) (*WebhookSender, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid webhook URL", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookLimit
	}

	return &WebhookSender{
		url:     cfg.URL,
		headers: cfg.Headers,
		logger:  utils.ComponentLogger("webhook_sender"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}, nil
}

// Type returns the sender type
func (ws *WebhookSender) Type() string {
	return "webhook"
}

// Send posts one detection. Any non-2xx status is an error.
func (ws *WebhookSender) Send(ctx context.Context, event *models.DetectionEvent) error {
	start := time.Now()

	body, err := json.Marshal(ws.buildWebhookPayload(event))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal webhook payload").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create webhook request").WithCause(err)
	}
	ws.setRequestHeaders(req)

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to send webhook").WithCause(err)
	}
	defer resp.Body.Close()

	// Body is read only for the error message
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.NewAppError(utils.ErrCodeNotification,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, snippet))
	}

	ws.logger.WithFields(logrus.Fields{
		"url":           ws.url,
		"status_code":   resp.StatusCode,
		"response_time": time.Since(start).String(),
	}).Debug("Webhook sent successfully")
	return nil
}

// Close releases idle connections
func (ws *WebhookSender) Close() error {
	ws.httpClient.CloseIdleConnections()
	return nil
}

func (ws *WebhookSender) buildWebhookPayload(event *models.DetectionEvent) *WebhookPayload {
	return &WebhookPayload{
		Event:     event.ID,
		Timestamp: time.Now().UTC(),
		Source:    webhookSource,
		Type:      webhookEventType,
		Data:      event,
		Version:   webhookVersion,
	}
}

// setRequestHeaders applies configured headers, then defaults for any missing
func (ws *WebhookSender) setRequestHeaders(req *http.Request) {
	for key, value := range ws.headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Solana-Mint-Scanner/1.0")
	}

	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}
}
