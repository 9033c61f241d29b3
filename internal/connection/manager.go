package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// Session is the long-lived transport shared by every fetch in a cycle
type Session interface {
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	HealthCheck(ctx context.Context, address string) error
	Close() error
	Stats() ConnectionStats
}

// Response is a raw upstream reply
type Response struct {
	StatusCode int
	Body       []byte
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	BaseURL         string    `json:"base_url"`
	LastRequestAt   time.Time `json:"last_request_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
}

// HeliusClient implements Session over the Helius REST API
type HeliusClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	mu      sync.RWMutex
	closed  bool
	logger  *logrus.Entry
	stats   ConnectionStats
}

// NewHeliusClient creates a client for cfg. A zero RequestTimeout keeps the
// transport default.
func NewHeliusClient(cfg *config.HeliusConfig) *HeliusClient {
	return NewHeliusClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout})
}

// NewHeliusClientWithHTTP creates a client using an existing http.Client
func NewHeliusClientWithHTTP(cfg *config.HeliusConfig, client *http.Client) *HeliusClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &HeliusClient{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  utils.ComponentLogger("connection"),
		stats: ConnectionStats{
			BaseURL: base,
		},
	}
}

// Get issues a GET for baseURL+path with the credential appended to query.
// A non-nil Response is returned for every status code; only transport
// failures produce an error.
func (hc *HeliusClient) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	hc.mu.Lock()
	if hc.closed {
		hc.mu.Unlock()
		return nil, utils.NewAppError(utils.ErrCodeConnection, "Session is closed")
	}
	hc.stats.TotalRequests++
	hc.stats.LastRequestAt = time.Now()
	hc.mu.Unlock()

	resp, err := hc.do(ctx, path, query)
	if err != nil {
		hc.mu.Lock()
		hc.stats.FailedRequests++
		hc.mu.Unlock()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		hc.mu.Lock()
		hc.stats.FailedRequests++
		hc.mu.Unlock()
	}
	return resp, nil
}

func (hc *HeliusClient) do(ctx context.Context, path string, query url.Values) (*Response, error) {
	params := url.Values{}
	for k, v := range query {
		params[k] = v
	}
	params.Set("api-key", hc.apiKey)

	endpoint := hc.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConnection, "Failed to build request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, hc.redactError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// redactError strips the credential from the URL carried by transport errors
func (hc *HeliusClient) redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && hc.apiKey != "" {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(hc.apiKey), "REDACTED")
	}
	return err
}

// HealthCheck requests one transaction of address and requires a 2xx reply.
// The outcome is recorded in Stats.
func (hc *HeliusClient) HealthCheck(ctx context.Context, address string) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := hc.Get(checkCtx, address+"/transactions", url.Values{"limit": []string{"1"}})
	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = utils.NewAppError(utils.ErrCodeUpstream, "Unexpected status code", fmt.Sprintf("%d", resp.StatusCode))
	}

	hc.mu.Lock()
	hc.stats.LastHealthCheck = time.Now()
	hc.stats.IsHealthy = err == nil
	hc.mu.Unlock()

	if err != nil {
		return utils.NewAppError(utils.ErrCodeConnection, "Helius API unavailable", address).WithCause(err)
	}

	hc.logger.WithField("address", address).Debug("Health check passed")
	return nil
}

// Close releases idle connections; further requests fail
func (hc *HeliusClient) Close() error {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if hc.closed {
		return nil
	}
	hc.closed = true
	hc.stats.IsHealthy = false
	hc.client.CloseIdleConnections()
	hc.logger.Info("Connection session closed")
	return nil
}

// Stats returns connection statistics
func (hc *HeliusClient) Stats() ConnectionStats {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.stats
}
