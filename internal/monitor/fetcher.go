// File: internal/monitor/fetcher.go
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/connection"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// DefaultLimit is the page size requested per address
const DefaultLimit = 100

// FetchErrorKind classifies a failed fetch
type FetchErrorKind string

const (
	FetchErrorStatus    FetchErrorKind = "status"
	FetchErrorTransport FetchErrorKind = "transport"
	FetchErrorDecode    FetchErrorKind = "decode"
)

// FetchError is the cause carried by a failed FetchResult
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrorStatus:
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	case FetchErrorDecode:
		return fmt.Sprintf("invalid response body: %v", e.Err)
	default:
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Code maps the failure kind onto the application error codes
func (e *FetchError) Code() string {
	switch e.Kind {
	case FetchErrorStatus:
		return utils.ErrCodeUpstream
	case FetchErrorDecode:
		return utils.ErrCodeDecode
	default:
		return utils.ErrCodeConnection
	}
}

// TransactionFetcher retrieves the recent transaction history of one address
type TransactionFetcher interface {
	Fetch(ctx context.Context, address models.MonitoredAddress) models.FetchResult
}

// Fetcher implements TransactionFetcher over a connection.Session
type Fetcher struct {
	session connection.Session
	limit   int
	logger  *logrus.Entry

	mu          sync.RWMutex
	fetchCount  uint64
	errorCount  uint64
	lastFetchAt time.Time
}

// NewFetcher creates a fetcher; a non-positive limit uses DefaultLimit
func NewFetcher(session connection.Session, limit int) *Fetcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Fetcher{
		session: session,
		limit:   limit,
		logger:  utils.ComponentLogger("fetcher"),
	}
}

// Fetch makes exactly one request for address. It never returns an error;
// failures are carried in the result.
func (f *Fetcher) Fetch(ctx context.Context, address models.MonitoredAddress) models.FetchResult {
	start := time.Now()
	result := models.FetchResult{Label: address.Label, Address: address.Address}

	f.mu.Lock()
	f.fetchCount++
	f.lastFetchAt = start
	f.mu.Unlock()

	f.logger.WithFields(logrus.Fields{
		"label":   address.Label,
		"address": address.Address,
	}).Info("Scanning address")

	txs, err := f.fetch(ctx, address.Address)
	result.Duration = time.Since(start)
	if err != nil {
		f.recordError()
		result.Err = err
		return result
	}

	f.logger.WithFields(logrus.Fields{
		"label": address.Label,
		"count": len(txs),
	}).Infof("Retrieved %d transactions", len(txs))

	result.Transactions = txs
	return result
}

func (f *Fetcher) fetch(ctx context.Context, address string) ([]models.Transaction, error) {
	query := url.Values{"limit": []string{strconv.Itoa(f.limit)}}
	resp, err := f.session.Get(ctx, address+"/transactions", query)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorTransport, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: FetchErrorStatus, StatusCode: resp.StatusCode}
	}

	return decodeTransactions(resp.Body)
}

// decodeTransactions requires a JSON array; elements are decoded tolerantly
func decodeTransactions(body []byte) ([]models.Transaction, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return nil, &FetchError{Kind: FetchErrorDecode, Err: fmt.Errorf("expected a JSON array")}
	}

	var txs []models.Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, &FetchError{Kind: FetchErrorDecode, Err: err}
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// GetStats returns fetcher statistics
func (f *Fetcher) GetStats() map[string]interface{} {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return map[string]interface{}{
		"fetch_count":   f.fetchCount,
		"error_count":   f.errorCount,
		"last_fetch_at": f.lastFetchAt,
	}
}

func (f *Fetcher) recordError() {
	f.mu.Lock()
	f.errorCount++
	f.mu.Unlock()
}
