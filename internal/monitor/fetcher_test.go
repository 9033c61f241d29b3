package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/connection"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

const testAddress = "TokenkegQfeZyiNwAJbNbGKPFXCWvBvf9Ss623VQ5DA"

func newTestSession(t *testing.T, handler http.HandlerFunc) *connection.HeliusClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return connection.NewHeliusClient(&config.HeliusConfig{BaseURL: srv.URL + "/v0/addresses", APIKey: "key"})
}

func TestFetchSuccess(t *testing.T) {
	var gotPath, gotLimit, gotKey string
	session := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotKey = r.URL.Query().Get("api-key")
		w.Write([]byte(`[{"signature":"s1","timestamp":1000},{"signature":"s2"}]`))
	})

	res := NewFetcher(session, 0).Fetch(context.Background(), models.MonitoredAddress{Label: "Token Program", Address: testAddress})

	require.False(t, res.Failed())
	assert.Equal(t, "/v0/addresses/"+testAddress+"/transactions", gotPath)
	assert.Equal(t, "100", gotLimit)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "Token Program", res.Label)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "s2", res.Transactions[1].Signature)
}

func TestFetchEmptyArray(t *testing.T) {
	session := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(" [] "))
	})

	res := NewFetcher(session, 5).Fetch(context.Background(), models.MonitoredAddress{Label: "A", Address: testAddress})
	require.False(t, res.Failed())
	assert.NotNil(t, res.Transactions)
	assert.Empty(t, res.Transactions)
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   FetchErrorKind
	}{
		{"server error", http.StatusInternalServerError, `[]`, FetchErrorStatus},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, FetchErrorStatus},
		{"object body", http.StatusOK, `{"error":"bad"}`, FetchErrorDecode},
		{"null body", http.StatusOK, `null`, FetchErrorDecode},
		{"truncated array", http.StatusOK, `[{"signature":`, FetchErrorDecode},
		{"html body", http.StatusOK, `<html></html>`, FetchErrorDecode},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			fetcher := NewFetcher(session, 0)

			res := fetcher.Fetch(context.Background(), models.MonitoredAddress{Label: "B", Address: testAddress})
			require.True(t, res.Failed())

			var fetchErr *FetchError
			require.True(t, errors.As(res.Err, &fetchErr))
			assert.Equal(t, tc.kind, fetchErr.Kind)
			if tc.kind == FetchErrorStatus {
				assert.Equal(t, tc.status, fetchErr.StatusCode)
				assert.Contains(t, fetchErr.Error(), "status code")
				assert.Equal(t, utils.ErrCodeUpstream, fetchErr.Code())
			} else {
				assert.Equal(t, utils.ErrCodeDecode, fetchErr.Code())
			}
			assert.Nil(t, res.Transactions)
			assert.Equal(t, uint64(1), fetcher.GetStats()["error_count"])
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	session := connection.NewHeliusClient(&config.HeliusConfig{BaseURL: srv.URL, APIKey: "key"})

	res := NewFetcher(session, 0).Fetch(context.Background(), models.MonitoredAddress{Label: "C", Address: testAddress})

	var fetchErr *FetchError
	require.True(t, errors.As(res.Err, &fetchErr))
	assert.Equal(t, FetchErrorTransport, fetchErr.Kind)
	assert.NotNil(t, fetchErr.Unwrap())
}
