package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionDecode(t *testing.T) {
	body := `[
		{"signature": "sig1", "slot": 42, "timestamp": 1000, "type": "TOKEN_MINT", "source": "RAYDIUM",
		 "tokenTransfers": [
			{"type": "mint", "mint": "Mx", "toUserAccount": "holder", "tokenAmount": 1000000},
			{"type": "transfer", "mint": "My"}
		 ]},
		{"timestamp": 2000},
		{"timestamp": "yesterday", "tokenTransfers": "nope"},
		{"tokenTransfers": [42, {"type": 7, "mint": "Mz"}, {"type": "mint"}]},
		17,
		null
	]`

	var txs []Transaction
	require.NoError(t, json.Unmarshal([]byte(body), &txs))
	require.Len(t, txs, 6)

	first := txs[0]
	assert.Equal(t, "sig1", first.Signature)
	assert.Equal(t, uint64(42), first.Slot)
	assert.True(t, first.HasTimestamp)
	assert.Equal(t, time.Unix(1000, 0).UTC(), first.Time())
	require.Len(t, first.TokenTransfers, 2)
	assert.True(t, first.TokenTransfers[0].IsMint())
	assert.Equal(t, "holder", first.TokenTransfers[0].ToUserAccount)
	assert.False(t, first.TokenTransfers[1].IsMint())

	assert.True(t, txs[1].HasTimestamp)
	assert.Empty(t, txs[1].TokenTransfers)

	assert.False(t, txs[2].HasTimestamp)
	assert.Empty(t, txs[2].TokenTransfers)

	require.Len(t, txs[3].TokenTransfers, 3)
	for _, tt := range txs[3].TokenTransfers {
		assert.False(t, tt.IsMint())
	}
	assert.Equal(t, "Mz", txs[3].TokenTransfers[1].Mint)

	assert.Equal(t, Transaction{}, txs[4])
	assert.Equal(t, Transaction{}, txs[5])
}

func TestTransactionDecodeRejectsNonArray(t *testing.T) {
	var txs []Transaction
	err := json.Unmarshal([]byte(`{"error": "invalid api key"}`), &txs)
	assert.Error(t, err)
}

func TestDetectionFilterMatches(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	event := &DetectionEvent{Source: "Raydium AMM", DetectedAt: now}

	assert.True(t, DetectionFilter{}.Matches(event))
	assert.True(t, DetectionFilter{Sources: []string{"Saber", "Raydium AMM"}}.Matches(event))
	assert.False(t, DetectionFilter{Sources: []string{"Saber"}}.Matches(event))
	assert.True(t, DetectionFilter{Since: &earlier}.Matches(event))

	later := now.Add(time.Minute)
	assert.False(t, DetectionFilter{Since: &later}.Matches(event))
}

func TestFetchResultFailed(t *testing.T) {
	assert.False(t, FetchResult{Label: "A"}.Failed())
	assert.True(t, FetchResult{Label: "A", Err: assert.AnError}.Failed())
}
