package models

import (
	"encoding/json"
	"time"
)

// TransferTypeMint marks a token transfer that creates new supply
const TransferTypeMint = "mint"

// Transaction is an enhanced transaction returned by the indexing service.
// Decoding never fails on shape: fields that are missing or of the wrong
// type are left at their zero value.
type Transaction struct {
	Signature      string          `json:"signature,omitempty"`
	Slot           uint64          `json:"slot,omitempty"`
	Timestamp      int64           `json:"timestamp,omitempty"`
	HasTimestamp   bool            `json:"-"`
	Type           string          `json:"type,omitempty"`
	Source         string          `json:"source,omitempty"`
	TokenTransfers []TokenTransfer `json:"tokenTransfers,omitempty"`
}

// TokenTransfer is a single SPL token movement inside a transaction
type TokenTransfer struct {
	Type            string  `json:"type,omitempty"`
	Mint            string  `json:"mint,omitempty"`
	FromUserAccount string  `json:"fromUserAccount,omitempty"`
	ToUserAccount   string  `json:"toUserAccount,omitempty"`
	TokenAmount     float64 `json:"tokenAmount,omitempty"`
}

// IsMint reports whether the transfer is a mint with a usable mint address
func (tt TokenTransfer) IsMint() bool {
	return tt.Type == TransferTypeMint && tt.Mint != ""
}

// Time returns the block time as UTC
func (tx Transaction) Time() time.Time {
	return time.Unix(tx.Timestamp, 0).UTC()
}

// UnmarshalJSON decodes the fields it understands and ignores the rest
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	*tx = Transaction{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object; nothing usable inside
		return nil
	}

	decodeField(fields, "signature", &tx.Signature)
	decodeField(fields, "slot", &tx.Slot)
	decodeField(fields, "type", &tx.Type)
	decodeField(fields, "source", &tx.Source)

	if raw, ok := fields["timestamp"]; ok && string(raw) != "null" {
		var ts float64
		if err := json.Unmarshal(raw, &ts); err == nil {
			tx.Timestamp = int64(ts)
			tx.HasTimestamp = true
		}
	}

	var transfers []json.RawMessage
	if decodeField(fields, "tokenTransfers", &transfers) {
		tx.TokenTransfers = make([]TokenTransfer, 0, len(transfers))
		for _, raw := range transfers {
			var tt TokenTransfer
			tt.decode(raw)
			tx.TokenTransfers = append(tx.TokenTransfers, tt)
		}
	}

	return nil
}

func (tt *TokenTransfer) decode(data []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return
	}
	decodeField(fields, "type", &tt.Type)
	decodeField(fields, "mint", &tt.Mint)
	decodeField(fields, "fromUserAccount", &tt.FromUserAccount)
	decodeField(fields, "toUserAccount", &tt.ToUserAccount)
	decodeField(fields, "tokenAmount", &tt.TokenAmount)
}

// decodeField unmarshals fields[key] into dst, reporting success
func decodeField(fields map[string]json.RawMessage, key string, dst interface{}) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
