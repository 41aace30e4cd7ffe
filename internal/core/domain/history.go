package domain

import "encoding/json"

// TransactionHistory is one explorer record for an address.
type TransactionHistory struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes HistoryAttributes `json:"attributes"`
}

type HistoryAttributes struct {
	TransactionHash string      `json:"transaction_hash"`
	BlockNumber     json.Number `json:"block_number"`
	BlockTimestamp  json.Number `json:"block_timestamp"`
	Income          string      `json:"income"`
	IsCellbase      bool        `json:"is_cellbase"`
	CreatedAt       json.Number `json:"created_at,omitempty"`
}
