package domain

import "time"

// Payment Model, appended once a withdrawal settles on the ledger
type Payment struct {
	BlockIndex uint64    `json:"block_index"` // Ledger settlement index
	UserID     uint32    `json:"user_id"`     // Beneficiary
	Amount     uint64    `json:"amount"`      // Amount paid in e8s
	Time       time.Time `json:"time"`        // Settlement time
}
