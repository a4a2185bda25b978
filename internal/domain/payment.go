package domain

import "time"

// PaymentReceipt records one verified premium-pack purchase. Reference is
// unique; a duplicate reference is replay and must be rejected as
// ErrAlreadyExists by the store.
type PaymentReceipt struct {
	Reference  string    `json:"reference"` // venue/chain tx reference
	Buyer      string    `json:"buyer"`
	Amount     uint64    `json:"amount"`
	ClientSeed string    `json:"client_seed"`
	PackID     string    `json:"pack_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// MaxClientSeedLen bounds the client-provided entropy string carried on a
// purchase receipt.
const MaxClientSeedLen = 32
