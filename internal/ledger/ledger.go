// Package ledger talks to the external funds-transfer service that pays out
// round rewards.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFee is the fixed transfer fee in e8s
const DefaultFee uint64 = 10_000

// Tokens is an amount in e8s (1 token = 10^8 e8s)
type Tokens uint64

// Decimal returns the amount in whole tokens
func (t Tokens) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(t)), -8)
}

func (t Tokens) String() string {
	return t.Decimal().StringFixed(8) + " Token"
}

// TransferArgs is one transfer request
type TransferArgs struct {
	To             AccountIdentifier
	Amount         uint64
	Fee            uint64
	Memo           uint64
	FromSubaccount *Subaccount
	CreatedAtTime  *time.Time
}

// Transferer executes transfers. A nil error carries the settlement index; a
// *RejectedError means the ledger refused the transfer; a *CallError means the
// call itself failed.
type Transferer interface {
	Transfer(ctx context.Context, args TransferArgs) (uint64, error)
}

// RejectedError is an application-level refusal by the ledger
type RejectedError struct {
	Kind    string // Machine-readable reason, e.g. InsufficientFunds
	Message string // Human-readable reason
}

func (e *RejectedError) Error() string { return e.Message }

// CallError is a transport-level failure reaching the ledger. Code is the HTTP
// status, or 0 when no response was received.
type CallError struct {
	Code    int
	Message string
}

func (e *CallError) Error() string { return e.Message }

// Rejection builders, worded like the ledger's own messages.

func BadFee(expected uint64) *RejectedError {
	return &RejectedError{Kind: "BadFee", Message: fmt.Sprintf("transaction fee should be %s", Tokens(expected))}
}

func InsufficientFunds(balance uint64) *RejectedError {
	return &RejectedError{
		Kind:    "InsufficientFunds",
		Message: fmt.Sprintf("the debit account doesn't have enough funds to complete the transaction, current balance: %s", Tokens(balance)),
	}
}

func TxTooOld(window time.Duration) *RejectedError {
	return &RejectedError{Kind: "TxTooOld", Message: fmt.Sprintf("transaction is older than %d seconds", int64(window.Seconds()))}
}

func TxCreatedInFuture() *RejectedError {
	return &RejectedError{Kind: "TxCreatedInFuture", Message: "transaction's created_at_time is in future"}
}

func TxDuplicate(block uint64) *RejectedError {
	return &RejectedError{Kind: "TxDuplicate", Message: fmt.Sprintf("transaction is a duplicate of another transaction in block %d", block)}
}
