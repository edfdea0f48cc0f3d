package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types.
const (
	TransactionTypeTopUp        = "TOP_UP"
	TransactionTypeDeduction    = "DEDUCTION"
	TransactionTypeRefund       = "REFUND"
	TransactionTypeReversal     = "REVERSAL"
	TransactionTypePenalty      = "PENALTY"
	TransactionTypeSubscription = "SUBSCRIPTION"
)

// Wallet transaction statuses. Transitions are one-way into a terminal state.
const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusCompleted  = "COMPLETED"
	TransactionStatusFailed     = "FAILED"
	TransactionStatusCancelled  = "CANCELLED"
	TransactionStatusExpired    = "EXPIRED"
)

// IsDebitType reports whether the transaction type decreases the balance.
func IsDebitType(txType string) bool {
	switch txType {
	case TransactionTypeDeduction, TransactionTypePenalty, TransactionTypeSubscription:
		return true
	}
	return false
}

// IsCreditType reports whether the transaction type increases the balance.
func IsCreditType(txType string) bool {
	switch txType {
	case TransactionTypeTopUp, TransactionTypeRefund, TransactionTypeReversal:
		return true
	}
	return false
}

// IsTerminalStatus reports whether a transaction status may never change again.
func IsTerminalStatus(status string) bool {
	switch status {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusExpired:
		return true
	}
	return false
}

// Wallet holds a user's balance. Exactly one wallet per user.
type Wallet struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// WalletTransaction is an immutable ledger entry for one balance-affecting event.
type WalletTransaction struct {
	ID                    int64           `db:"id" json:"id"`
	UserID                int64           `db:"user_id" json:"user_id"`
	WalletID              int64           `db:"wallet_id" json:"wallet_id"`
	Reference             string          `db:"reference" json:"reference"`
	Type                  string          `db:"type" json:"type"`
	Amount                decimal.Decimal `db:"amount" json:"amount"`
	Fee                   decimal.Decimal `db:"fee" json:"fee"`
	NetAmount             decimal.Decimal `db:"net_amount" json:"net_amount"`
	ExternalTransactionID *string         `db:"external_transaction_id" json:"external_transaction_id,omitempty"`
	GatewayResponse       *string         `db:"gateway_response" json:"gateway_response,omitempty"`
	Status                string          `db:"status" json:"status"`
	Description           string          `db:"description" json:"description,omitempty"`
	ProcessedAt           *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

// SignedNet returns the transaction's contribution to the wallet balance.
func (t *WalletTransaction) SignedNet() decimal.Decimal {
	if IsDebitType(t.Type) {
		return t.NetAmount.Neg()
	}
	return t.NetAmount
}
