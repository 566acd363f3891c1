/**
 * @description
 * This file defines the core domain models for the wallet-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (paise), which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account type discriminators. Exactly one platform account exists; it accumulates
// the platform's share of refund fees.
const (
	AccountTypeUser     = "user"
	AccountTypePlatform = "platform"
)

// Transaction statuses. The transition active -> refunded is one-way.
const (
	TransactionStatusActive   = "active"
	TransactionStatusRefunded = "refunded"
)

// TopUp statuses as stored, derived from the card-payment provider's charge status.
const (
	TopUpStatusCompleted = "completed"
	TopUpStatusFailed    = "failed"
)

// Withdrawal statuses. A withdrawal is recorded as completed immediately; reversed
// is the compensating state applied when the bank rejects the payout.
const (
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusReversed  = "reversed"
)

// BankAccountDetails holds the payout destination a user has on file. A snapshot of
// these fields is copied onto every withdrawal at request time.
type BankAccountDetails struct {
	AccountHolderName string `json:"account_holder_name"`
	AccountNumber     string `json:"account_number"`
	IFSCCode          string `json:"ifsc_code"`
	BankName          string `json:"bank_name"`
	AccountType       string `json:"account_type"` // e.g. 'savings', 'current'
}

// Account represents a wallet account. The stored balance is authoritative; it is
// never derived from the transaction history.
type Account struct {
	ID          uuid.UUID           `json:"id"`
	Username    string              `json:"username"`
	Type        string              `json:"type"` // 'user' or 'platform'
	Balance     int64               `json:"balance"` // in paise
	BankDetails *BankAccountDetails `json:"bank_details,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// HasPayoutDetails reports whether the account carries a usable payout destination.
func (a *Account) HasPayoutDetails() bool {
	return a.BankDetails != nil && a.BankDetails.AccountNumber != ""
}

// Transaction is the ledger record for a peer-to-peer money movement. Immutable
// once created except for the status flip to 'refunded'.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Amount     int64     `json:"amount"` // in paise
	Status     string    `json:"status"` // 'active' or 'refunded'
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Refund records the three-way split applied when a transaction is reversed.
// Its existence is the authoritative "already refunded" marker; at most one refund
// ever exists per transaction. Never mutated after insert.
type Refund struct {
	ID               uuid.UUID `json:"id"`
	TransactionID    uuid.UUID `json:"transaction_id"`
	Amount           int64     `json:"amount"` // original transaction amount
	SenderReceived   int64     `json:"sender_received"`
	ReceiverReceived int64     `json:"receiver_received"`
	PlatformReceived int64     `json:"platform_received"`
	CreatedAt        time.Time `json:"created_at"`
}

// TopUp records funds added from the card-payment provider. Only completed topups
// increment the owning account's balance; a failed row is a ledger record of the
// declined charge, nothing more.
type TopUp struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"` // in paise
	Status        string    `json:"status"` // 'completed' or 'failed'
	ProviderRef   string    `json:"provider_ref"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// Withdrawal records funds requested out to a bank account, with the payout details
// snapshotted at request time.
type Withdrawal struct {
	ID          uuid.UUID          `json:"id"`
	AccountID   uuid.UUID          `json:"account_id"`
	Amount      int64              `json:"amount"` // in paise
	BankDetails BankAccountDetails `json:"bank_details"`
	Status      string             `json:"status"` // 'completed' or 'reversed'
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CreateTransactionRequest is the DTO for incoming peer-to-peer transfer API requests.
type CreateTransactionRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Amount     int64     `json:"amount"` // in paise
}

// RefundRequest is the DTO for incoming refund API requests.
type RefundRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
}

// RecordTopUpRequest is the DTO the provider-facing collaborator posts after a charge
// settles. ProviderStatus carries the provider's own status string verbatim.
type RecordTopUpRequest struct {
	Amount         int64  `json:"amount"` // in paise
	ProviderStatus string `json:"status"`
	ProviderRef    string `json:"provider_ref"`
	PaymentMethod  string `json:"payment_method"`
}

// WithdrawalRequest is the DTO for incoming withdrawal API requests.
type WithdrawalRequest struct {
	Amount int64 `json:"amount"` // in paise
}

// PaymentIntentRequest is the DTO for starting an add-money flow with the provider.
type PaymentIntentRequest struct {
	Amount int64 `json:"amount"` // in paise
}

// FundingRecordTypes label the rows of a funding summary.
const (
	FundingRecordTopUp      = "topup"
	FundingRecordWithdrawal = "withdrawal"
)

// FundingRecord is one topup or withdrawal row in a funding summary.
type FundingRecord struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"` // 'topup' or 'withdrawal'
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FundingDaySummary aggregates all funding records of one calendar day.
type FundingDaySummary struct {
	Day     string          `json:"day"` // DD/MM/YYYY
	Total   int64           `json:"total"`
	Count   int             `json:"count"`
	Records []FundingRecord `json:"records"`
}

// ChargeSettledEvent is the message payload consumed from the provider webhook
// gateway when a card charge reaches a terminal state.
type ChargeSettledEvent struct {
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"` // provider status, e.g. 'succeeded'
	ProviderRef   string    `json:"provider_ref"`
	PaymentMethod string    `json:"payment_method"`
}
