/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the wallet-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * Balance mutations are deliberately narrow: every path that changes an account's
 * balance goes through the credit/debit operations or one of the atomic multi-entity
 * operations below, so the non-negative-balance invariant is enforced in one place.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account methods
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	FindPlatformAccount(ctx context.Context) (*domain.Account, error)
	CreditAccount(ctx context.Context, accountID uuid.UUID, amount int64) error
	DebitAccount(ctx context.Context, accountID uuid.UUID, amount int64) error

	// Transaction methods
	CreateTransactionAtomic(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)

	// Refund methods
	FindRefundByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.Refund, error)
	RefundTransactionAtomic(ctx context.Context, params RefundParams) (*domain.Refund, error)

	// Funding methods
	CreateTopUp(ctx context.Context, topup *domain.TopUp) error
	CreateWithdrawalAtomic(ctx context.Context, withdrawal *domain.Withdrawal) error
	FindWithdrawalByID(ctx context.Context, withdrawalID uuid.UUID) (*domain.Withdrawal, error)
	ReverseWithdrawalAtomic(ctx context.Context, withdrawalID uuid.UUID, accountID uuid.UUID) (*domain.Withdrawal, error)
	ListFundingRecords(ctx context.Context, accountID uuid.UUID) ([]domain.FundingRecord, error)
}

// RefundParams carries the pre-computed split applied by RefundTransactionAtomic.
// The three amounts must sum to Amount; the store commits them, it does not derive them.
type RefundParams struct {
	TransactionID     uuid.UUID
	SenderID          uuid.UUID
	ReceiverID        uuid.UUID
	PlatformAccountID uuid.UUID
	Amount            int64
	SenderReceived    int64
	ReceiverReceived  int64
	PlatformReceived  int64
}
