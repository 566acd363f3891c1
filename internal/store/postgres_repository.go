/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to accounts, transactions, refunds, topups and withdrawals.
 *
 * Every operation that moves money runs as a single database transaction with
 * `SELECT ... FOR UPDATE` row locks, so concurrent requests against the same
 * account or the same transaction serialize at the store and never observe or
 * commit partial state.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paywave/wallet-service/internal/domain"
)

var (
	ErrAccountNotFound           = errors.New("account not found")
	ErrPlatformAccountNotFound   = errors.New("platform account not found")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrRefundNotFound            = errors.New("refund not found")
	ErrRefundAlreadyExists       = errors.New("transaction has already been refunded")
	ErrWithdrawalNotFound        = errors.New("withdrawal not found")
	ErrWithdrawalAlreadyReversed = errors.New("withdrawal has already been reversed")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, type, balance, account_holder_name, account_number, ifsc_code, bank_name, bank_account_type, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	var holderName, accountNumber, ifscCode, bankName, bankAccountType *string
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Type,
		&account.Balance,
		&holderName,
		&accountNumber,
		&ifscCode,
		&bankName,
		&bankAccountType,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if accountNumber != nil && *accountNumber != "" {
		account.BankDetails = &domain.BankAccountDetails{
			AccountNumber: *accountNumber,
		}
		if holderName != nil {
			account.BankDetails.AccountHolderName = *holderName
		}
		if ifscCode != nil {
			account.BankDetails.IFSCCode = *ifscCode
		}
		if bankName != nil {
			account.BankDetails.BankName = *bankName
		}
		if bankAccountType != nil {
			account.BankDetails.AccountType = *bankAccountType
		}
	}
	return &account, nil
}

// FindAccountByID retrieves an account from the database by its ID.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindPlatformAccount retrieves the singleton platform account that accumulates fee revenue.
func (r *PostgresRepository) FindPlatformAccount(ctx context.Context) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE type = 'platform'`
	account, err := scanAccount(r.db.QueryRow(ctx, query))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPlatformAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// CreditAccount performs an atomic credit operation on an account.
func (r *PostgresRepository) CreditAccount(ctx context.Context, accountID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := creditAccountTx(ctx, tx, accountID, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DebitAccount performs an atomic debit operation on an account. It fails with
// ErrInsufficientFunds if the resulting balance would be negative.
func (r *PostgresRepository) DebitAccount(ctx context.Context, accountID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := debitAccountTx(ctx, tx, accountID, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// creditAccountTx credits an account inside an existing database transaction.
func creditAccountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2", amount, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// debitAccountTx debits an account inside an existing database transaction.
// The row is locked first so the balance check and the mutation are one unit.
func debitAccountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) error {
	var balance int64
	// Use FOR UPDATE to lock the row, preventing race conditions.
	err := tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", accountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrAccountNotFound
		}
		return err
	}

	if balance < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2", amount, accountID)
	return err
}

// CreateTransactionAtomic debits the sender, credits the receiver and inserts the
// transaction record as one all-or-nothing unit.
func (r *PostgresRepository) CreateTransactionAtomic(ctx context.Context, txRecord *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := debitAccountTx(ctx, tx, txRecord.SenderID, txRecord.Amount); err != nil {
		return err
	}
	if err := creditAccountTx(ctx, tx, txRecord.ReceiverID, txRecord.Amount); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query, txRecord.ID, txRecord.SenderID, txRecord.ReceiverID, txRecord.Amount, txRecord.Status).
		Scan(&txRecord.CreatedAt, &txRecord.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindTransactionByID retrieves a transaction from the database by its ID.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	var txRecord domain.Transaction
	query := `SELECT id, sender_id, receiver_id, amount, status, created_at, updated_at FROM transactions WHERE id = $1`
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&txRecord.ID,
		&txRecord.SenderID,
		&txRecord.ReceiverID,
		&txRecord.Amount,
		&txRecord.Status,
		&txRecord.CreatedAt,
		&txRecord.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txRecord, nil
}

// FindRefundByTransactionID retrieves the refund referencing a transaction, if any.
func (r *PostgresRepository) FindRefundByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.Refund, error) {
	var refund domain.Refund
	query := `
		SELECT id, transaction_id, amount, sender_received, receiver_received, platform_received, created_at
		FROM refunds
		WHERE transaction_id = $1
	`
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&refund.ID,
		&refund.TransactionID,
		&refund.Amount,
		&refund.SenderReceived,
		&refund.ReceiverReceived,
		&refund.PlatformReceived,
		&refund.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRefundNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// RefundTransactionAtomic applies a refund split as one all-or-nothing unit: it locks
// the transaction row, re-checks that no refund exists, moves the three balance legs,
// inserts the refund record and flips the transaction status to 'refunded'.
//
// The transaction-row lock is the serialization point for concurrent refund requests:
// the second request blocks here, then observes the flipped status and fails with
// ErrRefundAlreadyExists. The unique index on refunds.transaction_id is the backstop.
func (r *PostgresRepository) RefundTransactionAtomic(ctx context.Context, params RefundParams) (*domain.Refund, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM transactions WHERE id = $1 FOR UPDATE", params.TransactionID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if status == domain.TransactionStatusRefunded {
		return nil, ErrRefundAlreadyExists
	}

	var refundExists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM refunds WHERE transaction_id = $1)", params.TransactionID).Scan(&refundExists)
	if err != nil {
		return nil, err
	}
	if refundExists {
		return nil, ErrRefundAlreadyExists
	}

	// Sender gets their share back.
	if err := creditAccountTx(ctx, tx, params.SenderID, params.SenderReceived); err != nil {
		return nil, fmt.Errorf("failed to credit sender: %w", err)
	}
	// Receiver returns the full amount and keeps their share; applied as one net
	// debit so the non-negative guard covers the combined effect.
	if err := debitAccountTx(ctx, tx, params.ReceiverID, params.Amount-params.ReceiverReceived); err != nil {
		return nil, fmt.Errorf("failed to debit receiver: %w", err)
	}

	feeResult, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2 AND type = 'platform'",
		params.PlatformReceived, params.PlatformAccountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to credit platform account: %w", err)
	}
	if feeResult.RowsAffected() == 0 {
		return nil, ErrPlatformAccountNotFound
	}

	refund := &domain.Refund{
		ID:               uuid.New(),
		TransactionID:    params.TransactionID,
		Amount:           params.Amount,
		SenderReceived:   params.SenderReceived,
		ReceiverReceived: params.ReceiverReceived,
		PlatformReceived: params.PlatformReceived,
	}
	insertQuery := `
		INSERT INTO refunds (id, transaction_id, amount, sender_received, receiver_received, platform_received)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		refund.ID, refund.TransactionID, refund.Amount,
		refund.SenderReceived, refund.ReceiverReceived, refund.PlatformReceived,
	).Scan(&refund.CreatedAt)
	if err := refundInsertError(err); err != nil {
		return nil, err
	}

	flipResult, err := tx.Exec(ctx,
		"UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		domain.TransactionStatusRefunded, params.TransactionID, domain.TransactionStatusActive,
	)
	if err != nil {
		return nil, err
	}
	if err := refundFlipError(flipResult.RowsAffected()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return refund, nil
}

// refundInsertError maps a refund-insert failure. A unique violation on
// refunds.transaction_id means a concurrent refund committed first.
func refundInsertError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrRefundAlreadyExists
	}
	return fmt.Errorf("failed to insert refund: %w", err)
}

// refundFlipError maps the guarded active->refunded status flip result. Zero rows
// means another transaction flipped the status between our lock release and theirs;
// both racers then report the same already-refunded outcome.
func refundFlipError(rowsAffected int64) error {
	if rowsAffected == 0 {
		return ErrRefundAlreadyExists
	}
	return nil
}

// CreateTopUp persists a topup record. The owning account's balance is credited in
// the same database transaction, and only when the topup is completed; a failed
// topup is recorded without touching the balance.
func (r *PostgresRepository) CreateTopUp(ctx context.Context, topup *domain.TopUp) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO topups (id, account_id, amount, status, provider_ref, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, query,
		topup.ID, topup.AccountID, topup.Amount, topup.Status, topup.ProviderRef, topup.PaymentMethod,
	).Scan(&topup.CreatedAt)
	if err != nil {
		return err
	}

	if topup.Status == domain.TopUpStatusCompleted {
		if err := creditAccountTx(ctx, tx, topup.AccountID, topup.Amount); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CreateWithdrawalAtomic debits the account and inserts the withdrawal record,
// carrying the payout-details snapshot, as one all-or-nothing unit.
func (r *PostgresRepository) CreateWithdrawalAtomic(ctx context.Context, withdrawal *domain.Withdrawal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := debitAccountTx(ctx, tx, withdrawal.AccountID, withdrawal.Amount); err != nil {
		return err
	}

	query := `
		INSERT INTO withdrawals (id, account_id, amount, status, account_holder_name, account_number, ifsc_code, bank_name, bank_account_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		withdrawal.ID, withdrawal.AccountID, withdrawal.Amount, withdrawal.Status,
		withdrawal.BankDetails.AccountHolderName, withdrawal.BankDetails.AccountNumber,
		withdrawal.BankDetails.IFSCCode, withdrawal.BankDetails.BankName, withdrawal.BankDetails.AccountType,
	).Scan(&withdrawal.CreatedAt, &withdrawal.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindWithdrawalByID retrieves a withdrawal from the database by its ID.
func (r *PostgresRepository) FindWithdrawalByID(ctx context.Context, withdrawalID uuid.UUID) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	query := `
		SELECT id, account_id, amount, status, account_holder_name, account_number, ifsc_code, bank_name, bank_account_type, created_at, updated_at
		FROM withdrawals
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, withdrawalID).Scan(
		&w.ID, &w.AccountID, &w.Amount, &w.Status,
		&w.BankDetails.AccountHolderName, &w.BankDetails.AccountNumber,
		&w.BankDetails.IFSCCode, &w.BankDetails.BankName, &w.BankDetails.AccountType,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ReverseWithdrawalAtomic flips a completed withdrawal to 'reversed' and credits the
// amount back to the owning account as one all-or-nothing unit. Used when the bank
// rejects the payout after the fact.
func (r *PostgresRepository) ReverseWithdrawalAtomic(ctx context.Context, withdrawalID uuid.UUID, accountID uuid.UUID) (*domain.Withdrawal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var w domain.Withdrawal
	query := `
		SELECT id, account_id, amount, status, account_holder_name, account_number, ifsc_code, bank_name, bank_account_type, created_at, updated_at
		FROM withdrawals
		WHERE id = $1 AND account_id = $2
		FOR UPDATE
	`
	err = tx.QueryRow(ctx, query, withdrawalID, accountID).Scan(
		&w.ID, &w.AccountID, &w.Amount, &w.Status,
		&w.BankDetails.AccountHolderName, &w.BankDetails.AccountNumber,
		&w.BankDetails.IFSCCode, &w.BankDetails.BankName, &w.BankDetails.AccountType,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	if w.Status == domain.WithdrawalStatusReversed {
		return nil, ErrWithdrawalAlreadyReversed
	}

	_, err = tx.Exec(ctx,
		"UPDATE withdrawals SET status = $1, updated_at = NOW() WHERE id = $2",
		domain.WithdrawalStatusReversed, withdrawalID,
	)
	if err != nil {
		return nil, err
	}

	if err := creditAccountTx(ctx, tx, accountID, w.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	w.Status = domain.WithdrawalStatusReversed
	return &w, nil
}

// ListFundingRecords returns the union of an account's topups and withdrawals,
// newest first. The service groups these into per-day summaries.
func (r *PostgresRepository) ListFundingRecords(ctx context.Context, accountID uuid.UUID) ([]domain.FundingRecord, error) {
	query := `
		SELECT id, 'topup' AS record_type, amount, status, created_at
		FROM topups
		WHERE account_id = $1
		UNION ALL
		SELECT id, 'withdrawal' AS record_type, amount, status, created_at
		FROM withdrawals
		WHERE account_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.FundingRecord
	for rows.Next() {
		var record domain.FundingRecord
		if err := rows.Scan(&record.ID, &record.Type, &record.Amount, &record.Status, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
