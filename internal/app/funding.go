/**
 * @description
 * This file implements the funding service: topup reconciliation from the
 * card-payment provider, withdrawals to a bank account, withdrawal reversal, and
 * the per-day funding summary.
 *
 * RecordTopUp is a ledger-reconciliation record, not a payment action: the charge
 * already happened (or failed) at the provider, so the topup row is always
 * persisted and no failure path here rolls back a provider charge.
 */

package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
	"github.com/paywave/wallet-service/pkg/rabbitmq"
)

// providerStatusSucceeded is the provider's terminal success status for a charge.
const providerStatusSucceeded = "succeeded"

// RecordTopUp persists a topup for a settled provider charge. The stored status is
// 'completed' only when the provider reported success; only completed topups credit
// the account's balance, and the credit commits with the insert as one unit.
func (s *Service) RecordTopUp(ctx context.Context, accountID uuid.UUID, req domain.RecordTopUpRequest) (*domain.TopUp, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	status := domain.TopUpStatusFailed
	if req.ProviderStatus == providerStatusSucceeded {
		status = domain.TopUpStatusCompleted
	}

	topup := &domain.TopUp{
		ID:            uuid.New(),
		AccountID:     accountID,
		Amount:        req.Amount,
		Status:        status,
		ProviderRef:   req.ProviderRef,
		PaymentMethod: req.PaymentMethod,
	}
	if err := s.repo.CreateTopUp(ctx, topup); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "wallet.topup.recorded", rabbitmq.TopUpEvent{
		TopUpID:     topup.ID,
		AccountID:   accountID,
		Amount:      topup.Amount,
		Status:      topup.Status,
		ProviderRef: topup.ProviderRef,
		Timestamp:   time.Now().UTC(),
	})

	return topup, nil
}

// RequestWithdrawal debits the account and records a withdrawal carrying a snapshot
// of the payout details on file. Recording is the full effect; no bank transport is
// initiated here.
func (s *Service) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.Withdrawal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < amount {
		return nil, store.ErrInsufficientFunds
	}
	if !account.HasPayoutDetails() {
		return nil, ErrMissingPayoutDetails
	}

	withdrawal := &domain.Withdrawal{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		BankDetails: *account.BankDetails,
		Status:      domain.WithdrawalStatusCompleted,
	}
	if err := s.repo.CreateWithdrawalAtomic(ctx, withdrawal); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "wallet.withdrawal.requested", rabbitmq.WithdrawalEvent{
		WithdrawalID: withdrawal.ID,
		AccountID:    accountID,
		Amount:       amount,
		Status:       withdrawal.Status,
		Timestamp:    time.Now().UTC(),
	})

	return withdrawal, nil
}

// GetWithdrawal returns one of the account's withdrawal records. Records owned by
// other accounts are reported as not found, never as forbidden.
func (s *Service) GetWithdrawal(ctx context.Context, withdrawalID, accountID uuid.UUID) (*domain.Withdrawal, error) {
	withdrawal, err := s.repo.FindWithdrawalByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.AccountID != accountID {
		return nil, store.ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// ReverseWithdrawal credits a rejected payout back to the account and flips the
// withdrawal to 'reversed'. This is the compensating path for a bank rejection;
// it is idempotent via the store's already-reversed guard.
func (s *Service) ReverseWithdrawal(ctx context.Context, withdrawalID, accountID uuid.UUID) (*domain.Withdrawal, error) {
	withdrawal, err := s.repo.ReverseWithdrawalAtomic(ctx, withdrawalID, accountID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "wallet.withdrawal.reversed", rabbitmq.WithdrawalEvent{
		WithdrawalID: withdrawal.ID,
		AccountID:    accountID,
		Amount:       withdrawal.Amount,
		Status:       withdrawal.Status,
		Timestamp:    time.Now().UTC(),
	})

	return withdrawal, nil
}

// SummarizeFunding groups an account's topups and withdrawals into per-day buckets,
// most recent day first, each with its total and count.
func (s *Service) SummarizeFunding(ctx context.Context, accountID uuid.UUID) ([]domain.FundingDaySummary, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListFundingRecords(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return groupFundingByDay(records), nil
}

// groupFundingByDay buckets records by calendar day. Records must arrive newest
// first; day order then follows record order.
func groupFundingByDay(records []domain.FundingRecord) []domain.FundingDaySummary {
	var summaries []domain.FundingDaySummary
	index := make(map[string]int)

	for _, record := range records {
		day := record.CreatedAt.Format("02/01/2006")
		i, ok := index[day]
		if !ok {
			i = len(summaries)
			index[day] = i
			summaries = append(summaries, domain.FundingDaySummary{Day: day})
		}
		summaries[i].Total += record.Amount
		summaries[i].Count++
		summaries[i].Records = append(summaries[i].Records, record)
	}

	return summaries
}
