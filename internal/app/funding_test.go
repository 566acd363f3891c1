package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
)

type fundingRepoStub struct {
	store.Repository

	account    *domain.Account
	records    []domain.FundingRecord
	withdrawal *domain.Withdrawal

	createdTopUp      *domain.TopUp
	createdWithdrawal *domain.Withdrawal
}

func (s *fundingRepoStub) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	if s.account == nil {
		return nil, store.ErrAccountNotFound
	}
	return s.account, nil
}

func (s *fundingRepoStub) CreateTopUp(ctx context.Context, topup *domain.TopUp) error {
	s.createdTopUp = topup
	return nil
}

func (s *fundingRepoStub) CreateWithdrawalAtomic(ctx context.Context, withdrawal *domain.Withdrawal) error {
	s.createdWithdrawal = withdrawal
	return nil
}

func (s *fundingRepoStub) FindWithdrawalByID(ctx context.Context, withdrawalID uuid.UUID) (*domain.Withdrawal, error) {
	if s.withdrawal == nil {
		return nil, store.ErrWithdrawalNotFound
	}
	return s.withdrawal, nil
}

func (s *fundingRepoStub) ListFundingRecords(ctx context.Context, accountID uuid.UUID) ([]domain.FundingRecord, error) {
	return s.records, nil
}

func newFundingTestService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, 3*time.Hour, 4500)
}

func TestRecordTopUp_SucceededChargeIsCompleted(t *testing.T) {
	repo := &fundingRepoStub{account: &domain.Account{ID: uuid.New(), Balance: 0}}
	service := newFundingTestService(repo)

	topup, err := service.RecordTopUp(context.Background(), repo.account.ID, domain.RecordTopUpRequest{
		Amount:         5000,
		ProviderStatus: "succeeded",
		ProviderRef:    "ch_123",
		PaymentMethod:  "card",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if topup.Status != domain.TopUpStatusCompleted {
		t.Fatalf("expected completed status, got %q", topup.Status)
	}
	if repo.createdTopUp == nil {
		t.Fatal("expected topup to be persisted")
	}
}

func TestRecordTopUp_FailedChargeIsRecordedWithoutCredit(t *testing.T) {
	repo := &fundingRepoStub{account: &domain.Account{ID: uuid.New(), Balance: 0}}
	service := newFundingTestService(repo)

	topup, err := service.RecordTopUp(context.Background(), repo.account.ID, domain.RecordTopUpRequest{
		Amount:         5000,
		ProviderStatus: "failed",
		ProviderRef:    "ch_456",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if topup.Status != domain.TopUpStatusFailed {
		t.Fatalf("expected failed status, got %q", topup.Status)
	}
	if repo.createdTopUp == nil {
		t.Fatal("expected failed topup to still be persisted as a ledger record")
	}
}

func TestRecordTopUp_RejectsNonPositiveAmount(t *testing.T) {
	repo := &fundingRepoStub{account: &domain.Account{ID: uuid.New()}}
	service := newFundingTestService(repo)

	_, err := service.RecordTopUp(context.Background(), repo.account.ID, domain.RecordTopUpRequest{Amount: 0, ProviderStatus: "succeeded"})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if repo.createdTopUp != nil {
		t.Fatal("did not expect a topup record for an invalid amount")
	}
}

func TestRequestWithdrawal_ChecksInOrder(t *testing.T) {
	accountID := uuid.New()
	bankDetails := &domain.BankAccountDetails{
		AccountHolderName: "Asha Rao",
		AccountNumber:     "000111222333",
		IFSCCode:          "HDFC0001234",
		BankName:          "HDFC Bank",
		AccountType:       "savings",
	}

	tests := []struct {
		name    string
		account *domain.Account
		amount  int64
		wantErr error
	}{
		{
			name:    "rejects zero amount",
			account: &domain.Account{ID: accountID, Balance: 10000, BankDetails: bankDetails},
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "rejects negative amount",
			account: &domain.Account{ID: accountID, Balance: 10000, BankDetails: bankDetails},
			amount:  -500,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown account",
			account: nil,
			amount:  1000,
			wantErr: store.ErrAccountNotFound,
		},
		{
			name:    "insufficient funds",
			account: &domain.Account{ID: accountID, Balance: 500, BankDetails: bankDetails},
			amount:  1000,
			wantErr: store.ErrInsufficientFunds,
		},
		{
			name:    "missing payout details",
			account: &domain.Account{ID: accountID, Balance: 10000},
			amount:  1000,
			wantErr: ErrMissingPayoutDetails,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fundingRepoStub{account: tt.account}
			service := newFundingTestService(repo)

			_, err := service.RequestWithdrawal(context.Background(), accountID, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if repo.createdWithdrawal != nil {
				t.Fatal("did not expect a withdrawal record on a rejected request")
			}
		})
	}
}

func TestRequestWithdrawal_SnapshotsBankDetails(t *testing.T) {
	accountID := uuid.New()
	repo := &fundingRepoStub{
		account: &domain.Account{
			ID:      accountID,
			Balance: 10000,
			BankDetails: &domain.BankAccountDetails{
				AccountHolderName: "Asha Rao",
				AccountNumber:     "000111222333",
				IFSCCode:          "HDFC0001234",
				BankName:          "HDFC Bank",
				AccountType:       "savings",
			},
		},
	}
	service := newFundingTestService(repo)

	withdrawal, err := service.RequestWithdrawal(context.Background(), accountID, 4000)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if withdrawal.Status != domain.WithdrawalStatusCompleted {
		t.Fatalf("expected completed status, got %q", withdrawal.Status)
	}
	if withdrawal.BankDetails.AccountNumber != "000111222333" {
		t.Fatalf("expected payout details snapshot, got %+v", withdrawal.BankDetails)
	}
}

func TestGetWithdrawal_ReturnsOwnRecord(t *testing.T) {
	accountID := uuid.New()
	repo := &fundingRepoStub{
		withdrawal: &domain.Withdrawal{
			ID:        uuid.New(),
			AccountID: accountID,
			Amount:    4000,
			Status:    domain.WithdrawalStatusCompleted,
		},
	}
	service := newFundingTestService(repo)

	withdrawal, err := service.GetWithdrawal(context.Background(), repo.withdrawal.ID, accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if withdrawal.ID != repo.withdrawal.ID {
		t.Fatalf("expected withdrawal %s, got %s", repo.withdrawal.ID, withdrawal.ID)
	}
}

func TestGetWithdrawal_HidesOtherAccountsRecords(t *testing.T) {
	repo := &fundingRepoStub{
		withdrawal: &domain.Withdrawal{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			Amount:    4000,
			Status:    domain.WithdrawalStatusCompleted,
		},
	}
	service := newFundingTestService(repo)

	_, err := service.GetWithdrawal(context.Background(), repo.withdrawal.ID, uuid.New())
	if !errors.Is(err, store.ErrWithdrawalNotFound) {
		t.Fatalf("expected ErrWithdrawalNotFound for a foreign withdrawal, got %v", err)
	}
}

func TestGetWithdrawal_UnknownRecord(t *testing.T) {
	repo := &fundingRepoStub{}
	service := newFundingTestService(repo)

	_, err := service.GetWithdrawal(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrWithdrawalNotFound) {
		t.Fatalf("expected ErrWithdrawalNotFound, got %v", err)
	}
}

func TestGroupFundingByDay(t *testing.T) {
	day := func(value string) time.Time {
		parsed, err := time.Parse("02/01/2006 15:04", value)
		if err != nil {
			t.Fatalf("bad test fixture time %q: %v", value, err)
		}
		return parsed
	}

	records := []domain.FundingRecord{
		{ID: uuid.New(), Type: domain.FundingRecordTopUp, Amount: 5000, Status: "completed", CreatedAt: day("15/03/2026 18:30")},
		{ID: uuid.New(), Type: domain.FundingRecordWithdrawal, Amount: 2000, Status: "completed", CreatedAt: day("15/03/2026 09:10")},
		{ID: uuid.New(), Type: domain.FundingRecordTopUp, Amount: 7500, Status: "failed", CreatedAt: day("14/03/2026 22:45")},
	}

	summaries := groupFundingByDay(records)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(summaries))
	}
	if summaries[0].Day != "15/03/2026" {
		t.Fatalf("expected newest day first, got %q", summaries[0].Day)
	}
	if summaries[0].Total != 7000 || summaries[0].Count != 2 {
		t.Fatalf("expected total=7000 count=2, got total=%d count=%d", summaries[0].Total, summaries[0].Count)
	}
	if summaries[1].Day != "14/03/2026" {
		t.Fatalf("expected second bucket for previous day, got %q", summaries[1].Day)
	}
	if summaries[1].Total != 7500 || summaries[1].Count != 1 {
		t.Fatalf("expected total=7500 count=1, got total=%d count=%d", summaries[1].Total, summaries[1].Count)
	}
}

func TestGroupFundingByDay_EmptyInput(t *testing.T) {
	if summaries := groupFundingByDay(nil); len(summaries) != 0 {
		t.Fatalf("expected no buckets for empty input, got %d", len(summaries))
	}
}
