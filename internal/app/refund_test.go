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

func TestComputeRefundSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		wantSender   int64
		wantReceiver int64
		wantPlatform int64
	}{
		{
			name:         "round amount splits 90/5/5",
			amount:       1000,
			wantSender:   900,
			wantReceiver: 50,
			wantPlatform: 50,
		},
		{
			name:         "platform absorbs rounding remainder",
			amount:       999,
			wantSender:   899,
			wantReceiver: 49,
			wantPlatform: 51,
		},
		{
			name:         "tiny amount goes entirely to platform",
			amount:       7,
			wantSender:   6,
			wantReceiver: 0,
			wantPlatform: 1,
		},
		{
			name:         "single paisa",
			amount:       1,
			wantSender:   0,
			wantReceiver: 0,
			wantPlatform: 1,
		},
		{
			name:         "large amount",
			amount:       10_000_000,
			wantSender:   9_000_000,
			wantReceiver: 500_000,
			wantPlatform: 500_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSender, gotReceiver, gotPlatform := computeRefundSplit(tt.amount)
			if gotSender != tt.wantSender {
				t.Fatalf("expected sender=%d, got %d", tt.wantSender, gotSender)
			}
			if gotReceiver != tt.wantReceiver {
				t.Fatalf("expected receiver=%d, got %d", tt.wantReceiver, gotReceiver)
			}
			if gotPlatform != tt.wantPlatform {
				t.Fatalf("expected platform=%d, got %d", tt.wantPlatform, gotPlatform)
			}
			if gotSender+gotReceiver+gotPlatform != tt.amount {
				t.Fatalf("split legs must sum to the original amount, got %d", gotSender+gotReceiver+gotPlatform)
			}
		})
	}
}

type refundRepoStub struct {
	store.Repository

	tx             *domain.Transaction
	existingRefund *domain.Refund
	platform       *domain.Account

	refundAtomicCalled bool
	refundParams       store.RefundParams
}

func (s *refundRepoStub) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	if s.tx == nil {
		return nil, store.ErrTransactionNotFound
	}
	return s.tx, nil
}

func (s *refundRepoStub) FindRefundByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.Refund, error) {
	if s.existingRefund == nil {
		return nil, store.ErrRefundNotFound
	}
	return s.existingRefund, nil
}

func (s *refundRepoStub) FindPlatformAccount(ctx context.Context) (*domain.Account, error) {
	if s.platform == nil {
		return nil, store.ErrPlatformAccountNotFound
	}
	return s.platform, nil
}

func (s *refundRepoStub) RefundTransactionAtomic(ctx context.Context, params store.RefundParams) (*domain.Refund, error) {
	s.refundAtomicCalled = true
	s.refundParams = params
	return &domain.Refund{
		ID:               uuid.New(),
		TransactionID:    params.TransactionID,
		Amount:           params.Amount,
		SenderReceived:   params.SenderReceived,
		ReceiverReceived: params.ReceiverReceived,
		PlatformReceived: params.PlatformReceived,
		CreatedAt:        time.Now(),
	}, nil
}

func newRefundTestService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, 3*time.Hour, 4500)
}

func TestRefundTransaction_SplitsOriginalAmount(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()
	platformID := uuid.New()
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Amount:     1000,
			Status:     domain.TransactionStatusActive,
			CreatedAt:  time.Now().Add(-time.Hour),
		},
		platform: &domain.Account{ID: platformID, Type: domain.AccountTypePlatform},
	}
	service := newRefundTestService(repo)

	refund, err := service.RefundTransaction(context.Background(), repo.tx.ID, senderID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.refundAtomicCalled {
		t.Fatal("expected atomic refund to be invoked")
	}
	if repo.refundParams.PlatformAccountID != platformID {
		t.Fatalf("expected platform account %s, got %s", platformID, repo.refundParams.PlatformAccountID)
	}
	if refund.SenderReceived != 900 || refund.ReceiverReceived != 50 || refund.PlatformReceived != 50 {
		t.Fatalf("unexpected split: sender=%d receiver=%d platform=%d",
			refund.SenderReceived, refund.ReceiverReceived, refund.PlatformReceived)
	}
}

func TestRefundTransaction_RejectsNonSender(t *testing.T) {
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:         uuid.New(),
			SenderID:   uuid.New(),
			ReceiverID: uuid.New(),
			Amount:     1000,
			Status:     domain.TransactionStatusActive,
			CreatedAt:  time.Now().Add(-time.Minute),
		},
	}
	service := newRefundTestService(repo)

	_, err := service.RefundTransaction(context.Background(), repo.tx.ID, uuid.New())
	if !errors.Is(err, ErrNotTransactionSender) {
		t.Fatalf("expected ErrNotTransactionSender, got %v", err)
	}
	if repo.refundAtomicCalled {
		t.Fatal("did not expect any balance mutation for a forbidden refund")
	}
}

func TestRefundTransaction_RejectsAlreadyRefunded(t *testing.T) {
	senderID := uuid.New()
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:        uuid.New(),
			SenderID:  senderID,
			Amount:    1000,
			Status:    domain.TransactionStatusRefunded,
			CreatedAt: time.Now().Add(-time.Minute),
		},
		existingRefund: &domain.Refund{ID: uuid.New()},
	}
	service := newRefundTestService(repo)

	_, err := service.RefundTransaction(context.Background(), repo.tx.ID, senderID)
	if !errors.Is(err, store.ErrRefundAlreadyExists) {
		t.Fatalf("expected ErrRefundAlreadyExists, got %v", err)
	}
	if repo.refundAtomicCalled {
		t.Fatal("did not expect any balance mutation for a duplicate refund")
	}
}

func TestRefundTransaction_RejectsExpiredWindow(t *testing.T) {
	senderID := uuid.New()
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:        uuid.New(),
			SenderID:  senderID,
			Amount:    1000,
			Status:    domain.TransactionStatusActive,
			CreatedAt: time.Now().Add(-4 * time.Hour),
		},
		platform: &domain.Account{ID: uuid.New(), Type: domain.AccountTypePlatform},
	}
	service := newRefundTestService(repo)

	_, err := service.RefundTransaction(context.Background(), repo.tx.ID, senderID)
	if !errors.Is(err, ErrRefundWindowExpired) {
		t.Fatalf("expected ErrRefundWindowExpired, got %v", err)
	}
	if repo.refundAtomicCalled {
		t.Fatal("did not expect any balance mutation after the window expired")
	}
}

func TestRefundTransaction_RequiresPlatformAccount(t *testing.T) {
	senderID := uuid.New()
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:        uuid.New(),
			SenderID:  senderID,
			Amount:    1000,
			Status:    domain.TransactionStatusActive,
			CreatedAt: time.Now().Add(-time.Minute),
		},
	}
	service := newRefundTestService(repo)

	_, err := service.RefundTransaction(context.Background(), repo.tx.ID, senderID)
	if !errors.Is(err, store.ErrPlatformAccountNotFound) {
		t.Fatalf("expected ErrPlatformAccountNotFound, got %v", err)
	}
	if repo.refundAtomicCalled {
		t.Fatal("did not expect any balance mutation without a platform account")
	}
}

func TestRefundTransaction_UnknownTransaction(t *testing.T) {
	repo := &refundRepoStub{}
	service := newRefundTestService(repo)

	_, err := service.RefundTransaction(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

type fixedRefundLimiter struct {
	allowed    bool
	retryAfter int
	err        error
}

func (l *fixedRefundLimiter) Allow(ctx context.Context, accountID uuid.UUID) (bool, int, error) {
	return l.allowed, l.retryAfter, l.err
}

func TestRefundTransaction_RateLimited(t *testing.T) {
	repo := &refundRepoStub{}
	service := newRefundTestService(repo)
	service.SetRefundRateLimiter(&fixedRefundLimiter{allowed: false, retryAfter: 30})

	_, err := service.RefundTransaction(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrRefundRateLimited) {
		t.Fatalf("expected ErrRefundRateLimited, got %v", err)
	}
}

func TestRefundTransaction_LimiterOutageFailsOpen(t *testing.T) {
	senderID := uuid.New()
	repo := &refundRepoStub{
		tx: &domain.Transaction{
			ID:        uuid.New(),
			SenderID:  senderID,
			Amount:    500,
			Status:    domain.TransactionStatusActive,
			CreatedAt: time.Now().Add(-time.Minute),
		},
		platform: &domain.Account{ID: uuid.New(), Type: domain.AccountTypePlatform},
	}
	service := newRefundTestService(repo)
	service.SetRefundRateLimiter(&fixedRefundLimiter{err: errors.New("redis down")})

	if _, err := service.RefundTransaction(context.Background(), repo.tx.ID, senderID); err != nil {
		t.Fatalf("expected limiter outage to fail open, got %v", err)
	}
}

func TestRedisRefundLimiter_DisabledConfigurationsAllow(t *testing.T) {
	tests := []struct {
		name    string
		limiter *RedisRefundLimiter
	}{
		{
			name:    "nil limiter",
			limiter: nil,
		},
		{
			name:    "no redis client",
			limiter: NewRedisRefundLimiter(nil, "paywave:rate_limit", 10),
		},
		{
			name:    "non-positive limit",
			limiter: NewRedisRefundLimiter(nil, "paywave:rate_limit", 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, retryAfter, err := tt.limiter.Allow(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if !allowed {
				t.Fatal("expected a disabled limiter to allow the request")
			}
			if retryAfter != 0 {
				t.Fatalf("expected no retry-after, got %d", retryAfter)
			}
		})
	}
}
