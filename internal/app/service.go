/**
 * @description
 * This file contains the core business logic for the wallet-service. The `Service`
 * struct orchestrates all money movement operations, coordinating between the database
 * repository, the card-payment provider client, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: peer-to-peer transactions and balance reads.
 * - Validates every precondition before any balance mutation (fail fast, fail clean).
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/stripeclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
	"github.com/paywave/wallet-service/pkg/rabbitmq"
	"github.com/paywave/wallet-service/pkg/stripeclient"
)

// Refund split shares, in percent of the original amount. The sender bears a 10%
// cancellation cost, split evenly between the receiver and the platform. The
// platform share is computed as the remainder so the three legs always sum to the
// original amount exactly.
const (
	refundSenderSharePercent   = 90
	refundReceiverSharePercent = 5
)

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrSelfTransfer         = errors.New("sender and receiver must be different accounts")
	ErrNotTransactionSender = errors.New("this is not your payment, you cannot refund it")
	ErrRefundWindowExpired  = errors.New("refund period has expired")
	ErrMissingPayoutDetails = errors.New("no bank account details found")
	ErrAmountBelowMinimum   = errors.New("amount is below the provider minimum")
	ErrRefundRateLimited    = errors.New("too many refund attempts")
)

// RefundLimiter gates refund attempts per requesting account.
type RefundLimiter interface {
	Allow(ctx context.Context, accountID uuid.UUID) (allowed bool, retryAfterSeconds int, err error)
}

// CardProvider is the card-payment provider surface the service depends on.
type CardProvider interface {
	CreatePaymentIntent(ctx context.Context, accountRef string, amount int64) (*stripeclient.PaymentIntent, error)
	GetCharge(ctx context.Context, chargeID string) (*stripeclient.Charge, error)
}

// Service provides the core business logic for wallet operations.
type Service struct {
	repo           store.Repository
	provider       CardProvider
	eventProducer  rabbitmq.Publisher
	refundWindow   time.Duration
	minTopUpAmount int64
	refundLimiter  RefundLimiter
}

// NewService creates a new wallet service instance.
func NewService(repo store.Repository, provider CardProvider, producer rabbitmq.Publisher, refundWindow time.Duration, minTopUpAmount int64) *Service {
	return &Service{
		repo:           repo,
		provider:       provider,
		eventProducer:  producer,
		refundWindow:   refundWindow,
		minTopUpAmount: minTopUpAmount,
	}
}

// SetRefundRateLimiter installs a distributed rate limiter for refund requests.
// Without one, refunds are unthrottled.
func (s *Service) SetRefundRateLimiter(limiter RefundLimiter) {
	s.refundLimiter = limiter
}

// CreateTransaction moves money from sender to receiver and records the transaction
// with status 'active'. The debit, credit and insert commit as one atomic unit in
// the store; on any failure no balance changes.
func (s *Service) CreateTransaction(ctx context.Context, senderID, receiverID uuid.UUID, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, ErrSelfTransfer
	}

	txRecord := &domain.Transaction{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Status:     domain.TransactionStatusActive,
	}
	if err := s.repo.CreateTransactionAtomic(ctx, txRecord); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "wallet.transaction.created", rabbitmq.TransactionEvent{
		TransactionID: txRecord.ID,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Amount:        amount,
		Timestamp:     time.Now().UTC(),
	})

	return txRecord, nil
}

// GetBalance returns the authoritative stored balance for an account.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// CreatePaymentIntent starts an add-money flow with the card-payment provider and
// returns the client secret the frontend needs to confirm the charge.
func (s *Service) CreatePaymentIntent(ctx context.Context, accountID uuid.UUID, amount int64) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	if amount < s.minTopUpAmount {
		return "", ErrAmountBelowMinimum
	}
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return "", err
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, accountID.String(), amount)
	if err != nil {
		return "", fmt.Errorf("provider payment intent failed: %w", err)
	}
	return intent.ClientSecret, nil
}

// publishEvent publishes to the wallet events exchange. Publishing is best-effort:
// a broker failure never fails the ledger operation that triggered it.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.WalletEventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=app msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
