/**
 * @description
 * This file implements the refund engine. A refund reverses a previously committed
 * peer-to-peer transaction inside a fixed eligibility window, splitting the original
 * amount three ways: 90% back to the sender, 5% kept by the receiver, 5% to the
 * platform account as a fee.
 *
 * Check order is authorization, then refund existence, then window — all strictly
 * before any balance mutation. The balance legs, the refund insert and the status
 * flip commit as one atomic unit in the store; the transaction-row lock there is the
 * enforcement point for concurrent double-submission, not any check in this file.
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
)

// computeRefundSplit derives the three refund legs from the original amount.
// The platform leg absorbs integer-division remainders so the legs always sum to
// the original amount exactly.
func computeRefundSplit(amount int64) (senderBack, receiverBack, platformFee int64) {
	senderBack = amount * refundSenderSharePercent / 100
	receiverBack = amount * refundReceiverSharePercent / 100
	platformFee = amount - senderBack - receiverBack
	return senderBack, receiverBack, platformFee
}

// RefundTransaction reverses a transaction on behalf of its sender.
func (s *Service) RefundTransaction(ctx context.Context, transactionID, requesterID uuid.UUID) (*domain.Refund, error) {
	if err := s.consumeRefundRateLimit(ctx, requesterID); err != nil {
		return nil, err
	}

	txRecord, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	// Only the sender of the payment may refund it.
	if txRecord.SenderID != requesterID {
		return nil, ErrNotTransactionSender
	}

	// Fast-path idempotency check. The store re-checks under the row lock, so a
	// racing duplicate still cannot get past this.
	if _, err := s.repo.FindRefundByTransactionID(ctx, transactionID); err == nil {
		return nil, store.ErrRefundAlreadyExists
	} else if !errors.Is(err, store.ErrRefundNotFound) {
		return nil, err
	}

	if time.Since(txRecord.CreatedAt) > s.refundWindow {
		return nil, ErrRefundWindowExpired
	}

	senderBack, receiverBack, platformFee := computeRefundSplit(txRecord.Amount)

	// The platform fee sink is required; a refund never silently drops the fee.
	platformAccount, err := s.repo.FindPlatformAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve platform account: %w", err)
	}

	refund, err := s.repo.RefundTransactionAtomic(ctx, store.RefundParams{
		TransactionID:     txRecord.ID,
		SenderID:          txRecord.SenderID,
		ReceiverID:        txRecord.ReceiverID,
		PlatformAccountID: platformAccount.ID,
		Amount:            txRecord.Amount,
		SenderReceived:    senderBack,
		ReceiverReceived:  receiverBack,
		PlatformReceived:  platformFee,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "wallet.refund.processed", rabbitmq.RefundEvent{
		RefundID:         refund.ID,
		TransactionID:    txRecord.ID,
		Amount:           refund.Amount,
		SenderReceived:   refund.SenderReceived,
		ReceiverReceived: refund.ReceiverReceived,
		PlatformReceived: refund.PlatformReceived,
		Timestamp:        time.Now().UTC(),
	})

	return refund, nil
}

// consumeRefundRateLimit throttles refund attempts per requester when a limiter is
// configured. Limiter outages fail open; a broken redis must not block refunds.
func (s *Service) consumeRefundRateLimit(ctx context.Context, requesterID uuid.UUID) error {
	if s.refundLimiter == nil {
		return nil
	}

	allowed, retryAfter, err := s.refundLimiter.Allow(ctx, requesterID)
	if err != nil {
		log.Printf("level=warn component=app msg=\"refund rate limiter unavailable; allowing request\" requester_id=%s err=%v", requesterID, err)
		return nil
	}
	if !allowed {
		log.Printf("level=warn component=app msg=\"refund rate limited\" requester_id=%s retry_after_s=%d", requesterID, retryAfter)
		return ErrRefundRateLimited
	}
	return nil
}
