package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
)

// ChargeEventConsumer reconciles settled provider charges delivered over RabbitMQ
// into topup records. It is the asynchronous twin of the add-money HTTP endpoint:
// both feed RecordTopUp.
type ChargeEventConsumer struct {
	service *Service
}

func NewChargeEventConsumer(service *Service) *ChargeEventConsumer {
	return &ChargeEventConsumer{service: service}
}

// HandleMessage processes one charge event. Returning true acknowledges the
// message; returning false requeues it for retry.
func (c *ChargeEventConsumer) HandleMessage(body []byte) bool {
	var event domain.ChargeSettledEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("charge-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if event.AccountID == uuid.Nil || event.ProviderRef == "" {
		log.Printf("charge-consumer: missing account id or provider ref in event %+v", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("charge-consumer: processing error for charge %s: %v", event.ProviderRef, err)
		return false
	}

	return true
}

func (c *ChargeEventConsumer) processEvent(ctx context.Context, event domain.ChargeSettledEvent) error {
	status := event.Status
	if verified, ok := c.verifiedChargeStatus(ctx, event.ProviderRef); ok {
		if verified != status {
			log.Printf("charge-consumer: provider reports status %q for charge %s, overriding event status %q", verified, event.ProviderRef, status)
		}
		status = verified
	}

	_, err := c.service.RecordTopUp(ctx, event.AccountID, domain.RecordTopUpRequest{
		Amount:         event.Amount,
		ProviderStatus: status,
		ProviderRef:    event.ProviderRef,
		PaymentMethod:  event.PaymentMethod,
	})
	if err != nil {
		// Events for unknown accounts or malformed amounts are not retryable;
		// acknowledge and drop rather than poisoning the queue.
		if errors.Is(err, store.ErrAccountNotFound) || errors.Is(err, ErrInvalidAmount) {
			log.Printf("charge-consumer: dropping unprocessable charge %s: %v", event.ProviderRef, err)
			return nil
		}
		return fmt.Errorf("record topup: %w", err)
	}
	return nil
}

// verifiedChargeStatus asks the card provider for the charge's authoritative status.
// The event's status is a claim made by the gateway; the provider's record wins when
// reachable. Provider outages fall back to trusting the event.
func (c *ChargeEventConsumer) verifiedChargeStatus(ctx context.Context, providerRef string) (string, bool) {
	if c.service.provider == nil || providerRef == "" {
		return "", false
	}

	charge, err := c.service.provider.GetCharge(ctx, providerRef)
	if err != nil {
		log.Printf("charge-consumer: could not verify charge %s with provider, trusting event: %v", providerRef, err)
		return "", false
	}
	return charge.Status, true
}
