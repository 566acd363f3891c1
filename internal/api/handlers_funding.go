/**
 * @description
 * This file contains the HTTP handlers for funding operations: card topups,
 * withdrawals to a bank account, withdrawal reversal, and the per-day funding
 * summary.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/app"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
)

type paymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type topUpResponse struct {
	TopUpID     string `json:"topup_id"`
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Message     string `json:"message"`
}

type withdrawalResponse struct {
	WithdrawalID string `json:"withdrawal_id"`
	AccountID    string `json:"account_id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// CreatePaymentIntentHandler starts an add-money flow with the card provider.
func (h *WalletHandlers) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=payment_intent outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	clientSecret, err := h.service.CreatePaymentIntent(r.Context(), accountID, req.Amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=payment_intent outcome=failed account_id=%s err=%v", accountID, err)
		switch {
		case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrAmountBelowMinimum):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			h.writeError(w, http.StatusBadGateway, "Payment provider unavailable")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, paymentIntentResponse{ClientSecret: clientSecret})
}

// RecordTopUpHandler records a settled provider charge against the account.
func (h *WalletHandlers) RecordTopUpHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.RecordTopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=record_topup outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	topup, err := h.service.RecordTopUp(r.Context(), accountID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=record_topup outcome=failed account_id=%s err=%v", accountID, err)
		switch {
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=record_topup outcome=success topup_id=%s account_id=%s status=%s amount=%d", topup.ID, accountID, topup.Status, topup.Amount)
	h.writeJSON(w, http.StatusCreated, topUpResponse{
		TopUpID:     topup.ID.String(),
		AccountID:   topup.AccountID.String(),
		Amount:      topup.Amount,
		Status:      topup.Status,
		ProviderRef: topup.ProviderRef,
		Message:     "Topup recorded",
	})
}

// RequestWithdrawalHandler moves wallet funds out to the account's bank details.
func (h *WalletHandlers) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=withdrawal outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	withdrawal, err := h.service.RequestWithdrawal(r.Context(), accountID, req.Amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=withdrawal outcome=failed account_id=%s err=%v", accountID, err)
		switch {
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, app.ErrMissingPayoutDetails):
			h.writeError(w, http.StatusPreconditionFailed, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=withdrawal outcome=success withdrawal_id=%s account_id=%s amount=%d", withdrawal.ID, accountID, withdrawal.Amount)
	h.writeJSON(w, http.StatusCreated, withdrawalResponse{
		WithdrawalID: withdrawal.ID.String(),
		AccountID:    withdrawal.AccountID.String(),
		Amount:       withdrawal.Amount,
		Status:       withdrawal.Status,
		Message:      "Withdrawal completed",
	})
}

// GetWithdrawalHandler returns one of the authenticated account's withdrawals,
// including the payout-details snapshot taken at request time.
func (h *WalletHandlers) GetWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	withdrawalID, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid withdrawal ID format")
		return
	}

	withdrawal, err := h.service.GetWithdrawal(r.Context(), withdrawalID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrWithdrawalNotFound) {
			h.writeError(w, http.StatusNotFound, "Withdrawal not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_withdrawal withdrawal_id=%s account_id=%s err=%v", withdrawalID, accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, withdrawal)
}

// ReverseWithdrawalHandler credits a rejected payout back to the account.
func (h *WalletHandlers) ReverseWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	withdrawalID, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid withdrawal ID format")
		return
	}

	withdrawal, err := h.service.ReverseWithdrawal(r.Context(), withdrawalID, accountID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=reverse_withdrawal outcome=failed withdrawal_id=%s account_id=%s err=%v", withdrawalID, accountID, err)
		switch {
		case errors.Is(err, store.ErrWithdrawalNotFound):
			h.writeError(w, http.StatusNotFound, "Withdrawal not found")
		case errors.Is(err, store.ErrWithdrawalAlreadyReversed):
			h.writeError(w, http.StatusConflict, "Withdrawal has already been reversed")
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=reverse_withdrawal outcome=success withdrawal_id=%s account_id=%s", withdrawalID, accountID)
	h.writeJSON(w, http.StatusOK, withdrawalResponse{
		WithdrawalID: withdrawal.ID.String(),
		AccountID:    withdrawal.AccountID.String(),
		Amount:       withdrawal.Amount,
		Status:       withdrawal.Status,
		Message:      "Withdrawal reversed",
	})
}

// FundingSummaryHandler returns the account's topups and withdrawals grouped by day.
func (h *WalletHandlers) FundingSummaryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	summaries, err := h.service.SummarizeFunding(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=funding_summary account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if summaries == nil {
		summaries = []domain.FundingDaySummary{}
	}
	h.writeJSON(w, http.StatusOK, summaries)
}
