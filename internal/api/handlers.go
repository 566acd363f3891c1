/**
 * @description
 * This file contains the HTTP handlers for the wallet-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/paywave/wallet-service/internal/app"
	"github.com/paywave/wallet-service/internal/domain"
	"github.com/paywave/wallet-service/internal/store"
)

// WalletHandlers holds the application service that handlers will use.
type WalletHandlers struct {
	service *app.Service
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service) *WalletHandlers {
	return &WalletHandlers{service: service}
}

// transactionResponse is sent back to the client after a transaction or refund
// touching a transaction record.
type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	SenderID      string `json:"sender_id"`
	ReceiverID    string `json:"receiver_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type refundResponse struct {
	RefundID         string `json:"refund_id"`
	TransactionID    string `json:"transaction_id"`
	Amount           int64  `json:"amount"`
	SenderReceived   int64  `json:"sender_received"`
	ReceiverReceived int64  `json:"receiver_received"`
	PlatformReceived int64  `json:"platform_received"`
	Message          string `json:"message"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// CreateTransactionHandler handles requests for peer-to-peer payments.
func (h *WalletHandlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_transaction outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.ReceiverID == uuid.Nil {
		log.Printf("level=warn component=api endpoint=create_transaction outcome=reject reason=missing_receiver_id sender_id=%s", senderID)
		h.writeError(w, http.StatusBadRequest, "Receiver ID is required")
		return
	}

	tx, err := h.service.CreateTransaction(r.Context(), senderID, req.ReceiverID, req.Amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_transaction outcome=failed sender_id=%s err=%v", senderID, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrSelfTransfer):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=create_transaction outcome=success transaction_id=%s sender_id=%s amount=%d", tx.ID, senderID, tx.Amount)
	h.writeJSON(w, http.StatusCreated, transactionResponse{
		TransactionID: tx.ID.String(),
		SenderID:      tx.SenderID.String(),
		ReceiverID:    tx.ReceiverID.String(),
		Amount:        tx.Amount,
		Status:        tx.Status,
		Message:       "Transaction completed",
	})
}

// RefundTransactionHandler handles requests to reverse a previously sent payment.
func (h *WalletHandlers) RefundTransactionHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=refund outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.TransactionID == uuid.Nil {
		log.Printf("level=warn component=api endpoint=refund outcome=reject reason=missing_transaction_id requester_id=%s", requesterID)
		h.writeError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	refund, err := h.service.RefundTransaction(r.Context(), req.TransactionID, requesterID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=refund outcome=failed requester_id=%s transaction_id=%s err=%v", requesterID, req.TransactionID, err)
		switch {
		case errors.Is(err, store.ErrTransactionNotFound):
			h.writeError(w, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, app.ErrNotTransactionSender):
			h.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, store.ErrRefundAlreadyExists):
			h.writeError(w, http.StatusConflict, "Transaction has already been refunded")
		case errors.Is(err, app.ErrRefundWindowExpired):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, app.ErrRefundRateLimited):
			h.writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=refund outcome=success refund_id=%s transaction_id=%s", refund.ID, refund.TransactionID)
	h.writeJSON(w, http.StatusCreated, refundResponse{
		RefundID:         refund.ID.String(),
		TransactionID:    refund.TransactionID.String(),
		Amount:           refund.Amount,
		SenderReceived:   refund.SenderReceived,
		ReceiverReceived: refund.ReceiverReceived,
		PlatformReceived: refund.PlatformReceived,
		Message:          "Refund processed",
	})
}

// GetBalanceHandler returns the authenticated account's current balance.
func (h *WalletHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_balance account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		AccountID: accountID.String(),
		Balance:   balance,
	})
}

// writeJSON is a helper for writing JSON responses.
func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
