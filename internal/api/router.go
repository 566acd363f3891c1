/**
 * @description
 * This file sets up the HTTP router for the wallet-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// WalletRoutes creates and returns a new router for the wallet service.
func WalletRoutes(h *WalletHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Define the protected API endpoints.
		r.Post("/transactions", h.CreateTransactionHandler)
		r.Post("/refunds", h.RefundTransactionHandler)
		r.Get("/balance", h.GetBalanceHandler)

		// Funding endpoints
		r.Post("/topups/intent", h.CreatePaymentIntentHandler)
		r.Post("/topups", h.RecordTopUpHandler)
		r.Post("/withdrawals", h.RequestWithdrawalHandler)
		r.Get("/withdrawals/{withdrawalID}", h.GetWithdrawalHandler)
		r.Post("/withdrawals/{withdrawalID}/reverse", h.ReverseWithdrawalHandler)
		r.Get("/funding/summary", h.FundingSummaryHandler)
	})

	return r
}
