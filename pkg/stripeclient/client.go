/**
 * @description
 * This package provides a client for interacting with the Stripe card payments API.
 * It encapsulates the logic for making authenticated HTTP requests to Stripe's
 * endpoints, handling request body construction, and parsing responses.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a client for the Stripe API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new Stripe API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PaymentIntent is the subset of Stripe's PaymentIntent object we consume.
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// Charge is the subset of Stripe's Charge object we consume.
type Charge struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
}

// ErrorResponse represents an error from the Stripe API.
type ErrorResponse struct {
	ErrorDetail struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorDetail.Message != "" {
		return fmt.Sprintf("stripe api error: %s - %s", e.ErrorDetail.Code, e.ErrorDetail.Message)
	}
	return "unknown stripe api error"
}

// CreatePaymentIntent creates a card payment intent for a wallet topup. The
// accountRef is attached as metadata so the settled charge can be reconciled
// back to the wallet account.
func (c *Client) CreatePaymentIntent(ctx context.Context, accountRef string, amount int64) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", "inr")
	form.Set("metadata[wallet_account_id]", accountRef)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute payment intent request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment intent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=stripe_client op=create_payment_intent status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=stripe_client op=create_payment_intent status=%d code=%q message=%q", resp.StatusCode, errResp.ErrorDetail.Code, errResp.ErrorDetail.Message)
		return nil, &errResp
	}

	var intent PaymentIntent
	if err := json.Unmarshal(bodyBytes, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent response: %w", err)
	}

	return &intent, nil
}

// GetCharge fetches a charge by its provider reference.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/charges/"+chargeID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create charge request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute charge request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read charge response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=stripe_client op=get_charge charge_id=%s status=%d msg=\"non-2xx response (unparsable error body)\"", chargeID, resp.StatusCode)
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=stripe_client op=get_charge charge_id=%s status=%d code=%q message=%q", chargeID, resp.StatusCode, errResp.ErrorDetail.Code, errResp.ErrorDetail.Message)
		return nil, &errResp
	}

	var charge Charge
	if err := json.Unmarshal(bodyBytes, &charge); err != nil {
		return nil, fmt.Errorf("failed to decode charge response: %w", err)
	}

	return &charge, nil
}
