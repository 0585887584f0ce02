// Package payments is the thin boundary to the external payment
// provider: session creation, status polling, and typed webhook events.
// The core never touches money; it only emits the data the provider
// needs and consumes acknowledgements.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/citywatch-app/citywatch/internal/errs"
)

// Session is the provider's answer to a create call, validated at the boundary.
type Session struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
	AmountUSD  string `json:"amount_usd"`
	Currency   string `json:"currency"`
	ExpiresAt  string `json:"expires_at"`
}

// Status is the provider's view of a payment.
type Status struct {
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// Client talks to the provider's JSON API.
type Client struct {
	baseURL    string
	merchantID string
	apiKey     string
	appURL     string
	http       *http.Client
}

// NewClient constructs a provider client.
func NewClient(baseURL, merchantID, apiKey, appURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		merchantID: merchantID,
		apiKey:     apiKey,
		appURL:     appURL,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool { return c.merchantID != "" && c.apiKey != "" }

// CreateSession opens a payment session for a donation.
func (c *Client) CreateSession(ctx context.Context, amountUSD float64, currency, message string) (*Session, error) {
	if amountUSD < 1 || amountUSD > 10000 {
		return nil, fmt.Errorf("%w: amount must be between $1 and $10,000", errs.ErrValidation)
	}
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", errs.ErrValidation)
	}
	description := "Donation"
	if message != "" {
		if len(message) > 100 {
			message = message[:100]
		}
		description = "Donation: " + message
	}

	reqBody, err := json.Marshal(map[string]any{
		"business_id":  c.merchantID,
		"amount_usd":   amountUSD,
		"currency":     currency,
		"description":  description,
		"redirect_url": c.appURL + "/donate/thank-you",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Success bool     `json:"success"`
		Payment *Session `json:"payment"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/create", reqBody, &payload); err != nil {
		return nil, err
	}
	if !payload.Success || payload.Payment == nil {
		return nil, fmt.Errorf("payments: provider rejected session creation")
	}
	if payload.Payment.PaymentID == "" || payload.Payment.PaymentURL == "" {
		return nil, fmt.Errorf("payments: malformed session response")
	}
	return payload.Payment, nil
}

// Coin is one donation currency the provider accepts.
type Coin struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// SupportedCoins lists the currencies donations can be made in. Only
// coins the provider both activated and holds a wallet for are returned.
func (c *Client) SupportedCoins(ctx context.Context) ([]Coin, error) {
	var payload struct {
		Coins []struct {
			Symbol    string `json:"symbol"`
			Name      string `json:"name"`
			IsActive  bool   `json:"is_active"`
			HasWallet bool   `json:"has_wallet"`
		} `json:"coins"`
	}
	path := "/supported-coins?business_id=" + url.QueryEscape(c.merchantID) + "&active_only=true"
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	coins := make([]Coin, 0, len(payload.Coins))
	for _, coin := range payload.Coins {
		if coin.IsActive && coin.HasWallet {
			coins = append(coins, Coin{Symbol: coin.Symbol, Name: coin.Name})
		}
	}
	return coins, nil
}

// GetStatus polls a payment's status.
func (c *Client) GetStatus(ctx context.Context, paymentID string) (*Status, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment_id is required", errs.ErrValidation)
	}
	var payload struct {
		Success bool    `json:"success"`
		Payment *Status `json:"payment"`
	}
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payload); err != nil {
		return nil, err
	}
	if !payload.Success || payload.Payment == nil || payload.Payment.PaymentID == "" {
		return nil, fmt.Errorf("payments: malformed status response")
	}
	return payload.Payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payments: provider returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: decode response: %w", err)
	}
	return nil
}
