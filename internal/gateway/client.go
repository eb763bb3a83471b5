package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solutions224/marketpay/internal/config"
)

// Client talks to the external payment provider. It only covers the two
// calls the platform needs: opening a checkout and verifying its status.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

var ErrNotConfigured = errors.New("payment gateway is not configured")

type InitializeRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Reference   string  `json:"reference"`
	ReturnURL   string  `json:"return_url"`
}

type InitializeResponse struct {
	PaymentRef  string `json:"payment_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// Initialize opens a hosted checkout session and returns the provider's
// payment reference plus the URL the client should be redirected to.
func (c *Client) Initialize(ctx context.Context, r InitializeRequest) (*InitializeResponse, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Data struct {
			ID          string `json:"id"`
			CheckoutURL string `json:"checkout_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &InitializeResponse{
		PaymentRef:  result.Data.ID,
		CheckoutURL: result.Data.CheckoutURL,
	}, nil
}

// Verify asks the provider for the current status of a payment.
func (c *Client) Verify(ctx context.Context, paymentRef string) (string, error) {
	if c.secretKey == "" {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentRef+"/verify", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Data.Status, nil
}
