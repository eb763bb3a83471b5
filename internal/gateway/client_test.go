package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solutions224/marketpay/internal/config"
)

func TestInitializePayment(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/initialize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 50000 || req.Currency != "GNF" {
			t.Errorf("request = %+v", req)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":           "mno_123",
				"checkout_url": "https://checkout.example/mno_123",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	resp, err := c.Initialize(context.Background(), InitializeRequest{
		Amount:    50000,
		Currency:  "GNF",
		Reference: "pay_abc123",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if resp.PaymentRef != "mno_123" {
		t.Errorf("payment ref = %q, want mno_123", resp.PaymentRef)
	}
	if resp.CheckoutURL != "https://checkout.example/mno_123" {
		t.Errorf("checkout url = %q", resp.CheckoutURL)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestInitializeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid amount"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	_, err := c.Initialize(context.Background(), InitializeRequest{Amount: -1})
	if err == nil {
		t.Fatal("expected error for provider rejection")
	}
}

func TestInitializeWithoutKey(t *testing.T) {
	c := NewClient(config.GatewayConfig{BaseURL: "https://api.example"})
	_, err := c.Initialize(context.Background(), InitializeRequest{Amount: 100})
	if err != ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/mno_123/verify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"status": "success"},
		})
	}))
	defer srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	status, err := c.Verify(context.Background(), "mno_123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if status != "success" {
		t.Errorf("status = %q, want success", status)
	}
}
