package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type stubStore struct {
	initCalls     int
	transferCalls int

	wallet      *Wallet
	txs         []Transaction
	result      *TransferResult
	err         error
	lastParams  TransferParams
	lastStatus  string
	lastReason  string
	statusCalls int
}

func (s *stubStore) Initialize(_ context.Context, userID string) (*Wallet, error) {
	s.initCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.wallet, nil
}

func (s *stubStore) Get(_ context.Context, userID string) (*Wallet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.wallet, nil
}

func (s *stubStore) Transactions(_ context.Context, userID string) ([]Transaction, error) {
	return s.txs, s.err
}

func (s *stubStore) AllTransactions(_ context.Context) ([]Transaction, error) {
	return s.txs, s.err
}

func (s *stubStore) Transfer(_ context.Context, p TransferParams) (*TransferResult, error) {
	s.transferCalls++
	s.lastParams = p
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubStore) SetStatus(_ context.Context, userID, status, reason string) (*Wallet, error) {
	s.statusCalls++
	s.lastStatus = status
	s.lastReason = reason
	if s.err != nil {
		return nil, s.err
	}
	return s.wallet, nil
}

func newTestContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	return c, rec
}

func activeWallet() *Wallet {
	return &Wallet{
		ID:        "w-1",
		UserID:    "u-1",
		Balance:   100000,
		Currency:  "GNF",
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	store := &stubStore{wallet: activeWallet()}
	h := NewHandler(store)

	for i := 0; i < 2; i++ {
		c, rec := newTestContext(http.MethodPost, "/wallet/initialize", "", "u-1")
		if err := h.Initialize(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	}
	if store.initCalls != 2 {
		t.Fatalf("init calls = %d, want 2", store.initCalls)
	}
}

func TestInitializeRequiresAuth(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/wallet/initialize", "", "")
	if err := h.Initialize(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if store.initCalls != 0 {
		t.Fatalf("store called without auth")
	}
}

func TestBalanceReturnsWallet(t *testing.T) {
	store := &stubStore{wallet: activeWallet()}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodGet, "/wallet/balance", "", "u-1")
	if err := h.Balance(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["balance"] != float64(100000) {
		t.Errorf("balance = %v, want 100000", resp["balance"])
	}
	if resp["currency"] != "GNF" {
		t.Errorf("currency = %v, want GNF", resp["currency"])
	}
}

func TestBalanceUnknownWallet(t *testing.T) {
	store := &stubStore{err: ErrNotFound}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodGet, "/wallet/balance", "", "u-1")
	if err := h.Balance(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTransferValidation(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	cases := []struct {
		name string
		body string
	}{
		{"missing receiver", `{"amount":1000}`},
		{"zero amount", `{"receiver_id":"u-2","amount":0}`},
		{"negative amount", `{"receiver_id":"u-2","amount":-50}`},
		{"self transfer", `{"receiver_id":"u-1","amount":1000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPost, "/wallet/transfer", tc.body, "u-1")
			if err := h.Transfer(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
	if store.transferCalls != 0 {
		t.Fatalf("store called %d times for invalid requests", store.transferCalls)
	}
}

func TestTransferSuccess(t *testing.T) {
	store := &stubStore{result: &TransferResult{
		TransferID: "t-1",
		Amount:     1000,
		Fee:        10,
		Currency:   "GNF",
		NewBalance: 98990,
	}}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/wallet/transfer",
		`{"receiver_id":"u-2","amount":1000,"note":"loyer"}`, "u-1")
	if err := h.Transfer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.lastParams.SenderID != "u-1" || store.lastParams.ReceiverID != "u-2" {
		t.Errorf("params = %+v", store.lastParams)
	}

	var resp struct {
		Success  bool            `json:"success"`
		Transfer *TransferResult `json:"transfer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Transfer.Fee != 10 {
		t.Errorf("fee = %v, want 10", resp.Transfer.Fee)
	}
}

func TestTransferBlockedWallet(t *testing.T) {
	store := &stubStore{err: ErrBlocked}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/wallet/transfer",
		`{"receiver_id":"u-2","amount":1000}`, "u-1")
	if err := h.Transfer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := &stubStore{err: ErrInsufficientFunds}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/wallet/transfer",
		`{"receiver_id":"u-2","amount":1000000}`, "u-1")
	if err := h.Transfer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdminBlockRequiresReason(t *testing.T) {
	store := &stubStore{wallet: activeWallet()}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/admin/wallets/u-1/block", `{}`, "admin-1")
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	if err := h.AdminBlock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if store.statusCalls != 0 {
		t.Fatalf("store called without a reason")
	}
}

func TestAdminBlockAndUnblock(t *testing.T) {
	store := &stubStore{wallet: activeWallet()}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/admin/wallets/u-1/block",
		`{"reason":"fraud investigation"}`, "admin-1")
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	if err := h.AdminBlock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("block status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.lastStatus != StatusBlocked || store.lastReason != "fraud investigation" {
		t.Errorf("status = %q reason = %q", store.lastStatus, store.lastReason)
	}

	c, rec = newTestContext(http.MethodPost, "/admin/wallets/u-1/unblock", "", "admin-1")
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	if err := h.AdminUnblock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.lastStatus != StatusActive || store.lastReason != "" {
		t.Errorf("status = %q reason = %q after unblock", store.lastStatus, store.lastReason)
	}
}
