package payments

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
	createCalls  int
	getCalls     int
	confirmCalls int

	createErr  error
	getErr     error
	confirmErr error

	link        *Link
	lastConfirm ConfirmParams
}

func (s *stubStore) Create(_ context.Context, productID, clientID string) (*Link, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.link, nil
}

func (s *stubStore) Get(_ context.Context, id string) (*Link, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.link, nil
}

func (s *stubStore) Confirm(_ context.Context, p ConfirmParams) (*Link, error) {
	s.confirmCalls++
	s.lastConfirm = p
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return s.link, nil
}

func (s *stubStore) SetProviderRef(_ context.Context, paymentID, providerRef string) error {
	return nil
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleLink() *Link {
	return &Link{
		ID:          "4f7c2d10-0000-0000-0000-000000000001",
		PaymentID:   "pay_abc123",
		ProductID:   "4f7c2d10-0000-0000-0000-000000000002",
		ProductName: "Sac en cuir",
		Amount:      50000,
		Fee:         500,
		Currency:    "GNF",
		VendorID:    "4f7c2d10-0000-0000-0000-000000000003",
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestCreateRequiresProductID(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/api/payments/create", `{"client_id":"c1"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if store.createCalls != 0 {
		t.Fatalf("store called %d times for invalid request", store.createCalls)
	}
}

func TestCreateUnknownProduct(t *testing.T) {
	store := &stubStore{createErr: ErrProductNotFound}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/api/payments/create", `{"product_id":"nope"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateReturnsLink(t *testing.T) {
	store := &stubStore{link: sampleLink()}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodPost, "/api/payments/create", `{"product_id":"p1"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["payment_id"] != "pay_abc123" {
		t.Errorf("payment_id = %v, want pay_abc123", resp["payment_id"])
	}
	if resp["payment_link"] != "/pay/pay_abc123" {
		t.Errorf("payment_link = %v, want /pay/pay_abc123", resp["payment_link"])
	}
}

func TestGetExposesTotals(t *testing.T) {
	store := &stubStore{link: sampleLink()}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodGet, "/api/payments/pay_abc123", "")
	c.SetParamNames("id")
	c.SetParamValues("pay_abc123")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Payment map[string]any `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Payment["montant"] != float64(50000) {
		t.Errorf("montant = %v, want 50000", resp.Payment["montant"])
	}
	if resp.Payment["frais"] != float64(500) {
		t.Errorf("frais = %v, want 500", resp.Payment["frais"])
	}
	if resp.Payment["total"] != float64(50500) {
		t.Errorf("total = %v, want 50500", resp.Payment["total"])
	}
	if resp.Payment["devise"] != "GNF" {
		t.Errorf("devise = %v, want GNF", resp.Payment["devise"])
	}
}

func TestGetUnknownLink(t *testing.T) {
	store := &stubStore{getErr: ErrLinkNotFound}
	h := NewHandler(store)

	c, rec := newTestContext(http.MethodGet, "/api/payments/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestConfirmRequiresPaymentIDAndMethod(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	for _, body := range []string{
		`{"payment_method":"orange_money"}`,
		`{"payment_id":"pay_abc123"}`,
	} {
		c, rec := newTestContext(http.MethodPost, "/api/payments/confirm", body)
		if err := h.Confirm(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d for %s, want %d", rec.Code, body, http.StatusBadRequest)
		}
	}
	if store.confirmCalls != 0 {
		t.Fatalf("store called %d times for invalid requests", store.confirmCalls)
	}
}

func TestConfirmSuccess(t *testing.T) {
	paid := sampleLink()
	paid.Status = StatusSuccess
	store := &stubStore{link: paid}
	h := NewHandler(store)

	body := `{"payment_id":"pay_abc123","payment_method":"orange_money","transaction_id":"tx-1"}`
	c, rec := newTestContext(http.MethodPost, "/api/payments/confirm", body)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}
	if store.lastConfirm.TransactionID != "tx-1" {
		t.Errorf("transaction id = %q, want tx-1", store.lastConfirm.TransactionID)
	}
}

func TestConfirmConflict(t *testing.T) {
	store := &stubStore{confirmErr: &ConflictError{Status: StatusSuccess, Reason: "already confirmed with a different transaction"}}
	h := NewHandler(store)

	body := `{"payment_id":"pay_abc123","payment_method":"orange_money","transaction_id":"tx-2"}`
	c, rec := newTestContext(http.MethodPost, "/api/payments/confirm", body)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestConfirmUnknownLink(t *testing.T) {
	store := &stubStore{confirmErr: ErrLinkNotFound}
	h := NewHandler(store)

	body := `{"payment_id":"pay_missing","payment_method":"orange_money"}`
	c, rec := newTestContext(http.MethodPost, "/api/payments/confirm", body)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
