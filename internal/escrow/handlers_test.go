package escrow

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
	createCalls int
	created     *Escrow
	createErr   error
	releaseErr  error
}

func (s *stubStore) Create(_ context.Context, p CreateParams) (*Escrow, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created != nil {
		return s.created, nil
	}
	return &Escrow{
		ID:         "esc-1",
		PayerID:    p.PayerID,
		ReceiverID: p.ReceiverID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     StatusHeld,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

func (s *stubStore) Get(_ context.Context, id string) (*Escrow, error) {
	return nil, ErrNotFound
}

func (s *stubStore) Release(_ context.Context, id, actorID string, admin bool) (*Escrow, error) {
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	return &Escrow{ID: id, PayerID: actorID, Status: StatusReleased}, nil
}

func (s *stubStore) Refund(_ context.Context, id, actorID string, admin bool) (*Escrow, error) {
	return nil, ErrNotFound
}

func (s *stubStore) Dispute(_ context.Context, id, actorID, reason string) (*Escrow, error) {
	return nil, ErrNotFound
}

func (s *stubStore) Resolve(_ context.Context, id, outcome string) (*Escrow, error) {
	return nil, ErrNotFound
}

func newCreateContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/escrow", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "buyer-1")
	c.Set("role", "client")
	return c, rec
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	for _, body := range []string{
		`{"seller_id":"seller-1","amount":0}`,
		`{"seller_id":"seller-1","amount":-50}`,
	} {
		c, rec := newCreateContext(t, body)
		if err := h.Create(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: got status %d, want 400", body, rec.Code)
		}
	}
	if store.createCalls != 0 {
		t.Errorf("store must not be called on validation failure, got %d calls", store.createCalls)
	}
}

func TestCreateRejectsMissingSeller(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	c, rec := newCreateContext(t, `{"amount":1000}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
	if store.createCalls != 0 {
		t.Error("store must not be called when seller_id is missing")
	}
}

func TestCreateRejectsUnknownCurrency(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	c, rec := newCreateContext(t, `{"seller_id":"seller-1","amount":1000,"currency":"XYZ"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
	if store.createCalls != 0 {
		t.Error("store must not be called for an unsupported currency")
	}
}

func TestCreateRejectsSelfEscrow(t *testing.T) {
	h := NewHandler(&stubStore{})

	c, rec := newCreateContext(t, `{"seller_id":"buyer-1","amount":1000}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestCreateHoldsFunds(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store)

	c, rec := newCreateContext(t, `{"seller_id":"seller-1","amount":25000,"order_id":"order-9"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Escrow  View `json:"escrow"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}
	if resp.Escrow.Status != StatusHeld {
		t.Errorf("status: got %s, want held", resp.Escrow.Status)
	}
	if !resp.Escrow.CanRelease || !resp.Escrow.CanDispute {
		t.Error("held escrow should be releasable and disputable")
	}
	if resp.Escrow.Currency != "GNF" {
		t.Errorf("currency should default to GNF, got %s", resp.Escrow.Currency)
	}
}

func TestCreateMapsInsufficientFunds(t *testing.T) {
	store := &stubStore{createErr: ErrInsufficientFunds}
	h := NewHandler(store)

	c, rec := newCreateContext(t, `{"seller_id":"seller-1","amount":99999}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestReleaseConflictReturns409(t *testing.T) {
	store := &stubStore{releaseErr: &StateError{Current: StatusReleased, Action: "release"}}
	h := NewHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/escrow/esc-1/release", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("esc-1")
	c.Set("user_id", "buyer-1")
	c.Set("role", "client")

	if err := h.Release(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rec.Code)
	}
}

func TestReleaseNotParticipantReturns403(t *testing.T) {
	store := &stubStore{releaseErr: ErrNotParticipant}
	h := NewHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/escrow/esc-1/release", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("esc-1")
	c.Set("user_id", "stranger")
	c.Set("role", "client")

	if err := h.Release(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}
