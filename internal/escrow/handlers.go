package escrow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/alerts"
	"github.com/solutions224/marketpay/internal/fees"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type CreateRequest struct {
	SellerID  string  `json:"seller_id"`
	OrderID   string  `json:"order_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
}

// Create holds the authenticated buyer's funds for the seller.
// POST /escrow
func (h *Handler) Create(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
	}

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.SellerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "seller_id is required"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "amount must be greater than zero"})
	}
	if req.SellerID == buyerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "cannot open an escrow with yourself"})
	}
	if req.Currency == "" {
		req.Currency = "GNF"
	}
	if !fees.Supported(req.Currency) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "unsupported currency"})
	}

	e, err := h.store.Create(c.Request().Context(), CreateParams{
		PayerID:    buyerID,
		ReceiverID: req.SellerID,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  req.Reference,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	// Email alerts are best-effort; the in-app rows are already committed.
	_ = alerts.EnqueueEscrowEvent("held", e.ID, e.PayerID, e.ReceiverID, e.Amount, e.Currency)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "escrow": NewView(e)})
}

// Get returns the escrow with its permitted actions.
// GET /escrow/:id
func (h *Handler) Get(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
	}

	e, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	role, _ := c.Get("role").(string)
	if uid != e.PayerID && uid != e.ReceiverID && role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "access denied"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "escrow": NewView(e)})
}

// Release settles a held escrow in the seller's favor.
// POST /escrow/:id/release
func (h *Handler) Release(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	e, err := h.store.Release(c.Request().Context(), c.Param("id"), uid, role == "admin")
	if err != nil {
		return h.writeError(c, err)
	}

	_ = alerts.EnqueueEscrowEvent("released", e.ID, e.PayerID, e.ReceiverID, e.Amount, e.Currency)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "escrow": NewView(e)})
}

// Refund returns held funds to the buyer.
// POST /escrow/:id/refund
func (h *Handler) Refund(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	e, err := h.store.Refund(c.Request().Context(), c.Param("id"), uid, role == "admin")
	if err != nil {
		return h.writeError(c, err)
	}

	_ = alerts.EnqueueEscrowEvent("refunded", e.ID, e.PayerID, e.ReceiverID, e.Amount, e.Currency)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "escrow": NewView(e)})
}

// Dispute freezes a held escrow pending admin resolution.
// POST /escrow/:id/dispute
func (h *Handler) Dispute(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "reason is required"})
	}

	e, err := h.store.Dispute(c.Request().Context(), c.Param("id"), uid, req.Reason)
	if err != nil {
		return h.writeError(c, err)
	}

	_ = alerts.EnqueueEscrowEvent("disputed", e.ID, e.PayerID, e.ReceiverID, e.Amount, e.Currency)
	_ = alerts.EnqueueAdminAlert("warning",
		fmt.Sprintf("Escrow %s disputed: %s", e.ID, req.Reason))

	return c.JSON(http.StatusOK, echo.Map{"success": true, "escrow": NewView(e)})
}

// Resolve settles a disputed escrow. Admin only; wired under /admin.
// POST /admin/escrow/:id/resolve
func (h *Handler) Resolve(c echo.Context) error {
	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := c.Bind(&req); err != nil || (req.Outcome != "release" && req.Outcome != "refund") {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "outcome must be release or refund"})
	}

	e, err := h.store.Resolve(c.Request().Context(), c.Param("id"), req.Outcome)
	if err != nil {
		return h.writeError(c, err)
	}

	_ = alerts.EnqueueEscrowEvent(e.Status, e.ID, e.PayerID, e.ReceiverID, e.Amount, e.Currency)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "escrow": NewView(e)})
}

// writeError maps store errors onto the JSON envelope without leaking
// driver details to the client.
func (h *Handler) writeError(c echo.Context, err error) error {
	var stateErr *StateError
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "escrow not found"})
	case errors.Is(err, ErrWalletNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "wallet not found"})
	case errors.Is(err, ErrWalletBlocked):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "wallet is blocked"})
	case errors.Is(err, ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "insufficient balance"})
	case errors.Is(err, ErrNotParticipant):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "not a participant in this escrow"})
	case errors.As(err, &stateErr):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": stateErr.Error()})
	default:
		c.Logger().Errorf("escrow operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
	}
}
