package wallet

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Initialize gets or creates the caller's wallet. Safe to call repeatedly.
// POST /wallet/initialize
func (h *Handler) Initialize(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	w, err := h.store.Initialize(c.Request().Context(), uid)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": w})
}

// Balance returns the authenticated user's wallet balance.
// GET /wallet/balance
func (h *Handler) Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	w, err := h.store.Get(c.Request().Context(), uid)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  w.UserID,
		"balance":  w.Balance,
		"escrow":   w.Escrow,
		"currency": w.Currency,
		"status":   w.Status,
	})
}

// Transactions lists the caller's ledger newest first.
// GET /wallet/transactions
func (h *Handler) Transactions(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	txs, err := h.store.Transactions(c.Request().Context(), uid)
	if err != nil {
		return h.writeError(c, err)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs, "total": len(txs)})
}

type TransferRequest struct {
	ReceiverID string  `json:"receiver_id"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

// Transfer moves funds to another user's wallet, charging the sender 1%.
// POST /wallet/transfer
func (h *Handler) Transfer(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.ReceiverID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receiver_id is required"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	if req.ReceiverID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot transfer to yourself"})
	}

	result, err := h.store.Transfer(c.Request().Context(), TransferParams{
		SenderID:   uid,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "transfer": result})
}

func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	case errors.Is(err, ErrBlocked):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "wallet is blocked"})
	case errors.Is(err, ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient funds"})
	default:
		c.Logger().Errorf("wallet: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
