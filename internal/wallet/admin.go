package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/alerts"
)

type BlockRequest struct {
	Reason string `json:"reason"`
}

// AdminBlock freezes a user's wallet. Blocked wallets refuse debits but can
// still receive credits.
// POST /admin/wallets/:id/block
func (h *Handler) AdminBlock(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user ID is required"})
	}

	var req BlockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}

	w, err := h.store.SetStatus(c.Request().Context(), userID, StatusBlocked, req.Reason)
	if err != nil {
		return h.writeError(c, err)
	}

	// Best effort: the freeze itself is already committed.
	_ = alerts.CreateNotification(userID, "wallet:blocked", "Portefeuille bloqué",
		"Votre portefeuille a été bloqué. Raison: "+req.Reason, nil, nil)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "wallet": w})
}

// AdminUnblock lifts a freeze and clears the recorded reason.
// POST /admin/wallets/:id/unblock
func (h *Handler) AdminUnblock(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user ID is required"})
	}

	w, err := h.store.SetStatus(c.Request().Context(), userID, StatusActive, "")
	if err != nil {
		return h.writeError(c, err)
	}

	_ = alerts.CreateNotification(userID, "wallet:unblocked", "Portefeuille débloqué",
		"Votre portefeuille est de nouveau actif.", nil, nil)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "wallet": w})
}

// AdminTransactions returns the full ledger for monitoring, or a single
// user's ledger when ?user_id= is given.
// GET /admin/transactions
func (h *Handler) AdminTransactions(c echo.Context) error {
	var (
		txs []Transaction
		err error
	)
	if userID := c.QueryParam("user_id"); userID != "" {
		txs, err = h.store.Transactions(c.Request().Context(), userID)
	} else {
		txs, err = h.store.AllTransactions(c.Request().Context())
	}
	if err != nil {
		return h.writeError(c, err)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs, "total": len(txs)})
}
