package payments

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/alerts"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type CreateRequest struct {
	ProductID string `json:"product_id"`
	ClientID  string `json:"client_id"`
}

// Create issues a pending payment link for a product.
// POST /api/payments/create
func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
	}

	link, err := h.store.Create(c.Request().Context(), req.ProductID, req.ClientID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		c.Logger().Errorf("create payment link: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment_link": "/pay/" + link.PaymentID,
		"payment_id":   link.PaymentID,
	})
}

// Get returns a link by row id or public payment id, with the field names
// the storefront expects.
// GET /api/payments/:id
func (h *Handler) Get(c echo.Context) error {
	link, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		c.Logger().Errorf("get payment link: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payment": echo.Map{
			"id":         link.ID,
			"payment_id": link.PaymentID,
			"produit":    link.ProductName,
			"montant":    link.Amount,
			"frais":      link.Fee,
			"total":      link.Total(),
			"devise":     link.Currency,
			"status":     link.Status,
			"created_at": link.CreatedAt,
			"paid_at":    link.PaidAt,
		},
	})
}

type ConfirmRequest struct {
	PaymentID     string `json:"payment_id"`
	PaymentMethod string `json:"payment_method"`
	ClientID      string `json:"client_id"`
	ClientInfo    string `json:"client_info"`
	TransactionID string `json:"transaction_id"`
}

// Confirm settles a payment link.
// POST /api/payments/confirm
func (h *Handler) Confirm(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PaymentID == "" || req.PaymentMethod == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_id and payment_method are required"})
	}

	link, err := h.store.Confirm(c.Request().Context(), ConfirmParams{
		PaymentID:     req.PaymentID,
		PaymentMethod: req.PaymentMethod,
		ClientID:      req.ClientID,
		ClientInfo:    req.ClientInfo,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		var conflict *ConflictError
		switch {
		case errors.Is(err, ErrLinkNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		case errors.As(err, &conflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Error()})
		default:
			c.Logger().Errorf("confirm payment link: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	_ = alerts.EnqueuePaymentLinkPaid(link.PaymentID, link.VendorID, link.ClientID, link.Total(), link.Currency)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
