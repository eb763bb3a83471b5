package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/payments"
)

type provider interface {
	Initialize(ctx context.Context, r InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, paymentRef string) (string, error)
}

// CheckoutHandler opens hosted provider checkouts for payment links.
type CheckoutHandler struct {
	payments payments.Store
	provider provider
}

func NewCheckoutHandler(paymentStore payments.Store, p provider) *CheckoutHandler {
	return &CheckoutHandler{payments: paymentStore, provider: p}
}

// Checkout looks up the link and asks the provider for a checkout session
// covering the full amount including fees.
// POST /api/payments/:id/checkout
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	link, err := h.payments.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, payments.ErrLinkNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		c.Logger().Errorf("checkout lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if link.Status != payments.StatusPending && link.Status != payments.StatusOverdue {
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment link is " + link.Status})
	}

	session, err := h.provider.Initialize(ctx, InitializeRequest{
		Amount:      link.Total(),
		Currency:    link.Currency,
		Description: link.ProductName,
		Reference:   link.PaymentID,
	})
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "online payment is unavailable"})
		}
		c.Logger().Errorf("checkout init: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
	}

	// The reference must land on the link, or in-flight verification has
	// nothing to ask the provider about.
	if err := h.payments.SetProviderRef(ctx, link.PaymentID, session.PaymentRef); err != nil {
		c.Logger().Errorf("checkout ref: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payment_ref":  session.PaymentRef,
		"checkout_url": session.CheckoutURL,
	})
}

// Status re-checks a payment with the provider.
// GET /api/payments/:id/status
func (h *CheckoutHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	link, err := h.payments.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, payments.ErrLinkNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		c.Logger().Errorf("status lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	ref := link.ProviderRef
	if ref == "" {
		ref = link.TransactionID
	}
	if ref == "" {
		return c.JSON(http.StatusOK, echo.Map{"status": link.Status, "provider_status": ""})
	}

	providerStatus, err := h.provider.Verify(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return c.JSON(http.StatusOK, echo.Map{"status": link.Status, "provider_status": ""})
		}
		c.Logger().Errorf("status verify: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": link.Status, "provider_status": providerStatus})
}
