package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/payments"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WebhookHandler receives provider callbacks. Every delivery is recorded and
// answered with 200 so the provider does not retry forever; failures are a
// problem for our logs, not theirs.
type WebhookHandler struct {
	db       execer
	payments payments.Store
	logger   *slog.Logger
}

func NewWebhookHandler(db execer, paymentStore payments.Store, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{db: db, payments: paymentStore, logger: logger}
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        string `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Method    string `json:"method"`
	} `json:"data"`
}

// Handle processes POST /webhooks/provider.
func (h *WebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook body read failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		h.logger.WarnContext(ctx, "webhook payload not JSON", slog.String("error", err.Error()))
	}

	h.record(ctx, p, string(body))

	if p.Event == "payment.success" && p.Data.Reference != "" {
		_, err := h.payments.Confirm(ctx, payments.ConfirmParams{
			PaymentID:     p.Data.Reference,
			PaymentMethod: orDefault(p.Data.Method, "gateway"),
			TransactionID: p.Data.ID,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "webhook confirmation failed",
				slog.String("reference", p.Data.Reference),
				slog.String("error", err.Error()),
			)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *WebhookHandler) record(ctx context.Context, p webhookPayload, raw string) {
	_, err := h.db.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, provider, event, reference, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), "moneroo", p.Event, p.Data.Reference, raw,
	)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook delivery not recorded", slog.String("error", err.Error()))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
