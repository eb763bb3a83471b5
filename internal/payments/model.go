package payments

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusPending   = "pending"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
	StatusOverdue   = "overdue"
)

type Link struct {
	ID            string     `json:"id"`
	PaymentID     string     `json:"payment_id"`
	ProductID     string     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	Description   string     `json:"description,omitempty"`
	Amount        float64    `json:"amount"`
	Fee           float64    `json:"fee"`
	Currency      string     `json:"currency"`
	ClientID      string     `json:"client_id,omitempty"`
	VendorID      string     `json:"vendor_id"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ProviderRef   string     `json:"provider_ref,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Total is the amount the client pays: product price plus the 1% fee.
func (l *Link) Total() float64 {
	return l.Amount + l.Fee
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrLinkNotFound    = errors.New("payment link not found")
)

// ConflictError reports a confirmation the link's status does not allow.
type ConflictError struct {
	Status string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("payment link is %s: %s", e.Status, e.Reason)
}
