// Package outbox implements a transactional outbox: domain handlers insert
// events in the same database transaction as the state change, and a
// background worker publishes them to the broker afterwards.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
)

// Event types emitted by the payment surfaces.
const (
	TypeEscrowHeld      = "escrow.held"
	TypeEscrowReleased  = "escrow.released"
	TypeEscrowRefunded  = "escrow.refunded"
	TypeEscrowDisputed  = "escrow.disputed"
	TypePaymentLinkPaid = "payment_link.paid"
	TypeWalletTransfer  = "wallet.transfer"
)

type Event struct {
	ID          string
	Type        string
	Payload     string
	Status      Status
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEvent marshals payload to JSON and wraps it in a pending event.
func NewEvent(eventType string, payload any) (*Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   string(b),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}
