package escrow

import "time"

// DefaultCommissionPercent is the platform's cut of a released escrow.
const DefaultCommissionPercent = 2.5

const (
	StatusPending  = "pending"
	StatusHeld     = "held"
	StatusReleased = "released"
	StatusRefunded = "refunded"
	StatusDisputed = "disputed"
)

type Escrow struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id,omitempty"`
	PayerID           string     `json:"payer_id"`
	ReceiverID        string     `json:"receiver_id"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	CommissionPercent float64    `json:"commission_percent"`
	CommissionAmount  float64    `json:"commission_amount"`
	DisputeReason     string     `json:"dispute_reason,omitempty"`
	Reference         string     `json:"reference,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// View decorates an escrow with the actions its current status permits.
type View struct {
	Escrow
	CanRelease bool `json:"can_release"`
	CanRefund  bool `json:"can_refund"`
	CanDispute bool `json:"can_dispute"`
}

func NewView(e *Escrow) View {
	return View{
		Escrow:     *e,
		CanRelease: e.Status == StatusHeld,
		CanRefund:  e.Status == StatusHeld || e.Status == StatusPending,
		CanDispute: e.Status == StatusHeld,
	}
}
