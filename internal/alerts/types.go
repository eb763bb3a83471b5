package alerts

import "time"

// Task type constants
const (
	TaskEscrowEvent     = "email:escrow_event"
	TaskPaymentLinkPaid = "email:payment_link_paid"
	TaskAdminAlert      = "email:admin_alert"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Escrow lifecycle payload (held, released, refunded, disputed)
type EscrowEventPayload struct {
	Event      string        `json:"event"`
	EscrowID   string        `json:"escrow_id"`
	PayerID    string        `json:"payer_id"`
	ReceiverID string        `json:"receiver_id"`
	Amount     float64       `json:"amount"`
	Currency   string        `json:"currency"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}

// Payment link settled payload (sent to vendor)
type PaymentLinkPaidPayload struct {
	PaymentID string        `json:"payment_id"`
	VendorID  string        `json:"vendor_id"`
	ClientID  string        `json:"client_id"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}

// Admin alert payload
type AdminAlertPayload struct {
	Severity string        `json:"severity"` // info|warning|critical
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
