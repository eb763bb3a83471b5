package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/solutions224/marketpay/internal/db"
)

func lookupEmail(userID string) string {
	var email string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	return email
}

// EnqueueEscrowEvent notifies the affected parties of an escrow transition.
// event is one of held, released, refunded, disputed.
func EnqueueEscrowEvent(event, escrowID, payerID, receiverID string, amount float64, currency string) error {
	if client == nil {
		return nil
	}

	subjects := map[string]string{
		"held":     "Funds held in escrow",
		"released": "Escrow released to your wallet",
		"refunded": "Escrow refunded",
		"disputed": "Escrow disputed",
	}
	subject, ok := subjects[event]
	if !ok {
		subject = "Escrow update"
	}

	var recipients []string
	switch event {
	case "released", "held":
		recipients = []string{receiverID}
	case "refunded":
		recipients = []string{payerID}
	default:
		recipients = []string{payerID, receiverID}
	}

	for _, uid := range recipients {
		email := lookupEmail(uid)
		if email == "" {
			continue
		}
		env := EmailEnvelope{
			To:      email,
			Subject: subject,
			Body:    fmt.Sprintf("Escrow %s: amount %.2f %s is now %s.", escrowID, amount, currency, event),
		}
		payload := EscrowEventPayload{
			Event: event, EscrowID: escrowID, PayerID: payerID, ReceiverID: receiverID,
			Amount: amount, Currency: currency, Envelope: env, SentAt: time.Now(),
		}
		b, _ := json.Marshal(payload)
		task := asynq.NewTask(TaskEscrowEvent, b)
		if _, err := client.Enqueue(task, asynq.Queue("emails")); err != nil {
			return err
		}
	}
	return nil
}

// EnqueuePaymentLinkPaid notifies the vendor that a payment link settled.
func EnqueuePaymentLinkPaid(paymentID, vendorID, clientID string, amount float64, currency string) error {
	if client == nil {
		return nil
	}

	email := lookupEmail(vendorID)
	if email == "" {
		return nil
	}

	env := EmailEnvelope{
		To:      email,
		Subject: "Payment received",
		Body:    fmt.Sprintf("Payment link %s settled for %.2f %s.", paymentID, amount, currency),
	}
	payload := PaymentLinkPaidPayload{
		PaymentID: paymentID, VendorID: vendorID, ClientID: clientID,
		Amount: amount, Currency: currency, Envelope: env, SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskPaymentLinkPaid, b)
	_, err := client.Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueAdminAlert sends an alert to the platform admins.
func EnqueueAdminAlert(severity, message string) error {
	if client == nil {
		return nil
	}

	env := EmailEnvelope{To: "admin@marketpay.local", Subject: "Admin Alert", Body: message}
	payload := AdminAlertPayload{Severity: severity, Message: message, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskAdminAlert, b)
	_, err := client.Enqueue(task, asynq.Queue("alerts"))
	return err
}
