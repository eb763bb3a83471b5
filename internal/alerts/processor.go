package alerts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client.
// When redisAddr is empty the alert queue stays disabled and every
// Enqueue call becomes a no-op.
func Init(redisAddr string) {
	if redisAddr == "" {
		log.Println("alerts disabled: no redis address configured")
		return
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEscrowEvent, handleEscrowEvent)
	mux.HandleFunc(TaskPaymentLinkPaid, handlePaymentLinkPaid)
	mux.HandleFunc(TaskAdminAlert, handleAdminAlert)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

func handleEscrowEvent(_ context.Context, t *asynq.Task) error {
	var p EscrowEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] EscrowEvent send failed: %v", err)
		return err
	}
	log.Printf("[notify] EscrowEvent sent -> escrow=%s event=%s", p.EscrowID, p.Event)
	return nil
}

func handlePaymentLinkPaid(_ context.Context, t *asynq.Task) error {
	var p PaymentLinkPaidPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] PaymentLinkPaid send failed: %v", err)
		return err
	}
	log.Printf("[notify] PaymentLinkPaid sent -> payment=%s", p.PaymentID)
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] AdminAlert send failed: %v", err)
		return err
	}
	log.Printf("[notify] AdminAlert sent -> severity=%s", p.Severity)
	return nil
}
