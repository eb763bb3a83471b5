package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solutions224/marketpay/internal/outbox"
)

type Store interface {
	Create(ctx context.Context, productID, clientID string) (*Link, error)
	Get(ctx context.Context, id string) (*Link, error)
	Confirm(ctx context.Context, p ConfirmParams) (*Link, error)
	SetProviderRef(ctx context.Context, paymentID, providerRef string) error
}

type ConfirmParams struct {
	PaymentID     string
	PaymentMethod string
	ClientID      string
	ClientInfo    string
	TransactionID string
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Create looks up the product and issues a pending link with a 1% fee.
func (s *PgStore) Create(ctx context.Context, productID, clientID string) (*Link, error) {
	var (
		name        string
		description string
		price       float64
		currency    string
		vendorID    string
	)
	err := s.db.QueryRow(ctx, `
		SELECT name, COALESCE(description, ''), price, currency, vendor_id
		FROM products WHERE id = $1 AND status = 'active'`, productID,
	).Scan(&name, &description, &price, &currency, &vendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	now := time.Now()
	link := &Link{
		ID:          uuid.New().String(),
		PaymentID:   uuid.New().String(),
		ProductID:   productID,
		ProductName: name,
		Description: description,
		Amount:      price,
		Fee:         round2(price * 0.01),
		Currency:    currency,
		ClientID:    clientID,
		VendorID:    vendorID,
		Status:      StatusPending,
		CreatedAt:   now,
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO payment_links (id, payment_id, product_id, product_name, description,
			amount, fee, currency, client_id, vendor_id, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, '')::uuid, $10, $11, $12)`,
		link.ID, link.PaymentID, link.ProductID, link.ProductName, link.Description,
		link.Amount, link.Fee, link.Currency, link.ClientID, link.VendorID, link.Status, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment link: %w", err)
	}
	return link, nil
}

// Get fetches a link by row id or public payment id.
func (s *PgStore) Get(ctx context.Context, id string) (*Link, error) {
	var l Link
	err := s.db.QueryRow(ctx, `
		SELECT id, payment_id, product_id, product_name, COALESCE(description, ''),
			amount, COALESCE(fee, 0), currency, COALESCE(client_id::text, ''), vendor_id,
			status, COALESCE(payment_method, ''), COALESCE(transaction_id, ''),
			COALESCE(provider_ref, ''), paid_at, created_at
		FROM payment_links WHERE id::text = $1 OR payment_id = $1`, id,
	).Scan(
		&l.ID, &l.PaymentID, &l.ProductID, &l.ProductName, &l.Description,
		&l.Amount, &l.Fee, &l.Currency, &l.ClientID, &l.VendorID,
		&l.Status, &l.PaymentMethod, &l.TransactionID, &l.ProviderRef, &l.PaidAt, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &l, nil
}

// decideConfirm applies the settlement guard. replay means the link is
// already settled by the same transaction and must be returned unchanged;
// a ConflictError means the current status forbids this confirmation.
func decideConfirm(status, storedTxID, incomingTxID string) (replay bool, err error) {
	switch status {
	case StatusSuccess:
		if storedTxID == incomingTxID {
			return true, nil
		}
		return false, &ConflictError{Status: status, Reason: "already confirmed with a different transaction"}
	case StatusCancelled, StatusFailed, StatusExpired:
		return false, &ConflictError{Status: status, Reason: "link is no longer payable"}
	}
	return false, nil
}

// Confirm settles a pending or overdue link. Re-confirming with the same
// transaction id is idempotent; anything else on a settled link conflicts.
func (s *PgStore) Confirm(ctx context.Context, p ConfirmParams) (*Link, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var l Link
	err = tx.QueryRow(ctx, `
		SELECT id, payment_id, product_id, product_name, COALESCE(description, ''),
			amount, COALESCE(fee, 0), currency, COALESCE(client_id::text, ''), vendor_id,
			status, COALESCE(payment_method, ''), COALESCE(transaction_id, ''),
			COALESCE(provider_ref, ''), paid_at, created_at
		FROM payment_links WHERE payment_id = $1 FOR UPDATE`, p.PaymentID,
	).Scan(
		&l.ID, &l.PaymentID, &l.ProductID, &l.ProductName, &l.Description,
		&l.Amount, &l.Fee, &l.Currency, &l.ClientID, &l.VendorID,
		&l.Status, &l.PaymentMethod, &l.TransactionID, &l.ProviderRef, &l.PaidAt, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	replay, err := decideConfirm(l.Status, l.TransactionID, p.TransactionID)
	if err != nil {
		return nil, err
	}
	if replay {
		// Idempotent replay: nothing to change.
		return &l, nil
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE payment_links
		SET status = 'success', payment_method = NULLIF($1, ''), transaction_id = NULLIF($2, ''),
			client_id = COALESCE(NULLIF($3, '')::uuid, client_id), paid_at = $4
		WHERE payment_id = $5`,
		p.PaymentMethod, p.TransactionID, p.ClientID, now, p.PaymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("confirm payment link: %w", err)
	}
	l.Status = StatusSuccess
	l.PaymentMethod = p.PaymentMethod
	l.TransactionID = p.TransactionID
	l.PaidAt = &now

	// Vendor notification and the fan-out event commit with the update.
	_, err = tx.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, body, reference)
		VALUES ($1, 'payment:received', 'Payment received', $2, $3)`,
		l.VendorID, fmt.Sprintf("%s paid: %.2f %s", l.ProductName, l.Total(), l.Currency), l.PaymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	event, err := outbox.NewEvent(outbox.TypePaymentLinkPaid, &l)
	if err != nil {
		return nil, err
	}
	if err := outbox.InsertTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &l, nil
}

// SetProviderRef records the gateway's payment reference on the link so its
// status can be verified with the provider before settlement.
func (s *PgStore) SetProviderRef(ctx context.Context, paymentID, providerRef string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payment_links SET provider_ref = $1 WHERE payment_id = $2`,
		providerRef, paymentID,
	)
	if err != nil {
		return fmt.Errorf("set provider ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}
