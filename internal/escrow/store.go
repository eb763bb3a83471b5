package escrow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solutions224/marketpay/internal/outbox"
)

// Store is the escrow persistence contract. Handlers depend on the
// interface so tests can substitute a fake.
type Store interface {
	Create(ctx context.Context, p CreateParams) (*Escrow, error)
	Get(ctx context.Context, id string) (*Escrow, error)
	Release(ctx context.Context, id, actorID string, admin bool) (*Escrow, error)
	Refund(ctx context.Context, id, actorID string, admin bool) (*Escrow, error)
	Dispute(ctx context.Context, id, actorID, reason string) (*Escrow, error)
	Resolve(ctx context.Context, id, outcome string) (*Escrow, error)
}

type CreateParams struct {
	PayerID    string
	ReceiverID string
	OrderID    string
	Amount     float64
	Currency   string
	Reference  string
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

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create holds the payer's funds and records the escrow, its ledger rows,
// both parties' notifications and the outbox event in one transaction.
// A non-empty Reference makes the call idempotent per payer.
func (s *PgStore) Create(ctx context.Context, p CreateParams) (*Escrow, error) {
	if p.Reference != "" {
		existing, err := s.getBy(ctx, `payer_id = $1 AND reference = $2`, p.PayerID, p.Reference)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Receiver must already have a wallet to be paid into.
	var receiverWallet int
	err = tx.QueryRow(ctx, `SELECT 1 FROM wallets WHERE user_id = $1`, p.ReceiverID).Scan(&receiverWallet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("receiver: %w", ErrWalletNotFound)
		}
		return nil, err
	}

	var balance float64
	var walletStatus string
	err = tx.QueryRow(ctx,
		`SELECT balance, wallet_status FROM wallets WHERE user_id = $1 FOR UPDATE`,
		p.PayerID,
	).Scan(&balance, &walletStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payer: %w", ErrWalletNotFound)
		}
		return nil, err
	}
	if walletStatus == "blocked" {
		return nil, ErrWalletBlocked
	}
	if balance < p.Amount {
		return nil, ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, escrow = escrow + $1 WHERE user_id = $2`,
		p.Amount, p.PayerID,
	)
	if err != nil {
		return nil, fmt.Errorf("hold funds: %w", err)
	}

	now := time.Now()
	e := &Escrow{
		ID:                uuid.New().String(),
		OrderID:           p.OrderID,
		PayerID:           p.PayerID,
		ReceiverID:        p.ReceiverID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            StatusHeld,
		CommissionPercent: DefaultCommissionPercent,
		CommissionAmount:  round2(p.Amount * DefaultCommissionPercent / 100),
		Reference:         p.Reference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO escrows (id, order_id, payer_id, receiver_id, amount, currency, status,
			commission_percent, commission_amount, reference, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $11)`,
		e.ID, e.OrderID, e.PayerID, e.ReceiverID, e.Amount, e.Currency, e.Status,
		e.CommissionPercent, e.CommissionAmount, e.Reference, now,
	)
	if err != nil {
		if isUniqueViolation(err) && p.Reference != "" {
			// Lost a race with a concurrent create using the same
			// reference. Our hold rolls back; the winner's row stands.
			return s.getBy(ctx, `payer_id = $1 AND reference = $2`, p.PayerID, p.Reference)
		}
		return nil, fmt.Errorf("insert escrow: %w", err)
	}

	err = ledgerTx(ctx, tx, e.PayerID, e.Amount, e.Currency, "debit", "escrow_hold", e.ID)
	if err != nil {
		return nil, err
	}

	if err := s.notifyBoth(ctx, tx, e, "escrow:held",
		"Funds held in escrow",
		fmt.Sprintf("Amount %.2f %s is held for order %s.", e.Amount, e.Currency, e.OrderID),
	); err != nil {
		return nil, err
	}
	if err := emitTx(ctx, tx, outbox.TypeEscrowHeld, e); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

func (s *PgStore) Get(ctx context.Context, id string) (*Escrow, error) {
	return s.getBy(ctx, `id = $1`, id)
}

func (s *PgStore) getBy(ctx context.Context, where string, args ...any) (*Escrow, error) {
	query := `
		SELECT id, COALESCE(order_id, ''), payer_id, receiver_id, amount, currency, status,
			commission_percent, commission_amount, COALESCE(dispute_reason, ''),
			COALESCE(reference, ''), created_at, updated_at
		FROM escrows WHERE ` + where

	var e Escrow
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&e.ID, &e.OrderID, &e.PayerID, &e.ReceiverID, &e.Amount, &e.Currency, &e.Status,
		&e.CommissionPercent, &e.CommissionAmount, &e.DisputeReason,
		&e.Reference, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Release moves held funds to the receiver minus commission.
// Only the payer or an admin may release.
func (s *PgStore) Release(ctx context.Context, id, actorID string, admin bool) (*Escrow, error) {
	return s.transition(ctx, id, "release", func(e *Escrow) error {
		if !admin && actorID != e.PayerID {
			return ErrNotParticipant
		}
		if e.Status != StatusHeld {
			return &StateError{Current: e.Status, Action: "release"}
		}
		return nil
	}, s.releaseFunds)
}

// Refund returns held funds to the payer. Either party or an admin may
// refund while the escrow is pending or held.
func (s *PgStore) Refund(ctx context.Context, id, actorID string, admin bool) (*Escrow, error) {
	return s.transition(ctx, id, "refund", func(e *Escrow) error {
		if !admin && actorID != e.PayerID && actorID != e.ReceiverID {
			return ErrNotParticipant
		}
		if e.Status != StatusHeld && e.Status != StatusPending {
			return &StateError{Current: e.Status, Action: "refund"}
		}
		return nil
	}, s.refundFunds)
}

// Dispute freezes a held escrow pending an admin decision.
func (s *PgStore) Dispute(ctx context.Context, id, actorID, reason string) (*Escrow, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := lockEscrow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if actorID != e.PayerID && actorID != e.ReceiverID {
		return nil, ErrNotParticipant
	}
	if e.Status != StatusHeld {
		return nil, &StateError{Current: e.Status, Action: "dispute"}
	}

	_, err = tx.Exec(ctx,
		`UPDATE escrows SET status = 'disputed', dispute_reason = $1, updated_at = NOW() WHERE id = $2`,
		reason, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark disputed: %w", err)
	}
	e.Status = StatusDisputed
	e.DisputeReason = reason

	if err := s.notifyBoth(ctx, tx, e, "escrow:disputed", "Escrow disputed", reason); err != nil {
		return nil, err
	}
	if err := emitTx(ctx, tx, outbox.TypeEscrowDisputed, e); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// Resolve settles a disputed escrow. outcome is "release" or "refund".
func (s *PgStore) Resolve(ctx context.Context, id, outcome string) (*Escrow, error) {
	move := s.refundFunds
	if outcome == "release" {
		move = s.releaseFunds
	}
	return s.transition(ctx, id, outcome, func(e *Escrow) error {
		if e.Status != StatusDisputed {
			return &StateError{Current: e.Status, Action: "resolve"}
		}
		return nil
	}, move)
}

type moveFunc func(ctx context.Context, tx pgx.Tx, e *Escrow) error

func (s *PgStore) transition(ctx context.Context, id, action string, check func(*Escrow) error, move moveFunc) (*Escrow, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := lockEscrow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := check(e); err != nil {
		return nil, err
	}
	if err := move(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

func lockEscrow(ctx context.Context, tx pgx.Tx, id string) (*Escrow, error) {
	var e Escrow
	err := tx.QueryRow(ctx, `
		SELECT id, COALESCE(order_id, ''), payer_id, receiver_id, amount, currency, status,
			commission_percent, commission_amount, COALESCE(dispute_reason, ''),
			COALESCE(reference, ''), created_at, updated_at
		FROM escrows WHERE id = $1 FOR UPDATE`, id,
	).Scan(
		&e.ID, &e.OrderID, &e.PayerID, &e.ReceiverID, &e.Amount, &e.Currency, &e.Status,
		&e.CommissionPercent, &e.CommissionAmount, &e.DisputeReason,
		&e.Reference, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *PgStore) releaseFunds(ctx context.Context, tx pgx.Tx, e *Escrow) error {
	payout := round2(e.Amount - e.CommissionAmount)

	res, err := tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow - $1 WHERE user_id = $2 AND escrow >= $1`,
		e.Amount, e.PayerID,
	)
	if err != nil {
		return fmt.Errorf("deduct payer escrow: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("payer escrow below held amount: %w", ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`,
		payout, e.ReceiverID,
	)
	if err != nil {
		return fmt.Errorf("credit receiver: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE escrows SET status = 'released', updated_at = NOW() WHERE id = $1`, e.ID)
	if err != nil {
		return fmt.Errorf("mark released: %w", err)
	}
	e.Status = StatusReleased

	if err := ledgerTx(ctx, tx, e.PayerID, e.Amount, e.Currency, "debit", "escrow_release", e.ID); err != nil {
		return err
	}
	if err := ledgerTx(ctx, tx, e.ReceiverID, payout, e.Currency, "credit", "escrow_payout", e.ID); err != nil {
		return err
	}

	if err := s.notifyBoth(ctx, tx, e, "escrow:released",
		"Escrow released",
		fmt.Sprintf("Amount %.2f %s released (commission %.2f).", payout, e.Currency, e.CommissionAmount),
	); err != nil {
		return err
	}
	return emitTx(ctx, tx, outbox.TypeEscrowReleased, e)
}

func (s *PgStore) refundFunds(ctx context.Context, tx pgx.Tx, e *Escrow) error {
	res, err := tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow - $1, balance = balance + $1 WHERE user_id = $2 AND escrow >= $1`,
		e.Amount, e.PayerID,
	)
	if err != nil {
		return fmt.Errorf("refund escrow: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("payer escrow below held amount: %w", ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx,
		`UPDATE escrows SET status = 'refunded', updated_at = NOW() WHERE id = $1`, e.ID)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	e.Status = StatusRefunded

	if err := ledgerTx(ctx, tx, e.PayerID, e.Amount, e.Currency, "credit", "refund", e.ID); err != nil {
		return err
	}

	if err := s.notifyBoth(ctx, tx, e, "escrow:refunded",
		"Escrow refunded",
		fmt.Sprintf("Amount %.2f %s returned to the payer.", e.Amount, e.Currency),
	); err != nil {
		return err
	}
	return emitTx(ctx, tx, outbox.TypeEscrowRefunded, e)
}

func ledgerTx(ctx context.Context, tx pgx.Tx, userID string, amount float64, currency, txType, status, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, amount, currency, type, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), userID, amount, currency, txType, status, reference, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	return nil
}

// notifyBoth inserts in-app notification rows for payer and receiver inside
// the escrow transaction, so a crash cannot separate the fund move from its
// notifications.
func (s *PgStore) notifyBoth(ctx context.Context, tx pgx.Tx, e *Escrow, ntype, title, body string) error {
	for _, userID := range []string{e.PayerID, e.ReceiverID} {
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (user_id, type, title, body, reference)
			VALUES ($1, $2, $3, $4, $5)`,
			userID, ntype, title, body, e.ID,
		)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

func emitTx(ctx context.Context, tx pgx.Tx, eventType string, e *Escrow) error {
	event, err := outbox.NewEvent(eventType, e)
	if err != nil {
		return err
	}
	return outbox.InsertTx(ctx, tx, event)
}
