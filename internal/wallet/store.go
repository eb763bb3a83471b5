package wallet

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

	"github.com/solutions224/marketpay/internal/fees"
	"github.com/solutions224/marketpay/internal/outbox"
)

type TransferParams struct {
	SenderID   string
	ReceiverID string
	Amount     float64
	Note       string
}

// TransferResult reports what moved and what the transfer cost.
type TransferResult struct {
	TransferID string  `json:"transfer_id"`
	Amount     float64 `json:"amount"`
	Fee        float64 `json:"fee"`
	Currency   string  `json:"currency"`
	NewBalance float64 `json:"new_balance"`
}

type Store interface {
	Initialize(ctx context.Context, userID string) (*Wallet, error)
	Get(ctx context.Context, userID string) (*Wallet, error)
	Transactions(ctx context.Context, userID string) ([]Transaction, error)
	Transfer(ctx context.Context, p TransferParams) (*TransferResult, error)
	SetStatus(ctx context.Context, userID, status, reason string) (*Wallet, error)
	AllTransactions(ctx context.Context) ([]Transaction, error)
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

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// creditWallet adds funds to a wallet. A block only freezes debits, so the
// wallet merely has to exist.
func creditWallet(ctx context.Context, db execer, userID string, amount float64) error {
	tag, err := db.Exec(ctx, `
		UPDATE wallets SET balance = balance + $1
		WHERE user_id = $2`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Initialize creates the user's wallet if it does not exist yet and returns
// it. Concurrent calls race on the UNIQUE(user_id) constraint, so whichever
// insert loses simply reads the winner's row.
func (s *PgStore) Initialize(ctx context.Context, userID string) (*Wallet, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance, escrow, currency, wallet_status, created_at)
		VALUES ($1, $2, 0, 0, 'GNF', 'active', $3)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize wallet: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *PgStore) Get(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, balance, escrow, currency, wallet_status,
			COALESCE(blocked_reason, ''), created_at
		FROM wallets WHERE user_id = $1`, userID,
	).Scan(&w.ID, &w.UserID, &w.Balance, &w.Escrow, &w.Currency, &w.Status,
		&w.BlockedReason, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch wallet: %w", err)
	}
	return &w, nil
}

func (s *PgStore) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount, currency, type, status, COALESCE(reference, ''), created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PgStore) AllTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount, currency, type, status, COALESCE(reference, ''), created_at
		FROM transactions
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Currency, &t.Type,
			&t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Transfer moves funds between two wallets and charges the sender a 1% fee,
// all inside one transaction. The sender row is locked first so concurrent
// transfers from the same wallet serialize on the balance check.
func (s *PgStore) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		senderBalance float64
		senderStatus  string
		currency      string
	)
	err = tx.QueryRow(ctx, `
		SELECT balance, wallet_status, currency
		FROM wallets WHERE user_id = $1
		FOR UPDATE`, p.SenderID,
	).Scan(&senderBalance, &senderStatus, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock sender wallet: %w", err)
	}
	if senderStatus == StatusBlocked {
		return nil, ErrBlocked
	}

	fee := round2(p.Amount * fees.PercentageRate)
	total := round2(p.Amount + fee)
	if senderBalance < total {
		return nil, ErrInsufficientFunds
	}

	if err := creditWallet(ctx, tx, p.ReceiverID, p.Amount); err != nil {
		return nil, err
	}

	var newBalance float64
	err = tx.QueryRow(ctx, `
		UPDATE wallets SET balance = balance - $1
		WHERE user_id = $2
		RETURNING balance`,
		total, p.SenderID,
	).Scan(&newBalance)
	if err != nil {
		return nil, fmt.Errorf("debit sender: %w", err)
	}

	transferID := uuid.New().String()
	ledger := []struct {
		userID string
		amount float64
		txType string
		status string
	}{
		{p.SenderID, p.Amount, "debit", "transfer_out"},
		{p.SenderID, fee, "debit", "transfer_fee"},
		{p.ReceiverID, p.Amount, "credit", "transfer_in"},
	}
	for _, entry := range ledger {
		if entry.amount == 0 {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (id, user_id, amount, currency, type, status, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New().String(), entry.userID, entry.amount, currency,
			entry.txType, entry.status, transferID, time.Now(),
		)
		if err != nil {
			return nil, fmt.Errorf("record ledger entry: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, body, reference)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ReceiverID, "wallet_transfer", "Fonds reçus",
		fmt.Sprintf("Vous avez reçu %.2f %s.", p.Amount, currency), transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}

	result := &TransferResult{
		TransferID: transferID,
		Amount:     p.Amount,
		Fee:        fee,
		Currency:   currency,
		NewBalance: newBalance,
	}
	event, err := outbox.NewEvent(outbox.TypeWalletTransfer, transferEvent(p, result))
	if err != nil {
		return nil, err
	}
	if err := outbox.InsertTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

func transferEvent(p TransferParams, r *TransferResult) map[string]any {
	return map[string]any{
		"transfer_id": r.TransferID,
		"sender_id":   p.SenderID,
		"receiver_id": p.ReceiverID,
		"amount":      r.Amount,
		"fee":         r.Fee,
		"currency":    r.Currency,
		"note":        p.Note,
	}
}

// SetStatus blocks or unblocks a wallet. Blocking records the reason,
// unblocking clears it.
func (s *PgStore) SetStatus(ctx context.Context, userID, status, reason string) (*Wallet, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE wallets
		SET wallet_status = $1,
			blocked_reason = NULLIF($2, '')
		WHERE user_id = $3`,
		status, reason, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update wallet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID)
}
