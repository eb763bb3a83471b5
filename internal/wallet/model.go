package wallet

import (
	"errors"
	"time"
)

const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

type Wallet struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Balance       float64   `json:"balance"`
	Escrow        float64   `json:"escrow"`
	Currency      string    `json:"currency"`
	Status        string    `json:"wallet_status"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transaction is a ledger row as returned to clients.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound          = errors.New("wallet not found")
	ErrBlocked           = errors.New("wallet is blocked")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
