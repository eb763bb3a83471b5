package escrow

import (
	"errors"
	"fmt"
)

// Checked with errors.Is at the handler boundary.
var (
	ErrNotFound          = errors.New("escrow not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletBlocked     = errors.New("wallet is blocked")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrNotParticipant    = errors.New("not a participant in this escrow")
)

// StateError reports a transition the escrow state machine does not allow.
// Consumed with errors.As so handlers can answer 409 with the details.
type StateError struct {
	Current string
	Action  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s an escrow in status %q", e.Action, e.Current)
}
