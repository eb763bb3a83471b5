package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecer struct {
	tag  pgconn.CommandTag
	err  error
	sql  string
	args []any
}

func (s *stubExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	s.args = args
	return s.tag, s.err
}

func TestCreditWalletIgnoresBlockStatus(t *testing.T) {
	db := &stubExecer{tag: pgconn.NewCommandTag("UPDATE 1")}

	if err := creditWallet(context.Background(), db, "u-2", 1000); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// Receiving funds must work on frozen wallets too; only debits freeze.
	if strings.Contains(db.sql, "wallet_status") {
		t.Errorf("credit filters on wallet status: %s", db.sql)
	}
	if len(db.args) != 2 || db.args[0].(float64) != 1000 || db.args[1].(string) != "u-2" {
		t.Errorf("args = %v", db.args)
	}
}

func TestCreditWalletMissingReceiver(t *testing.T) {
	db := &stubExecer{tag: pgconn.NewCommandTag("UPDATE 0")}

	err := creditWallet(context.Background(), db, "ghost", 1000)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreditWalletDatabaseError(t *testing.T) {
	db := &stubExecer{err: errors.New("connection reset")}

	err := creditWallet(context.Background(), db, "u-2", 1000)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want wrapped database error", err)
	}
}
