package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solutions224/marketpay/internal/config"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema the handlers expect.
func Init(cfg config.DatabaseConfig) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name,
	)

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureWalletsTable()
	ensureLedgerTable()
	ensureEscrowsTable()
	ensureCatalogTables()
	ensurePaymentLinksTable()
	ensureNotificationsTable()
	ensureOutboxTable()
	ensureWebhookDeliveriesTable()
}

func ensureUsersTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'client'
                CHECK (role IN ('client', 'vendor', 'admin')),
            is_active BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

// ensureWalletsTable creates wallets with the UNIQUE(user_id) constraint the
// race-safe initialize handler relies on.
func ensureWalletsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS wallets (
            id UUID PRIMARY KEY,
            user_id UUID UNIQUE NOT NULL,
            balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
            escrow NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (escrow >= 0),
            currency TEXT NOT NULL DEFAULT 'GNF',
            wallet_status TEXT NOT NULL DEFAULT 'active'
                CHECK (wallet_status IN ('active', 'blocked')),
            blocked_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure wallets table: %v", err)
	}
}

func ensureLedgerTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL,
            amount NUMERIC(20,2) NOT NULL,
            currency TEXT NOT NULL DEFAULT 'GNF',
            type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
            status TEXT NOT NULL,
            reference TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure transactions table: %v", err)
	}
}

func ensureEscrowsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS escrows (
            id UUID PRIMARY KEY,
            order_id TEXT,
            payer_id UUID NOT NULL,
            receiver_id UUID NOT NULL,
            amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
            currency TEXT NOT NULL DEFAULT 'GNF',
            status TEXT NOT NULL DEFAULT 'held'
                CHECK (status IN ('pending', 'held', 'released', 'refunded', 'disputed')),
            commission_percent NUMERIC(5,2) NOT NULL DEFAULT 2.5,
            commission_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
            dispute_reason TEXT,
            reference TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure escrows table: %v", err)
	}

	// Partial unique index backs the per-payer idempotency reference.
	_, err = Conn.Exec(context.Background(), `
        CREATE UNIQUE INDEX IF NOT EXISTS escrows_payer_reference_key
        ON escrows (payer_id, reference) WHERE reference IS NOT NULL`)
	if err != nil {
		log.Printf("failed to ensure escrow reference index: %v", err)
	}
}

func ensureCatalogTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS categories (
            id UUID PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure categories table: %v", err)
	}

	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS products (
            id UUID PRIMARY KEY,
            vendor_id UUID NOT NULL,
            category_id UUID,
            name TEXT NOT NULL,
            description TEXT,
            price NUMERIC(20,2) NOT NULL CHECK (price >= 0),
            currency TEXT NOT NULL DEFAULT 'GNF',
            rating NUMERIC(3,2) NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'active',
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure products table: %v", err)
	}
}

func ensurePaymentLinksTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS payment_links (
            id UUID PRIMARY KEY,
            payment_id TEXT UNIQUE NOT NULL,
            product_id UUID NOT NULL,
            product_name TEXT NOT NULL,
            description TEXT,
            amount NUMERIC(20,2) NOT NULL,
            fee NUMERIC(20,2) NOT NULL DEFAULT 0,
            currency TEXT NOT NULL DEFAULT 'GNF',
            client_id UUID,
            vendor_id UUID NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending', 'success', 'failed', 'expired', 'cancelled', 'overdue')),
            payment_method TEXT,
            transaction_id TEXT,
            provider_ref TEXT,
            paid_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure payment_links table: %v", err)
	}
}

func ensureNotificationsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference TEXT,
            metadata JSONB,
            read_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}

func ensureOutboxTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS outbox (
            id UUID PRIMARY KEY,
            type TEXT NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at TIMESTAMPTZ DEFAULT NOW(),
            processed_at TIMESTAMPTZ
        )`)
	if err != nil {
		log.Printf("failed to ensure outbox table: %v", err)
	}
}

func ensureWebhookDeliveriesTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS webhook_deliveries (
            id UUID PRIMARY KEY,
            provider TEXT NOT NULL,
            event TEXT,
            reference TEXT,
            payload TEXT,
            received_at TIMESTAMPTZ DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure webhook_deliveries table: %v", err)
	}
}
