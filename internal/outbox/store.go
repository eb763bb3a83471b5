package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	FetchPending(ctx context.Context, limit int) ([]*Event, error)
	MarkProcessed(ctx context.Context, id string) error
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// InsertTx appends an event inside an open transaction so the event commits
// or rolls back together with the domain change that produced it.
func InsertTx(ctx context.Context, tx pgx.Tx, e *Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Type, e.Payload, e.Status, e.CreatedAt,
	)
	return err
}

func (s *PgStore) FetchPending(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, type, payload, status, created_at
		FROM outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *PgStore) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox
		SET status = 'PROCESSED', processed_at = $1
		WHERE id = $2`, time.Now().UTC(), id)
	return err
}
