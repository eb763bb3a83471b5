package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sweeper periodically moves stale pending links to overdue. The update is
// forward-only, so overlapping or repeated runs are harmless.
type Sweeper struct {
	db       execer
	interval time.Duration
	overdue  time.Duration
	logger   *slog.Logger
}

func NewSweeper(db execer, interval, overdue time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		db:       db,
		interval: interval,
		overdue:  overdue,
		logger:   logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "payment status sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("overdue_after", s.overdue),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "payment status sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payment_links
		SET status = 'overdue'
		WHERE status = 'pending' AND created_at < NOW() - make_interval(secs => $1)`,
		s.overdue.Seconds(),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "overdue sweep failed", slog.String("error", err.Error()))
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.InfoContext(ctx, "payment links marked overdue", slog.Int64("count", n))
	}
}
