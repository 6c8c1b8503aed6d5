package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgSchema creates the single-table schema the persisted ledger needs.
// One row per calendar day a reminder went out.
const pgSchema = `
CREATE TABLE IF NOT EXISTS reminder_log (
	day     date        PRIMARY KEY,
	sent_at timestamptz NOT NULL
)`

// PGLedger is the persisted-flag [Ledger]: it records each send in
// PostgreSQL instead of inferring it from the channel history. Useful when
// the history window is too noisy or the bot posts to a busy channel.
//
// All operations are safe for concurrent use.
type PGLedger struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPGLedger connects to the database at dsn, ensures the schema exists,
// and returns the ledger. Close must be called on shutdown.
func NewPGLedger(ctx context.Context, dsn string, loc *time.Location) (*PGLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgledger: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgledger: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgledger: migrate: %w", err)
	}
	return &PGLedger{pool: pool, loc: loc}, nil
}

// SentToday implements [Ledger].
func (l *PGLedger) SentToday(ctx context.Context, today time.Time) (bool, error) {
	var sent bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reminder_log WHERE day = $1)`,
		today.In(l.loc).Format("2006-01-02"),
	).Scan(&sent)
	if err != nil {
		return false, fmt.Errorf("pgledger: query: %w", err)
	}
	return sent, nil
}

// MarkSent implements [Ledger].
func (l *PGLedger) MarkSent(ctx context.Context, at time.Time) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO reminder_log (day, sent_at) VALUES ($1, $2)
		 ON CONFLICT (day) DO NOTHING`,
		at.In(l.loc).Format("2006-01-02"), at,
	)
	if err != nil {
		return fmt.Errorf("pgledger: insert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (l *PGLedger) Close() {
	l.pool.Close()
}

var _ Ledger = (*PGLedger)(nil)
