package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/seesaw/mfses/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_snapshots (
	id              BIGSERIAL PRIMARY KEY,
	ticker          TEXT        NOT NULL,
	run_at          TIMESTAMPTZ NOT NULL,
	moat            INT         NOT NULL,
	growth          INT         NOT NULL,
	balance         INT         NOT NULL,
	valuation       INT         NOT NULL,
	sentiment       INT         NOT NULL,
	short_term      DOUBLE PRECISION NOT NULL,
	mid_term        DOUBLE PRECISION NOT NULL,
	long_term       DOUBLE PRECISION NOT NULL,
	intrinsic_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	price           DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (ticker, run_at)
);
CREATE INDEX IF NOT EXISTS idx_score_snapshots_ticker_run
	ON score_snapshots (ticker, run_at DESC);
`

// scoresRepo implements persistence.ScoreRepo on PostgreSQL.
type scoresRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens the database, verifies connectivity and ensures the schema.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (persistence.ScoreRepo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &scoresRepo{db: db, timeout: timeout}, nil
}

// NewScoresRepo wraps an existing connection, for tests.
func NewScoresRepo(db *sqlx.DB, timeout time.Duration) persistence.ScoreRepo {
	return &scoresRepo{db: db, timeout: timeout}
}

func (r *scoresRepo) SaveRun(ctx context.Context, rows []persistence.ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO score_snapshots
			(ticker, run_at, moat, growth, balance, valuation, sentiment,
			 short_term, mid_term, long_term, intrinsic_value, price)
		VALUES (:ticker, :run_at, :moat, :growth, :balance, :valuation, :sentiment,
			 :short_term, :mid_term, :long_term, :intrinsic_value, :price)
		ON CONFLICT (ticker, run_at) DO NOTHING`

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert %s: %w", row.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *scoresRepo) LatestRun(ctx context.Context) ([]persistence.ScoreRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []persistence.ScoreRow
	const query = `
		SELECT ticker, run_at, moat, growth, balance, valuation, sentiment,
		       short_term, mid_term, long_term, intrinsic_value, price, created_at
		FROM score_snapshots
		WHERE run_at = (SELECT max(run_at) FROM score_snapshots)
		ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return rows, nil
}

func (r *scoresRepo) History(ctx context.Context, ticker string, limit int) ([]persistence.ScoreRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 30
	}
	var rows []persistence.ScoreRow
	const query = `
		SELECT ticker, run_at, moat, growth, balance, valuation, sentiment,
		       short_term, mid_term, long_term, intrinsic_value, price, created_at
		FROM score_snapshots
		WHERE ticker = $1
		ORDER BY run_at DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, ticker, limit); err != nil {
		return nil, fmt.Errorf("history for %s: %w", ticker, err)
	}
	return rows, nil
}
