package index

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

func isSQLiteBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs fn again while SQLite reports the database busy, for at
// most the index lock timeout.
func withRetry[T any](ctx context.Context, i *Index, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		res, err := fn()
		if err == nil || !isSQLiteBusy(err) {
			i.logger.Debug("sql done", "op", op, "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return res, err
		}
		i.logger.Debug("sql busy", "op", op, "attempt", attempt+1, "err", err)
		var zero T
		if i.lockTimeout <= 0 {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if time.Since(start) >= i.lockTimeout {
			i.logger.Warn("sql busy timeout", "op", op, "attempts", attempt+1, "err", err)
			return zero, err
		}
		time.Sleep(retryDelay(attempt))
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (i *Index) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return withRetry(ctx, i, "exec", func() (sql.Result, error) {
		return q.ExecContext(ctx, query, args...)
	})
}

func (i *Index) query(ctx context.Context, q execer, query string, args ...any) (*sql.Rows, error) {
	return withRetry(ctx, i, "query", func() (*sql.Rows, error) {
		return q.QueryContext(ctx, query, args...)
	})
}

func (i *Index) queryRow(ctx context.Context, q execer, query string, args []any, dest ...any) error {
	_, err := withRetry(ctx, i, "query row", func() (struct{}, error) {
		return struct{}{}, q.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
	return err
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * 40 * time.Millisecond
	if delay > 300*time.Millisecond {
		delay = 300 * time.Millisecond
	}
	return delay
}

func (i *Index) beginTx(ctx context.Context, name string) (*sql.Tx, time.Time, error) {
	start := time.Now()
	i.logger.Debug("sql tx begin", "op", name)
	tx, err := withRetry(ctx, i, name, func() (*sql.Tx, error) {
		return i.db.BeginTx(ctx, nil)
	})
	if err != nil {
		i.logger.Error("sql tx begin failed", "op", name, "err", err)
		return nil, start, err
	}
	return tx, start, nil
}

func (i *Index) commitTx(tx *sql.Tx, name string, start time.Time) error {
	if tx == nil {
		return sql.ErrTxDone
	}
	err := tx.Commit()
	i.logger.Debug("sql tx commit", "op", name, "duration_ms", time.Since(start).Milliseconds(), "err", err)
	return err
}

func (i *Index) rollbackTx(tx *sql.Tx, name string, start time.Time) {
	if tx == nil {
		return
	}
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		i.logger.Warn("sql tx rollback failed", "op", name, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		return
	}
	i.logger.Debug("sql tx rollback", "op", name, "duration_ms", time.Since(start).Milliseconds())
}
