package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means the id (or date) is unknown to the store.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means the (day, slot) pair is already held by a pending
	// or approved appointment. Raised by the partial unique index at write
	// time, so concurrent submissions cannot both win.
	ErrConflict = errors.New("slot already reserved")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsUnavailable reports I/O-shaped failures: timeouts, cancellations, and
// connection errors. Callers surface these as StoreUnavailable and do not
// retry; retry policy belongs to the caller of the engine.
func IsUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return pgconn.Timeout(err)
}
