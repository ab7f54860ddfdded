package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tal-mizrahi/barberbook/internal/db"
	"github.com/tal-mizrahi/barberbook/internal/model"
)

// UnavailabilityStore persists operator-declared blackout windows, one per
// calendar date. Windows live until the operator deletes them; the
// client-facing flow only ever queries future-dated ones.
type UnavailabilityStore struct {
	pool *db.Pool
}

func NewUnavailabilityStore(pool *db.Pool) *UnavailabilityStore {
	return &UnavailabilityStore{pool: pool}
}

const windowColumns = `day, full_day, blocked_slots, COALESCE(reason, ''), created_at, updated_at`

// Upsert writes the window for its date, overwriting any previous
// declaration. Last writer wins; no cross-date transaction is needed.
func (s *UnavailabilityStore) Upsert(ctx context.Context, w model.UnavailabilityWindow) (model.UnavailabilityWindow, error) {
	if w.Day.IsZero() {
		return model.UnavailabilityWindow{}, &model.ValidationError{Field: "date", Reason: "missing"}
	}
	w = normalizeWindow(w)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO unavailability (day, full_day, blocked_slots, reason)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (day) DO UPDATE
		SET full_day = EXCLUDED.full_day,
			blocked_slots = EXCLUDED.blocked_slots,
			reason = EXCLUDED.reason,
			updated_at = now()
		RETURNING created_at, updated_at
	`, w.Day, w.FullDay, w.BlockedSlots, w.Reason)
	if err := row.Scan(&w.CreatedAt, &w.UpdatedAt); err != nil {
		return model.UnavailabilityWindow{}, fmt.Errorf("upsert unavailability: %w", err)
	}
	return w, nil
}

// ListFuture returns windows dated today or later (local midnight boundary),
// ascending by date.
func (s *UnavailabilityStore) ListFuture(ctx context.Context, now time.Time) ([]model.UnavailabilityWindow, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM unavailability WHERE day >= $1 ORDER BY day ASC
	`, windowColumns), model.Midnight(now))
	if err != nil {
		return nil, fmt.Errorf("list unavailability: %w", err)
	}
	defer rows.Close()

	var out []model.UnavailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Get returns the window for a date, or ErrNotFound.
func (s *UnavailabilityStore) Get(ctx context.Context, day time.Time) (model.UnavailabilityWindow, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM unavailability WHERE day = $1
	`, windowColumns), model.Midnight(day))
	w, err := scanWindow(row)
	if err != nil {
		if IsNotFound(err) {
			return model.UnavailabilityWindow{}, ErrNotFound
		}
		return model.UnavailabilityWindow{}, fmt.Errorf("get unavailability: %w", err)
	}
	return w, nil
}

// DeleteByDate is idempotent: deleting an absent date is not an error.
func (s *UnavailabilityStore) DeleteByDate(ctx context.Context, day time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM unavailability WHERE day = $1`, model.Midnight(day))
	if err != nil {
		return fmt.Errorf("delete unavailability: %w", err)
	}
	return nil
}

// normalizeWindow canonicalizes a window before it reaches the INSERT.
// BlockedSlots must stay non-nil: pgx encodes a nil slice as SQL NULL and
// blocked_slots is NOT NULL. Full-day windows drop their slot list, the
// per-slot entries are meaningless once the whole day is blocked.
func normalizeWindow(w model.UnavailabilityWindow) model.UnavailabilityWindow {
	w.Day = model.Midnight(w.Day)
	if w.FullDay || w.BlockedSlots == nil {
		w.BlockedSlots = []string{}
	}
	return w
}

func scanWindow(row pgx.Row) (model.UnavailabilityWindow, error) {
	var w model.UnavailabilityWindow
	if err := row.Scan(&w.Day, &w.FullDay, &w.BlockedSlots, &w.Reason, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return model.UnavailabilityWindow{}, err
	}
	w.Day = localDate(w.Day)
	return w, nil
}
