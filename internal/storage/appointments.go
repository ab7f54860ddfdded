package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tal-mizrahi/barberbook/internal/db"
	"github.com/tal-mizrahi/barberbook/internal/model"
)

// AppointmentStore is the record-store contract consumed by the lifecycle
// manager and the reconciler. One Postgres implementation serves every
// historical table; the reconciler decides which tables to probe.
type AppointmentStore interface {
	Table() string
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error)
	ListByPhone(ctx context.Context, phone string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// Announcer receives a change signal after every successful mutation. The
// watch hub satisfies this; a nil announcer disables the feed.
type Announcer interface {
	Announce(ctx context.Context)
}

// AppointmentTable is the pgx-backed AppointmentStore over one table.
type AppointmentTable struct {
	pool     *db.Pool
	table    string
	announce Announcer
}

// Table names come from configuration, never from request input; the guard
// keeps them out of SQL injection territory anyway.
var tableNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func NewAppointmentTable(pool *db.Pool, table string, announce Announcer) (*AppointmentTable, error) {
	if !tableNameRE.MatchString(table) {
		return nil, fmt.Errorf("invalid appointment table name %q", table)
	}
	return &AppointmentTable{pool: pool, table: table, announce: announce}, nil
}

func (t *AppointmentTable) Table() string { return t.table }

const appointmentColumns = `id, day, slot, services, party_size, with_children, children_count,
	client_name, phone, COALESCE(email, ''), COALESCE(notes, ''), channel, status, created_at, updated_at`

// Create persists a new request. The server owns id, status (always
// pending), created_at, and updated_at. A concurrent holder of the same
// (day, slot) pair trips the partial unique index and surfaces as
// ErrConflict.
func (t *AppointmentTable) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if a.Day.IsZero() {
		return model.Appointment{}, &model.ValidationError{Field: "date", Reason: "missing"}
	}
	if a.Slot == "" {
		return model.Appointment{}, &model.ValidationError{Field: "time", Reason: "missing"}
	}
	a.ID = uuid.NewString()
	a.Status = model.StatusPending
	if a.Channel == "" {
		// The column default only covers omitted values, not an empty
		// string inserted verbatim.
		a.Channel = model.ChannelWhatsApp
	}

	row := t.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s
			(id, day, slot, services, party_size, with_children, children_count,
			 client_name, phone, email, notes, channel, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13)
		RETURNING created_at, updated_at
	`, t.table),
		a.ID, a.Day, a.Slot, a.Services, a.PartySize, a.WithChildren, a.ChildrenCount,
		a.Contact.Name, a.Contact.Phone, a.Contact.Email, a.Notes, a.Channel, string(a.Status))
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if IsConflict(err) {
			return model.Appointment{}, ErrConflict
		}
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	t.changed(ctx)
	return a, nil
}

func (t *AppointmentTable) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := t.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, appointmentColumns, t.table), id)
	a, err := scanAppointment(row)
	if err != nil {
		if IsNotFound(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (t *AppointmentTable) ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	return t.list(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE day = $1 ORDER BY slot ASC`, appointmentColumns, t.table),
		model.Midnight(day))
}

func (t *AppointmentTable) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return t.list(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY day ASC, slot ASC`, appointmentColumns, t.table))
}

func (t *AppointmentTable) ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error) {
	return t.list(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE status = $1 ORDER BY day ASC, slot ASC`, appointmentColumns, t.table),
		string(status))
}

func (t *AppointmentTable) ListByPhone(ctx context.Context, phone string) ([]model.Appointment, error) {
	return t.list(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE phone = $1 ORDER BY day DESC, slot DESC`, appointmentColumns, t.table),
		phone)
}

// UpdateStatus stamps updated_at and returns the updated record. A
// transition back into a reserved status can trip the slot index when
// another appointment took the pair meanwhile; that surfaces as ErrConflict.
func (t *AppointmentTable) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Appointment, error) {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Appointment{}, err
	}
	row := t.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, t.table, appointmentColumns), id, string(status))
	a, err := scanAppointment(row)
	if err != nil {
		switch {
		case IsNotFound(err):
			return model.Appointment{}, ErrNotFound
		case IsConflict(err):
			return model.Appointment{}, ErrConflict
		}
		return model.Appointment{}, fmt.Errorf("update status: %w", err)
	}

	t.changed(ctx)
	return a, nil
}

func (t *AppointmentTable) Delete(ctx context.Context, id string) error {
	tag, err := t.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table), id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	t.changed(ctx)
	return nil
}

func (t *AppointmentTable) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// scanAppointment normalizes a row at the store boundary. Unknown status
// values fail loudly instead of being coerced to pending: silent defaulting
// masked data corruption in the system this one replaces.
func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	if err := row.Scan(
		&a.ID, &a.Day, &a.Slot, &a.Services, &a.PartySize, &a.WithChildren, &a.ChildrenCount,
		&a.Contact.Name, &a.Contact.Phone, &a.Contact.Email, &a.Notes, &a.Channel,
		&status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	parsed, err := model.ParseStatus(status)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = parsed
	a.Day = localDate(a.Day)
	return a, nil
}

// localDate rehomes a DATE column (scanned as UTC midnight) to local
// midnight, the canonical form for Day fields.
func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func (t *AppointmentTable) changed(ctx context.Context) {
	if t.announce != nil {
		t.announce.Announce(ctx)
	}
}
