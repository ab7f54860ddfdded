// Package booking owns the appointment lifecycle: submission, the closed
// status state machine, and deletion.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/notify"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/schedule"
	"github.com/tal-mizrahi/barberbook/internal/storage"
)

// ErrInvalidTransition rejects any status change outside the allowed table.
// The system this replaces applied arbitrary transitions silently; here they
// fail explicitly.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the whole state machine. pending is only reachable via
// create; cancelled is final (reinstating a cancelled appointment needs a
// product decision first).
var transitions = map[model.Status]map[model.Status]bool{
	model.StatusPending:  {model.StatusApproved: true, model.StatusRejected: true},
	model.StatusApproved: {model.StatusCancelled: true},
	model.StatusRejected: {model.StatusApproved: true},
}

// WindowStore is the slice of the unavailability registry the lifecycle
// needs. *storage.UnavailabilityStore satisfies it.
type WindowStore interface {
	Get(ctx context.Context, day time.Time) (model.UnavailabilityWindow, error)
}

// Lifecycle validates submissions and drives status transitions through the
// record stores. New appointments always land in the authoritative store;
// reads and mutations go through the reconciler because older records may
// live in any historical store.
type Lifecycle struct {
	primary  storage.AppointmentStore
	records  *reconcile.Reconciler
	windows  WindowStore
	dispatch notify.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewLifecycle(primary storage.AppointmentStore, records *reconcile.Reconciler, windows WindowStore, dispatch notify.Dispatcher, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		primary:  primary,
		records:  records,
		windows:  windows,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Submit persists a client booking request. The slot is re-checked at write
// time: between the client's availability read and this call another request
// may have taken it, the operator may have blacked it out, or the clock may
// have passed it. Any of those rejects with storage.ErrConflict, and the
// final word is the store's partial unique index, so two concurrent submits
// for one slot cannot both win.
func (l *Lifecycle) Submit(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if err := validateSubmission(a); err != nil {
		return model.Appointment{}, err
	}
	now := l.now()
	a.Day = model.Midnight(a.Day)
	if a.Channel == "" {
		a.Channel = model.ChannelWhatsApp
	}

	if a.Day.Before(model.Midnight(now)) {
		return model.Appointment{}, &model.ValidationError{Field: "date", Reason: "date is in the past"}
	}
	if a.Day.Weekday() == time.Saturday {
		return model.Appointment{}, &model.ValidationError{Field: "date", Reason: "shop is closed on Saturday"}
	}
	if !schedule.ValidSlot(a.Day, a.Slot) {
		return model.Appointment{}, &model.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not on the schedule for that day", a.Slot)}
	}

	window, err := l.windowFor(ctx, a.Day)
	if err != nil {
		return model.Appointment{}, err
	}
	reserved, err := l.records.ReservedSlots(ctx, a.Day)
	if err != nil {
		return model.Appointment{}, err
	}
	for _, st := range schedule.Resolve(a.Day, []string{a.Slot}, reserved, window, now) {
		if !st.Offerable {
			return model.Appointment{}, fmt.Errorf("%w (%s)", storage.ErrConflict, st.Reason)
		}
	}

	created, err := l.primary.Create(ctx, a)
	if err != nil {
		return model.Appointment{}, err
	}

	l.dispatch.Dispatch(ctx, lifecycleEvent(created))
	return created, nil
}

// Transition applies one operator-driven status change. Disallowed moves
// fail with ErrInvalidTransition and touch nothing.
func (l *Lifecycle) Transition(ctx context.Context, id string, to model.Status) (model.Appointment, error) {
	if _, err := model.ParseStatus(string(to)); err != nil {
		return model.Appointment{}, err
	}

	rec, err := l.records.FindByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !transitions[rec.Status][to] {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, to)
	}

	updated, err := l.records.UpdateStatus(ctx, id, to)
	if err != nil {
		return model.Appointment{}, err
	}

	l.dispatch.Dispatch(ctx, lifecycleEvent(updated.Appointment))
	return updated.Appointment, nil
}

// Approve moves pending or rejected appointments to approved ("approve
// anyway" covers the operator override).
func (l *Lifecycle) Approve(ctx context.Context, id string) (model.Appointment, error) {
	return l.Transition(ctx, id, model.StatusApproved)
}

func (l *Lifecycle) Reject(ctx context.Context, id string) (model.Appointment, error) {
	return l.Transition(ctx, id, model.StatusRejected)
}

// Reinstate brings a rejected appointment back to approved. It is the same
// move as Approve; the separate name keeps the operator surface honest about
// intent.
func (l *Lifecycle) Reinstate(ctx context.Context, id string) (model.Appointment, error) {
	return l.Transition(ctx, id, model.StatusApproved)
}

func (l *Lifecycle) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	return l.Transition(ctx, id, model.StatusCancelled)
}

// Delete removes a record wherever it lives. Idempotent: deleting an id that
// is already gone succeeds.
func (l *Lifecycle) Delete(ctx context.Context, id string) error {
	err := l.records.Delete(ctx, id)
	if storage.IsNotFound(err) {
		return nil
	}
	return err
}

func (l *Lifecycle) windowFor(ctx context.Context, day time.Time) (*model.UnavailabilityWindow, error) {
	w, err := l.windows.Get(ctx, day)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func lifecycleEvent(a model.Appointment) notify.Event {
	return notify.Event{
		AppointmentID: a.ID,
		Status:        a.Status,
		Day:           a.Day,
		Slot:          a.Slot,
		Channel:       a.Channel,
		Recipient:     a.Contact,
		Services:      a.Services,
	}
}

func validateSubmission(a model.Appointment) error {
	switch {
	case a.Day.IsZero():
		return &model.ValidationError{Field: "date", Reason: "missing"}
	case a.Slot == "":
		return &model.ValidationError{Field: "time", Reason: "missing"}
	case a.Contact.Name == "":
		return &model.ValidationError{Field: "name", Reason: "missing"}
	case a.Contact.Phone == "":
		return &model.ValidationError{Field: "phone", Reason: "missing"}
	}
	if len(a.Services) == 0 {
		return &model.ValidationError{Field: "services", Reason: "at least one service required"}
	}
	for _, id := range a.Services {
		if _, ok := model.ServiceByID(id); !ok {
			return &model.ValidationError{Field: "services", Reason: fmt.Sprintf("unknown service %q", id)}
		}
	}
	if a.PartySize < 1 {
		return &model.ValidationError{Field: "people", Reason: "must be at least 1"}
	}
	if a.ChildrenCount < 0 || (!a.WithChildren && a.ChildrenCount > 0) {
		return &model.ValidationError{Field: "childrenCount", Reason: "inconsistent with children flag"}
	}
	if a.Channel != "" && !model.ValidChannel(a.Channel) {
		return &model.ValidationError{Field: "notificationMethod", Reason: fmt.Sprintf("unknown channel %q", a.Channel)}
	}
	return nil
}
