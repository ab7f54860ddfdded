package booking

import (
	"context"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/schedule"
	"github.com/tal-mizrahi/barberbook/internal/storage"
)

// DefaultHorizonDays is how far ahead clients can book.
const DefaultHorizonDays = 14

// Registry is the unavailability-registry contract the availability reads
// need. *storage.UnavailabilityStore satisfies it.
type Registry interface {
	WindowStore
	ListFuture(ctx context.Context, now time.Time) ([]model.UnavailabilityWindow, error)
}

// Availability answers the two client-facing questions: which dates can be
// picked, and what each slot on a date looks like.
type Availability struct {
	records *reconcile.Reconciler
	windows Registry
	horizon int
	now     func() time.Time
}

func NewAvailability(records *reconcile.Reconciler, windows Registry, horizonDays int) *Availability {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Availability{
		records: records,
		windows: windows,
		horizon: horizonDays,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Availability) WithClock(now func() time.Time) *Availability {
	s.now = now
	return s
}

// Dates lists the selectable dates for the booking horizon. Saturdays never
// appear, and a date under a full-day window is removed before the client
// ever sees it.
func (s *Availability) Dates(ctx context.Context) ([]time.Time, error) {
	now := s.now()
	windows, err := s.windows.ListFuture(ctx, now)
	if err != nil {
		return nil, err
	}
	fullDays := make(map[time.Time]bool, len(windows))
	for _, w := range windows {
		if w.FullDay {
			fullDays[model.Midnight(w.Day)] = true
		}
	}
	return schedule.CandidateDates(now, s.horizon, func(day time.Time) bool {
		return fullDays[day]
	}), nil
}

// Slots resolves the full slot list for one date: every slot from the day's
// schedule, labelled offerable or blocked with its reason.
func (s *Availability) Slots(ctx context.Context, day time.Time) ([]schedule.SlotStatus, error) {
	day = model.Midnight(day)
	now := s.now()

	var window *model.UnavailabilityWindow
	w, err := s.windows.Get(ctx, day)
	if err == nil {
		window = &w
	} else if !storage.IsNotFound(err) {
		return nil, err
	}

	reserved, err := s.records.ReservedSlots(ctx, day)
	if err != nil {
		return nil, err
	}
	return schedule.Resolve(day, schedule.SlotsFor(day), reserved, window, now), nil
}
