// Package reconcile locates and merges appointment records scattered across
// the historical record tables. Earlier generations of the system wrote to
// differently named collections, and an identifier alone does not say which
// one holds it. The reconciler is a compatibility shim until a one-time
// migration lands, not a permanent architecture.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/storage"
)

// ErrUnresolvable means a mutation was attempted against every candidate
// store and all of them rejected it.
var ErrUnresolvable = errors.New("record unresolvable in any candidate store")

// Store is the slice of the record-store contract the reconciler needs.
// *storage.AppointmentTable satisfies it.
type Store interface {
	Table() string
	Get(ctx context.Context, id string) (model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error)
	ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error)
	ListByPhone(ctx context.Context, phone string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// Record is an appointment tagged with the store it was read from.
type Record struct {
	model.Appointment
	Source string
}

// Reconciler probes candidate stores in a fixed priority order. Resolved
// id→store pairs are remembered so a mutation following a lookup goes
// straight to the record's home store.
type Reconciler struct {
	stores []Store
	logger *slog.Logger

	mu       sync.Mutex
	resolved map[string]Store
}

func New(logger *slog.Logger, stores ...Store) *Reconciler {
	return &Reconciler{
		stores:   stores,
		logger:   logger,
		resolved: map[string]Store{},
	}
}

// FindByID probes the candidate stores in priority order and returns the
// first hit with its source store. Each store is probed at most once. A
// store-level failure is remembered and reported only if no later store has
// the record.
func (r *Reconciler) FindByID(ctx context.Context, id string) (Record, error) {
	if st := r.cached(id); st != nil {
		a, err := st.Get(ctx, id)
		if err == nil {
			return Record{Appointment: a, Source: st.Table()}, nil
		}
		r.forget(id)
	}

	var probeErr error
	for _, st := range r.stores {
		a, err := st.Get(ctx, id)
		if err == nil {
			r.remember(id, st)
			return Record{Appointment: a, Source: st.Table()}, nil
		}
		if storage.IsNotFound(err) {
			continue
		}
		r.logger.Warn("store probe failed", "store", st.Table(), "id", id, "err", err)
		probeErr = err
	}
	if probeErr != nil {
		return Record{}, probeErr
	}
	return Record{}, storage.ErrNotFound
}

// ListAllMerged concatenates every candidate store's records, tags each with
// its source, and sorts by date ascending. Records that look alike across
// stores are not deduplicated; the operator view shows everything.
func (r *Reconciler) ListAllMerged(ctx context.Context) ([]Record, error) {
	return r.merged(func(st Store) ([]model.Appointment, error) {
		return st.ListAll(ctx)
	})
}

// ListByStatusMerged is ListAllMerged narrowed to one status.
func (r *Reconciler) ListByStatusMerged(ctx context.Context, status model.Status) ([]Record, error) {
	return r.merged(func(st Store) ([]model.Appointment, error) {
		return st.ListByStatus(ctx, status)
	})
}

// ListByPhoneMerged collects one client's appointments across every store.
func (r *Reconciler) ListByPhoneMerged(ctx context.Context, phone string) ([]Record, error) {
	return r.merged(func(st Store) ([]model.Appointment, error) {
		return st.ListByPhone(ctx, phone)
	})
}

func (r *Reconciler) merged(list func(Store) ([]model.Appointment, error)) ([]Record, error) {
	var out []Record
	var lastErr error
	for _, st := range r.stores {
		recs, err := list(st)
		if err != nil {
			r.logger.Warn("store list failed", "store", st.Table(), "err", err)
			lastErr = err
			continue
		}
		for _, a := range recs {
			out = append(out, Record{Appointment: a, Source: st.Table()})
		}
	}
	if out == nil && lastErr != nil {
		return nil, lastErr
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Slot < out[j].Slot
	})
	return out, nil
}

// ReservedSlots collects the slots held on a date by pending or approved
// appointments in any candidate store.
func (r *Reconciler) ReservedSlots(ctx context.Context, day time.Time) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, st := range r.stores {
		list, err := st.ListByDate(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, a := range list {
			if !a.Status.Reserved() {
				continue
			}
			if _, dup := seen[a.Slot]; dup {
				continue
			}
			seen[a.Slot] = struct{}{}
			out = append(out, a.Slot)
		}
	}
	return out, nil
}

// UpdateStatus resolves the record's home store first and delegates to it.
// When resolution fails, the mutation is attempted blind against every
// candidate store in priority order; the first store that does not error
// wins. ErrUnresolvable only when all of them reject.
func (r *Reconciler) UpdateStatus(ctx context.Context, id string, status model.Status) (Record, error) {
	if _, err := r.FindByID(ctx, id); err == nil {
		st := r.cached(id)
		a, err := st.UpdateStatus(ctx, id, status)
		if err != nil {
			return Record{}, err
		}
		return Record{Appointment: a, Source: st.Table()}, nil
	}

	missing := 0
	for _, st := range r.stores {
		a, err := st.UpdateStatus(ctx, id, status)
		if err == nil {
			r.remember(id, st)
			return Record{Appointment: a, Source: st.Table()}, nil
		}
		if storage.IsConflict(err) {
			return Record{}, err
		}
		if storage.IsNotFound(err) {
			missing++
		}
	}
	if missing == len(r.stores) {
		return Record{}, storage.ErrNotFound
	}
	return Record{}, ErrUnresolvable
}

// Delete mirrors UpdateStatus's resolve-then-delegate, blind-fallback shape.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	if _, err := r.FindByID(ctx, id); err == nil {
		st := r.cached(id)
		err := st.Delete(ctx, id)
		if err == nil {
			r.forget(id)
		}
		return err
	}

	missing := 0
	for _, st := range r.stores {
		err := st.Delete(ctx, id)
		if err == nil {
			r.forget(id)
			return nil
		}
		if storage.IsNotFound(err) {
			missing++
		}
	}
	if missing == len(r.stores) {
		return storage.ErrNotFound
	}
	return ErrUnresolvable
}

func (r *Reconciler) cached(id string) Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved[id]
}

func (r *Reconciler) remember(id string, st Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[id] = st
}

func (r *Reconciler) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolved, id)
}
