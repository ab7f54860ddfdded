package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/booking"
	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/notify"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/storage"
	"github.com/tal-mizrahi/barberbook/internal/watch"
)

// fakeStore is an in-memory AppointmentStore with the reserved-slot
// uniqueness the partial index enforces in production.
type fakeStore struct {
	table string
	recs  map[string]model.Appointment
	seq   int
}

func newFakeStore(table string) *fakeStore {
	return &fakeStore{table: table, recs: map[string]model.Appointment{}}
}

func (s *fakeStore) Table() string { return s.table }

func (s *fakeStore) Create(_ context.Context, a model.Appointment) (model.Appointment, error) {
	for _, other := range s.recs {
		if model.SameDay(other.Day, a.Day) && other.Slot == a.Slot && other.Status.Reserved() {
			return model.Appointment{}, storage.ErrConflict
		}
	}
	s.seq++
	a.ID = fmt.Sprintf("%s-%d", s.table, s.seq)
	a.Status = model.StatusPending
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.recs[a.ID] = a
	return a, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (model.Appointment, error) {
	a, ok := s.recs[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) ListByDate(_ context.Context, day time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.recs {
		if model.SameDay(a.Day, day) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.recs {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) ListByStatus(_ context.Context, status model.Status) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.recs {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByPhone(_ context.Context, phone string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range s.recs {
		if a.Contact.Phone == phone {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status model.Status) (model.Appointment, error) {
	a, ok := s.recs[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	s.recs[id] = a
	return a, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := s.recs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.recs, id)
	return nil
}

// fakeWindows is an in-memory WindowRegistry.
type fakeWindows struct {
	windows map[string]model.UnavailabilityWindow
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{windows: map[string]model.UnavailabilityWindow{}}
}

func (f *fakeWindows) Get(_ context.Context, day time.Time) (model.UnavailabilityWindow, error) {
	w, ok := f.windows[day.Format(dateLayout)]
	if !ok {
		return model.UnavailabilityWindow{}, storage.ErrNotFound
	}
	return w, nil
}

// ListFuture returns everything; the date filtering is the SQL layer's
// concern and the fixtures only hold in-horizon windows.
func (f *fakeWindows) ListFuture(_ context.Context, _ time.Time) ([]model.UnavailabilityWindow, error) {
	var out []model.UnavailabilityWindow
	for _, w := range f.windows {
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeWindows) Upsert(_ context.Context, w model.UnavailabilityWindow) (model.UnavailabilityWindow, error) {
	w.Day = model.Midnight(w.Day)
	if w.FullDay || w.BlockedSlots == nil {
		w.BlockedSlots = []string{}
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	f.windows[w.Day.Format(dateLayout)] = w
	return w, nil
}

func (f *fakeWindows) DeleteByDate(_ context.Context, day time.Time) error {
	delete(f.windows, day.Format(dateLayout))
	return nil
}

type dropDispatcher struct{}

func (dropDispatcher) Dispatch(context.Context, notify.Event) {}

type testEnv struct {
	booking *BookingHandler
	admin   *AdminHandler
	store   *fakeStore
	windows *fakeWindows
	hub     *watch.Hub
}

// 2026-03-02 is a Monday; the clock sits at 08:00 that morning.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.Default()
	store := newFakeStore("appointments")
	records := reconcile.New(logger, store)
	windows := newFakeWindows()
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.Local)

	lifecycle := booking.NewLifecycle(store, records, windows, dropDispatcher{}, logger).
		WithClock(func() time.Time { return now })
	availability := booking.NewAvailability(records, windows, booking.DefaultHorizonDays).
		WithClock(func() time.Time { return now })

	hub := watch.NewHub(logger, func(ctx context.Context) ([]model.Appointment, error) {
		return store.ListAll(ctx)
	}, nil, "")

	return &testEnv{
		booking: NewBookingHandler(lifecycle, availability, logger),
		admin:   NewAdminHandler(lifecycle, records, windows, hub, logger),
		store:   store,
		windows: windows,
		hub:     hub,
	}
}

func bookBody(date, slot string) string {
	return fmt.Sprintf(`{
		"date": %q, "time": %q,
		"services": ["haircut", "beard"],
		"people": 1,
		"name": "Avi", "phone": "0501234567"
	}`, date, slot)
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestServicesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := doJSON(t, env.booking.Services, http.MethodGet, "/api/v1/public/services", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var items []serviceItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("got %d services, want the full catalog", len(items))
	}
}

func TestSlotsRequiresDate(t *testing.T) {
	env := newTestEnv(t)
	w := doJSON(t, env.booking.Slots, http.MethodGet, "/api/v1/public/slots", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	w = doJSON(t, env.booking.Slots, http.MethodGet, "/api/v1/public/slots?date=not-a-date", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestBookHappyPath(t *testing.T) {
	env := newTestEnv(t)
	w := doJSON(t, env.booking.Book, http.MethodPost, "/api/v1/public/book", bookBody("2026-03-02", "10:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp bookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Status != "pending" || resp.Time != "10:00" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.TotalPriceNIS != 75 {
		t.Fatalf("total %d, want 75", resp.TotalPriceNIS)
	}
}

func TestBookDoubleBookingConflicts(t *testing.T) {
	env := newTestEnv(t)
	if w := doJSON(t, env.booking.Book, http.MethodPost, "/book", bookBody("2026-03-02", "10:00")); w.Code != http.StatusCreated {
		t.Fatalf("first booking status %d", w.Code)
	}
	w := doJSON(t, env.booking.Book, http.MethodPost, "/book", bookBody("2026-03-02", "10:00"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestBookValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"missing phone", `{"date":"2026-03-02","time":"10:00","services":["haircut"],"name":"Avi"}`},
		{"bad phone shape", `{"date":"2026-03-02","time":"10:00","services":["haircut"],"name":"Avi","phone":"12345"}`},
		{"bad email", `{"date":"2026-03-02","time":"10:00","services":["haircut"],"name":"Avi","phone":"0501234567","email":"nope"}`},
		{"unknown service", `{"date":"2026-03-02","time":"10:00","services":["perm"],"name":"Avi","phone":"0501234567"}`},
		{"saturday", `{"date":"2026-03-07","time":"10:00","services":["haircut"],"name":"Avi","phone":"0501234567"}`},
		{"off-schedule slot", `{"date":"2026-03-02","time":"20:00","services":["haircut"],"name":"Avi","phone":"0501234567"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, env.booking.Book, http.MethodPost, "/book", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDatesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.windows.Upsert(context.Background(), model.UnavailabilityWindow{
		Day:     time.Date(2026, time.March, 4, 0, 0, 0, 0, time.Local),
		FullDay: true,
	}); err != nil {
		t.Fatalf("seed window failed: %v", err)
	}

	w := doJSON(t, env.booking.Dates, http.MethodGet, "/api/v1/public/dates", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var dates []string
	if err := json.Unmarshal(w.Body.Bytes(), &dates); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	for _, d := range dates {
		if d == "2026-03-04" {
			t.Fatal("full-day-blocked date offered")
		}
		if d == "2026-03-07" || d == "2026-03-14" {
			t.Fatal("saturday offered")
		}
	}
}

func TestSlotsReflectBookings(t *testing.T) {
	env := newTestEnv(t)
	if w := doJSON(t, env.booking.Book, http.MethodPost, "/book", bookBody("2026-03-02", "10:00")); w.Code != http.StatusCreated {
		t.Fatalf("booking status %d", w.Code)
	}

	w := doJSON(t, env.booking.Slots, http.MethodGet, "/slots?date=2026-03-02", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var items []slotItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	for _, it := range items {
		if it.Slot == "10:00" {
			if it.Offerable || it.Reason != "reserved" {
				t.Fatalf("10:00 got %+v, want reserved", it)
			}
			return
		}
	}
	t.Fatal("10:00 missing from slot listing")
}
