// Package handlers exposes the engine over HTTP: a public booking surface
// for clients and an operator surface for the shop.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tal-mizrahi/barberbook/internal/booking"
	"github.com/tal-mizrahi/barberbook/internal/model"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	lifecycle    *booking.Lifecycle
	availability *booking.Availability
	logger       *slog.Logger
	validate     *validator.Validate
}

func NewBookingHandler(lifecycle *booking.Lifecycle, availability *booking.Availability, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		lifecycle:    lifecycle,
		availability: availability,
		logger:       logger,
		validate:     validator.New(),
	}
}

type serviceItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	PriceNIS     int    `json:"price_nis"`
}

// Services lists the bookable catalog.
func (h *BookingHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items := make([]serviceItem, 0)
	for _, s := range model.Catalog() {
		items = append(items, serviceItem{ID: s.ID, Name: s.Name, DurationMins: s.DurationMins, PriceNIS: s.PriceNIS})
	}
	writeJSON(w, http.StatusOK, items)
}

// Dates lists the selectable dates for the booking horizon.
func (h *BookingHandler) Dates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	dates, err := h.availability.Dates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	writeJSON(w, http.StatusOK, out)
}

type slotItem struct {
	Slot      string `json:"slot"`
	Offerable bool   `json:"offerable"`
	Reason    string `json:"reason"`
}

// Slots resolves availability for one date.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	day, ok := parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	statuses, err := h.availability.Slots(r.Context(), day)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]slotItem, 0, len(statuses))
	for _, st := range statuses {
		items = append(items, slotItem{Slot: st.Slot, Offerable: st.Offerable, Reason: string(st.Reason)})
	}
	writeJSON(w, http.StatusOK, items)
}

type bookRequest struct {
	Date          string   `json:"date" validate:"required"`
	Time          string   `json:"time" validate:"required"`
	Services      []string `json:"services" validate:"required,min=1"`
	People        int      `json:"people" validate:"omitempty,min=1,max=5"`
	WithChildren  bool     `json:"withChildren"`
	ChildrenCount int      `json:"childrenCount" validate:"min=0,max=5"`
	Channel       string   `json:"notificationMethod" validate:"omitempty,oneof=whatsapp sms email"`
	Name          string   `json:"name" validate:"required"`
	Phone         string   `json:"phone" validate:"required"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Notes         string   `json:"notes"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	TotalPriceNIS int    `json:"total_price_nis"`
}

// Book walks a submission through the draft flow and the lifecycle manager.
// A slot that was taken, blacked out, or passed between the client's read
// and this write comes back as 409 so the client re-fetches availability.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	day, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	if req.People == 0 {
		req.People = 1
	}

	draft, err := booking.NewDraft().WithSchedule(day, req.Time)
	if err == nil {
		draft, err = draft.WithServices(req.Services, req.People, req.WithChildren, req.ChildrenCount, req.Channel)
	}
	if err == nil {
		draft, err = draft.WithContact(model.Contact{Name: req.Name, Phone: req.Phone, Email: req.Email}, req.Notes)
	}
	var appt model.Appointment
	if err == nil {
		appt, err = draft.Confirm()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.lifecycle.Submit(r.Context(), appt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: created.ID,
		Status:        string(created.Status),
		Date:          created.Day.Format(dateLayout),
		Time:          created.Slot,
		TotalPriceNIS: draft.TotalPriceNIS(),
	})
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required"})
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}
