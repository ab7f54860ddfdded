package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/booking"
	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/watch"
)

// WindowRegistry is the unavailability contract the operator surface needs.
// *storage.UnavailabilityStore satisfies it.
type WindowRegistry interface {
	booking.Registry
	Upsert(ctx context.Context, w model.UnavailabilityWindow) (model.UnavailabilityWindow, error)
	DeleteByDate(ctx context.Context, day time.Time) error
}

// AdminHandler serves the shop operator: the merged appointment ledger, the
// live watch stream, lifecycle transitions, and blackout windows.
type AdminHandler struct {
	lifecycle *booking.Lifecycle
	records   *reconcile.Reconciler
	windows   WindowRegistry
	hub       *watch.Hub
	logger    *slog.Logger
}

func NewAdminHandler(lifecycle *booking.Lifecycle, records *reconcile.Reconciler, windows WindowRegistry, hub *watch.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		records:   records,
		windows:   windows,
		hub:       hub,
		logger:    logger,
	}
}

type appointmentView struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Services      []string `json:"services"`
	People        int      `json:"people"`
	WithChildren  bool     `json:"withChildren"`
	ChildrenCount int      `json:"childrenCount"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Channel       string   `json:"notificationMethod"`
	Status        string   `json:"status"`
	Source        string   `json:"source,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func viewOf(a model.Appointment, source string) appointmentView {
	return appointmentView{
		ID:            a.ID,
		Date:          a.Day.Format(dateLayout),
		Time:          a.Slot,
		Services:      a.Services,
		People:        a.PartySize,
		WithChildren:  a.WithChildren,
		ChildrenCount: a.ChildrenCount,
		Name:          a.Contact.Name,
		Phone:         a.Contact.Phone,
		Email:         a.Contact.Email,
		Notes:         a.Notes,
		Channel:       a.Channel,
		Status:        string(a.Status),
		Source:        source,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Appointments serves the merged ledger across every record store.
// GET lists (optionally filtered by ?status= or ?phone=), DELETE removes by
// ?id= wherever the record lives.
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		records []reconcile.Record
		err     error
	)
	switch {
	case r.URL.Query().Get("status") != "":
		var status model.Status
		status, err = model.ParseStatus(r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, err)
			return
		}
		records, err = h.records.ListByStatusMerged(r.Context(), status)
	case strings.TrimSpace(r.URL.Query().Get("phone")) != "":
		records, err = h.records.ListByPhoneMerged(r.Context(), strings.TrimSpace(r.URL.Query().Get("phone")))
	default:
		records, err = h.records.ListAllMerged(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]appointmentView, 0, len(records))
	for _, rec := range records {
		out = append(out, viewOf(rec.Appointment, rec.Source))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	if err := h.lifecycle.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	ID string `json:"id"`
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (model.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	updated, err := apply(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(updated, ""))
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Approve)
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Reject)
}

func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Cancel)
}

func (h *AdminHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Reinstate)
}

// Watch streams appointment snapshots over server-sent events. The first
// frame is the current state; a frame follows every record change. Each
// frame is the full set, never a diff.
func (h *AdminHandler) Watch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before taking the initial snapshot so a change landing
	// between the two still arrives as the next frame.
	snapshots, cancel := h.hub.Subscribe()
	defer cancel()

	records, err := h.records.ListAllMerged(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	initial := make([]model.Appointment, 0, len(records))
	for _, rec := range records {
		initial = append(initial, rec.Appointment)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.writeFrame(w, flusher, initial)
	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			h.writeFrame(w, flusher, snapshot)
		}
	}
}

func (h *AdminHandler) writeFrame(w http.ResponseWriter, flusher http.Flusher, snapshot []model.Appointment) {
	views := make([]appointmentView, 0, len(snapshot))
	for _, a := range snapshot {
		views = append(views, viewOf(a, ""))
	}
	body, err := json.Marshal(views)
	if err != nil {
		h.logger.Error("snapshot encode failed", "err", err)
		return
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return
	}
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}

type windowView struct {
	Date         string   `json:"date"`
	FullDay      bool     `json:"fullDay"`
	BlockedSlots []string `json:"blockedSlots"`
	Reason       string   `json:"reason,omitempty"`
}

type windowRequest struct {
	Date         string   `json:"date"`
	FullDay      bool     `json:"fullDay"`
	BlockedSlots []string `json:"blockedSlots"`
	Reason       string   `json:"reason"`
}

// Unavailability manages blackout windows. GET lists future windows, PUT
// declares or overwrites one date's window, DELETE clears a date.
func (h *AdminHandler) Unavailability(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		windows, err := h.windows.ListFuture(r.Context(), time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]windowView, 0, len(windows))
		for _, win := range windows {
			out = append(out, windowView{
				Date:         win.Day.Format(dateLayout),
				FullDay:      win.FullDay,
				BlockedSlots: win.BlockedSlots,
				Reason:       win.Reason,
			})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPut:
		var req windowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		day, ok := parseDate(w, req.Date)
		if !ok {
			return
		}
		if !req.FullDay && len(req.BlockedSlots) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be full-day or name blocked slots"})
			return
		}
		saved, err := h.windows.Upsert(r.Context(), model.UnavailabilityWindow{
			Day:          day,
			FullDay:      req.FullDay,
			BlockedSlots: req.BlockedSlots,
			Reason:       strings.TrimSpace(req.Reason),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, windowView{
			Date:         saved.Day.Format(dateLayout),
			FullDay:      saved.FullDay,
			BlockedSlots: saved.BlockedSlots,
			Reason:       saved.Reason,
		})

	case http.MethodDelete:
		day, ok := parseDate(w, r.URL.Query().Get("date"))
		if !ok {
			return
		}
		if err := h.windows.DeleteByDate(r.Context(), day); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
