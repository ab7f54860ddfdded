// Package notify hands lifecycle events to the outbound messaging pipeline.
// Delivery (WhatsApp/SMS/email rendering, retries) lives downstream; this
// side of the fence only emits events, and a failed emit never rolls back
// the transition that caused it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

// Event describes one lifecycle change worth telling the client about.
type Event struct {
	AppointmentID string
	Status        model.Status
	Day           time.Time
	Slot          string
	Channel       string
	Recipient     model.Contact
	Services      []string
}

// Dispatcher is fire-and-forget: implementations must not block the caller
// beyond handing the event off, and must swallow (but log) failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// EventType names the outbound topic for a lifecycle status. A fresh
// submission goes out as "requested"; the pending label is internal.
func EventType(status model.Status) string {
	name := string(status)
	if status == model.StatusPending {
		name = "requested"
	}
	return "booking.appointment." + name + ".v1"
}

// LogDispatcher is the no-broker fallback: it records the event and moves
// on. Used in development and tests.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d *LogDispatcher) Dispatch(_ context.Context, ev Event) {
	d.Logger.Info("notification event",
		"appointment_id", ev.AppointmentID,
		"status", string(ev.Status),
		"channel", ev.Channel,
	)
}
