package model

import (
	"fmt"
	"time"
)

// Status is the appointment lifecycle state. It is a closed enum: values are
// validated at every store boundary and malformed values are rejected rather
// than defaulted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status string read from a store or a request.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(raw), nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", raw)}
}

// Reserved reports whether an appointment in this status still occupies its
// (day, slot) pair. Only rejected and cancelled appointments free the slot.
func (s Status) Reserved() bool {
	return s == StatusPending || s == StatusApproved
}

// Contact is the client contact block. Structural validation (phone shape,
// email shape) happens before Submit; the engine only requires name and phone
// to be present.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Notification channels a client can choose for updates.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
)

func ValidChannel(ch string) bool {
	return ch == ChannelWhatsApp || ch == ChannelSMS || ch == ChannelEmail
}

// Appointment is a booking request for one (day, slot) pair. Day holds the
// calendar date at local midnight; Slot is an "HH:MM" label from the day's
// schedule. IDs are opaque strings: some historical records carry numeric-
// looking ids, which must not be interpreted.
type Appointment struct {
	ID            string
	Day           time.Time
	Slot          string
	Services      []string
	PartySize     int
	WithChildren  bool
	ChildrenCount int
	Contact       Contact
	Notes         string
	Channel       string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UnavailabilityWindow is an operator-declared blackout for one calendar
// date, either the whole day or a set of slots. One window exists per date;
// re-declaring a date overwrites the previous window.
type UnavailabilityWindow struct {
	Day          time.Time
	FullDay      bool
	BlockedSlots []string
	Reason       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Blocks reports whether the window excludes the given slot. A full-day
// window blocks every slot regardless of BlockedSlots.
func (w UnavailabilityWindow) Blocks(slot string) bool {
	if w.FullDay {
		return true
	}
	for _, s := range w.BlockedSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Midnight truncates t to local midnight, the canonical form for Day fields.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
