package storage

import (
	"testing"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

// blocked_slots is NOT NULL in the schema, and pgx turns a nil []string into
// SQL NULL rather than an empty array. Every window headed for the INSERT must
// therefore carry a non-nil slice, full-day declarations included.
func TestWindowNormalization(t *testing.T) {
	day := time.Date(2026, time.March, 4, 15, 30, 0, 0, time.Local)

	full := normalizeWindow(model.UnavailabilityWindow{
		Day:          day,
		FullDay:      true,
		BlockedSlots: []string{"10:00", "10:30"},
	})
	if full.BlockedSlots == nil {
		t.Fatal("full-day window normalized to a nil slot list")
	}
	if len(full.BlockedSlots) != 0 {
		t.Fatalf("full-day window kept slot list %v", full.BlockedSlots)
	}

	bare := normalizeWindow(model.UnavailabilityWindow{Day: day})
	if bare.BlockedSlots == nil {
		t.Fatal("window without slots normalized to a nil slot list")
	}

	slotted := normalizeWindow(model.UnavailabilityWindow{
		Day:          day,
		BlockedSlots: []string{"11:00"},
	})
	if len(slotted.BlockedSlots) != 1 || slotted.BlockedSlots[0] != "11:00" {
		t.Fatalf("slot-level window lost its slots: %v", slotted.BlockedSlots)
	}

	want := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.Local)
	if !full.Day.Equal(want) {
		t.Fatalf("day not truncated to midnight: got %v", full.Day)
	}
}
