package schedule

import (
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
func date(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.Local)
}

func TestSlotsForWeekdayTemplates(t *testing.T) {
	cases := []struct {
		name  string
		day   time.Time
		count int
		first string
		last  string
	}{
		{"monday standard", date(2), 22, "09:00", "19:30"},
		{"thursday extended", date(5), 26, "08:00", "20:30"},
		{"friday shortened", date(6), 14, "08:00", "14:30"},
		{"sunday standard", date(8), 22, "09:00", "19:30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := SlotsFor(tc.day)
			if len(slots) != tc.count {
				t.Fatalf("got %d slots, want %d", len(slots), tc.count)
			}
			if slots[0] != tc.first || slots[len(slots)-1] != tc.last {
				t.Fatalf("got range %s..%s, want %s..%s",
					slots[0], slots[len(slots)-1], tc.first, tc.last)
			}
		})
	}
}

func TestSlotsForIsDeterministic(t *testing.T) {
	a := SlotsFor(date(5))
	b := SlotsFor(date(5))
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs: %s vs %s", i, a[i], b[i])
		}
	}
	// Mutating a returned slice must not leak into later calls.
	a[0] = "00:00"
	if SlotsFor(date(5))[0] == "00:00" {
		t.Fatal("returned slice aliases the internal template")
	}
}

func TestFridayEndsBeforeAfternoon(t *testing.T) {
	for _, slot := range SlotsFor(date(6)) {
		if slot > "14:30" {
			t.Fatalf("friday offers %s, after closing", slot)
		}
	}
}

func TestSlotTime(t *testing.T) {
	at, ok := SlotTime(date(2), "09:30")
	if !ok {
		t.Fatal("SlotTime rejected a valid label")
	}
	want := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.Local)
	if !at.Equal(want) {
		t.Fatalf("got %v, want %v", at, want)
	}
	if _, ok := SlotTime(date(2), "junk"); ok {
		t.Fatal("SlotTime accepted a malformed label")
	}
}

func TestValidSlot(t *testing.T) {
	if !ValidSlot(date(5), "20:00") {
		t.Fatal("20:00 should be on the thursday schedule")
	}
	if ValidSlot(date(2), "20:00") {
		t.Fatal("20:00 should not be on the monday schedule")
	}
	if ValidSlot(date(6), "15:00") {
		t.Fatal("15:00 should not be on the friday schedule")
	}
}
