package schedule

import (
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

// BlockReason labels why a slot is not offerable. When several exclusions
// apply at once the label follows the precedence reserved > unavailable >
// past; offerability itself does not depend on the ordering.
type BlockReason string

const (
	BlockNone        BlockReason = "none"
	BlockReserved    BlockReason = "reserved"
	BlockUnavailable BlockReason = "unavailable"
	BlockPast        BlockReason = "past"
)

// SlotStatus is the resolved availability of one slot on one date.
type SlotStatus struct {
	Slot      string
	Offerable bool
	Reason    BlockReason
}

// Resolve combines the candidate slots for a date with the slots already
// reserved on it, the date's unavailability window (nil when none), and the
// current time. Total over its inputs: it never fails.
func Resolve(day time.Time, candidates, reserved []string, window *model.UnavailabilityWindow, now time.Time) []SlotStatus {
	taken := make(map[string]struct{}, len(reserved))
	for _, s := range reserved {
		taken[s] = struct{}{}
	}

	out := make([]SlotStatus, 0, len(candidates))
	for _, slot := range candidates {
		st := SlotStatus{Slot: slot, Offerable: true, Reason: BlockNone}
		switch {
		case has(taken, slot):
			st.Offerable = false
			st.Reason = BlockReserved
		case window != nil && window.Blocks(slot):
			st.Offerable = false
			st.Reason = BlockUnavailable
		case isPast(day, slot, now):
			st.Offerable = false
			st.Reason = BlockPast
		}
		out = append(out, st)
	}
	return out
}

func has(set map[string]struct{}, slot string) bool {
	_, ok := set[slot]
	return ok
}

// isPast applies only when the date is today: a slot whose clock time is at
// or before now is gone. Future dates never have past slots; past dates are
// excluded upstream by CandidateDates.
func isPast(day time.Time, slot string, now time.Time) bool {
	if !model.SameDay(day, now) {
		return false
	}
	at, ok := SlotTime(day, slot)
	if !ok {
		return false
	}
	return !at.After(now)
}

// CandidateDates returns the selectable dates for the next horizonDays
// starting today, excluding Saturdays (shop closed) and any date the blocked
// predicate marks as fully unavailable.
func CandidateDates(now time.Time, horizonDays int, blocked func(time.Time) bool) []time.Time {
	today := model.Midnight(now)
	var out []time.Time
	for i := 0; i < horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		if day.Weekday() == time.Saturday {
			continue
		}
		if blocked != nil && blocked(day) {
			continue
		}
		out = append(out, day)
	}
	return out
}
