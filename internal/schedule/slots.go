package schedule

import "time"

// The shop runs three fixed weekday templates at 30-minute granularity:
// the standard day, an extended Thursday, and a shortened Friday. Saturday
// is closed and filtered out at date-candidate generation, so it never
// reaches slot listing.
var standardSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	"18:00", "18:30", "19:00", "19:30",
}

var thursdaySlots = buildThursday()
var fridaySlots = buildFriday()

func buildThursday() []string {
	out := []string{"08:00", "08:30"}
	out = append(out, standardSlots...)
	return append(out, "20:00", "20:30")
}

func buildFriday() []string {
	out := []string{"08:00", "08:30"}
	return append(out, standardSlots[:12]...)
}

// SlotsFor returns the ordered slot labels offerable on the given date's
// weekday. Pure and deterministic: the result depends only on the weekday.
func SlotsFor(day time.Time) []string {
	var src []string
	switch day.Weekday() {
	case time.Thursday:
		src = thursdaySlots
	case time.Friday:
		src = fridaySlots
	default:
		src = standardSlots
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// SlotTime anchors an "HH:MM" label to a clock time on the given date, in
// the date's location. Malformed labels report ok=false; labels produced by
// SlotsFor always parse.
func SlotTime(day time.Time, slot string) (time.Time, bool) {
	clock, err := time.Parse("15:04", slot)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, day.Location()), true
}

// ValidSlot reports whether slot belongs to the day's schedule.
func ValidSlot(day time.Time, slot string) bool {
	for _, s := range SlotsFor(day) {
		if s == slot {
			return true
		}
	}
	return false
}
