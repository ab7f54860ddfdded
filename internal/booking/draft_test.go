package booking

import (
	"testing"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

// 2026-03-02 is a Monday.
func monday() time.Time {
	return time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local)
}

func completeDraft(t *testing.T) Draft {
	t.Helper()
	d, err := NewDraft().WithSchedule(monday(), "10:00")
	if err != nil {
		t.Fatalf("WithSchedule failed: %v", err)
	}
	d, err = d.WithServices([]string{"haircut", "beard"}, 1, false, 0, "")
	if err != nil {
		t.Fatalf("WithServices failed: %v", err)
	}
	d, err = d.WithContact(model.Contact{Name: "Avi", Phone: "0501234567"}, "")
	if err != nil {
		t.Fatalf("WithContact failed: %v", err)
	}
	return d
}

func TestDraftFlow(t *testing.T) {
	d := completeDraft(t)
	appt, err := d.Confirm()
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if appt.Slot != "10:00" || len(appt.Services) != 2 || appt.PartySize != 1 {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if appt.Channel != model.ChannelWhatsApp {
		t.Fatalf("channel %q, want whatsapp default", appt.Channel)
	}
	if got := d.TotalPriceNIS(); got != 75 {
		t.Fatalf("total %d, want 75 (haircut 50 + beard 25)", got)
	}
}

func TestDraftStepsOutOfOrder(t *testing.T) {
	d := NewDraft()
	if _, err := d.WithServices([]string{"haircut"}, 1, false, 0, ""); !model.IsValidation(err) {
		t.Fatalf("services before date: got %v, want validation error", err)
	}
	if _, err := d.WithContact(model.Contact{Name: "Avi", Phone: "0501234567"}, ""); !model.IsValidation(err) {
		t.Fatalf("contact before date: got %v, want validation error", err)
	}
	if _, err := d.Confirm(); !model.IsValidation(err) {
		t.Fatalf("confirm before flow: got %v, want validation error", err)
	}
}

func TestDraftImmutable(t *testing.T) {
	base, err := NewDraft().WithSchedule(monday(), "10:00")
	if err != nil {
		t.Fatalf("WithSchedule failed: %v", err)
	}
	if _, err := base.WithServices([]string{"haircut"}, 1, false, 0, ""); err != nil {
		t.Fatalf("WithServices failed: %v", err)
	}
	// base is still at the services step; reusing it is fine.
	if _, err := base.WithServices([]string{"beard"}, 2, false, 0, "sms"); err != nil {
		t.Fatalf("reusing earlier draft failed: %v", err)
	}
}

func TestDraftScheduleValidation(t *testing.T) {
	if _, err := NewDraft().WithSchedule(monday(), "20:00"); !model.IsValidation(err) {
		t.Fatalf("off-schedule slot: got %v, want validation error", err)
	}
	if _, err := NewDraft().WithSchedule(time.Time{}, "10:00"); !model.IsValidation(err) {
		t.Fatalf("zero date: got %v, want validation error", err)
	}
}

func TestDraftServicesValidation(t *testing.T) {
	d, err := NewDraft().WithSchedule(monday(), "10:00")
	if err != nil {
		t.Fatalf("WithSchedule failed: %v", err)
	}
	cases := []struct {
		name      string
		services  []string
		people    int
		withKids  bool
		kids      int
		channel   string
		wantError bool
	}{
		{"unknown service", []string{"perm"}, 1, false, 0, "", true},
		{"no services", nil, 1, false, 0, "", true},
		{"party too large", []string{"haircut"}, 6, false, 0, "", true},
		{"children without flag", []string{"haircut"}, 1, false, 2, "", true},
		{"flag without children", []string{"haircut"}, 1, true, 0, "", true},
		{"bad channel", []string{"haircut"}, 1, false, 0, "pigeon", true},
		{"full package", []string{"fullPackage"}, 2, true, 1, "email", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.WithServices(tc.services, tc.people, tc.withKids, tc.kids, tc.channel)
			if tc.wantError && !model.IsValidation(err) {
				t.Fatalf("got %v, want validation error", err)
			}
			if !tc.wantError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDraftContactValidation(t *testing.T) {
	d, err := NewDraft().WithSchedule(monday(), "10:00")
	if err != nil {
		t.Fatalf("WithSchedule failed: %v", err)
	}
	d, err = d.WithServices([]string{"haircut"}, 1, false, 0, "")
	if err != nil {
		t.Fatalf("WithServices failed: %v", err)
	}

	if _, err := d.WithContact(model.Contact{Name: "Avi", Phone: "12345"}, ""); !model.IsValidation(err) {
		t.Fatalf("short phone: got %v, want validation error", err)
	}
	if _, err := d.WithContact(model.Contact{Name: "Avi", Phone: "0501234567", Email: "not-an-email"}, ""); !model.IsValidation(err) {
		t.Fatalf("bad email: got %v, want validation error", err)
	}
	if _, err := d.WithContact(model.Contact{Phone: "0501234567"}, ""); !model.IsValidation(err) {
		t.Fatalf("missing name: got %v, want validation error", err)
	}
	if _, err := d.WithContact(model.Contact{Name: "Avi", Phone: "05012345678"}, ""); !model.IsValidation(err) {
		t.Fatalf("11-digit phone: got %v, want validation error", err)
	}
	if _, err := d.WithContact(model.Contact{Name: "Avi", Phone: "0501234567"}, "note"); err != nil {
		t.Fatalf("10-digit phone rejected: %v", err)
	}
}
