package booking

import (
	"fmt"
	"regexp"
	"time"

	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/schedule"
)

// Step orders the booking flow: date, then services, then contact, then
// confirmation.
type Step int

const (
	StepDate Step = iota
	StepServices
	StepContact
	StepConfirm
)

// Local mobile numbers: leading zero plus 8-9 digits.
var phoneRE = regexp.MustCompile(`^0\d{8,9}$`)

// Structural check only; deliverability is the messaging pipeline's problem.
var emailRE = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// Draft is the booking-in-progress value. It is immutable: each step
// returns a new draft, so callers can hold onto earlier states and no
// ambient mutable state accumulates across the flow.
type Draft struct {
	step Step

	day  time.Time
	slot string

	services      []string
	partySize     int
	withChildren  bool
	childrenCount int
	channel       string

	contact model.Contact
	notes   string
}

func NewDraft() Draft {
	return Draft{step: StepDate, partySize: 1, channel: model.ChannelWhatsApp}
}

func (d Draft) Step() Step { return d.step }

// WithSchedule completes the date step.
func (d Draft) WithSchedule(day time.Time, slot string) (Draft, error) {
	if d.step != StepDate {
		return Draft{}, d.outOfOrder(StepDate)
	}
	if day.IsZero() {
		return Draft{}, &model.ValidationError{Field: "date", Reason: "missing"}
	}
	if slot == "" {
		return Draft{}, &model.ValidationError{Field: "time", Reason: "missing"}
	}
	day = model.Midnight(day)
	if !schedule.ValidSlot(day, slot) {
		return Draft{}, &model.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not on the schedule for that day", slot)}
	}
	d.day = day
	d.slot = slot
	d.step = StepServices
	return d, nil
}

// WithServices completes the services step. Party size runs 1-5 and up to 5
// accompanying children, matching the shop's capacity.
func (d Draft) WithServices(serviceIDs []string, partySize int, withChildren bool, childrenCount int, channel string) (Draft, error) {
	if d.step != StepServices {
		return Draft{}, d.outOfOrder(StepServices)
	}
	if len(serviceIDs) == 0 {
		return Draft{}, &model.ValidationError{Field: "services", Reason: "at least one service required"}
	}
	for _, id := range serviceIDs {
		if _, ok := model.ServiceByID(id); !ok {
			return Draft{}, &model.ValidationError{Field: "services", Reason: fmt.Sprintf("unknown service %q", id)}
		}
	}
	if partySize < 1 || partySize > 5 {
		return Draft{}, &model.ValidationError{Field: "people", Reason: "must be between 1 and 5"}
	}
	if withChildren {
		if childrenCount < 1 || childrenCount > 5 {
			return Draft{}, &model.ValidationError{Field: "childrenCount", Reason: "must be between 1 and 5"}
		}
	} else if childrenCount != 0 {
		return Draft{}, &model.ValidationError{Field: "childrenCount", Reason: "set the children flag first"}
	}
	if channel == "" {
		channel = model.ChannelWhatsApp
	}
	if !model.ValidChannel(channel) {
		return Draft{}, &model.ValidationError{Field: "notificationMethod", Reason: fmt.Sprintf("unknown channel %q", channel)}
	}
	d.services = append([]string(nil), serviceIDs...)
	d.partySize = partySize
	d.withChildren = withChildren
	d.childrenCount = childrenCount
	d.channel = channel
	d.step = StepContact
	return d, nil
}

// WithContact completes the contact step.
func (d Draft) WithContact(c model.Contact, notes string) (Draft, error) {
	if d.step != StepContact {
		return Draft{}, d.outOfOrder(StepContact)
	}
	if c.Name == "" {
		return Draft{}, &model.ValidationError{Field: "name", Reason: "missing"}
	}
	if !phoneRE.MatchString(c.Phone) {
		return Draft{}, &model.ValidationError{Field: "phone", Reason: "must be a local 9-10 digit mobile number"}
	}
	if c.Email != "" && !emailRE.MatchString(c.Email) {
		return Draft{}, &model.ValidationError{Field: "email", Reason: "malformed address"}
	}
	d.contact = c
	d.notes = notes
	d.step = StepConfirm
	return d, nil
}

// Confirm materializes the appointment ready for Submit.
func (d Draft) Confirm() (model.Appointment, error) {
	if d.step != StepConfirm {
		return model.Appointment{}, d.outOfOrder(StepConfirm)
	}
	return model.Appointment{
		Day:           d.day,
		Slot:          d.slot,
		Services:      append([]string(nil), d.services...),
		PartySize:     d.partySize,
		WithChildren:  d.withChildren,
		ChildrenCount: d.childrenCount,
		Contact:       d.contact,
		Notes:         d.notes,
		Channel:       d.channel,
	}, nil
}

// TotalPriceNIS sums the chosen services' catalog prices.
func (d Draft) TotalPriceNIS() int {
	total := 0
	for _, id := range d.services {
		if svc, ok := model.ServiceByID(id); ok {
			total += svc.PriceNIS
		}
	}
	return total
}

func (d Draft) outOfOrder(want Step) error {
	return &model.ValidationError{
		Field:  "step",
		Reason: fmt.Sprintf("flow is at step %d, not %d", d.step, want),
	}
}
