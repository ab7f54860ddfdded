package notify

import (
	"testing"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

func TestEventType(t *testing.T) {
	cases := map[model.Status]string{
		model.StatusPending:   "booking.appointment.requested.v1",
		model.StatusApproved:  "booking.appointment.approved.v1",
		model.StatusRejected:  "booking.appointment.rejected.v1",
		model.StatusCancelled: "booking.appointment.cancelled.v1",
	}
	for status, want := range cases {
		if got := EventType(status); got != want {
			t.Fatalf("EventType(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("got %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("empty input should yield no brokers")
	}
}
