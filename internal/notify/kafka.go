package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaDispatcher publishes lifecycle events to per-event-type topics
// (booking.appointment.<status>.v1). Writes happen on a background
// goroutine with a bounded timeout so a slow broker cannot stall a status
// transition.
type KafkaDispatcher struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	timeout time.Duration
}

func NewKafkaDispatcher(brokers string, logger *slog.Logger) (*KafkaDispatcher, error) {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(list...),
		Balancer: &kafka.Hash{},
	}
	return &KafkaDispatcher{writer: writer, logger: logger, timeout: 5 * time.Second}, nil
}

func (d *KafkaDispatcher) Dispatch(_ context.Context, ev Event) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": ev.AppointmentID,
		"status":         string(ev.Status),
		"date":           ev.Day.Format("2006-01-02"),
		"time":           ev.Slot,
		"channel":        ev.Channel,
		"name":           ev.Recipient.Name,
		"phone":          ev.Recipient.Phone,
		"email":          ev.Recipient.Email,
		"services":       ev.Services,
	})
	if err != nil {
		d.logger.Error("notification payload marshal failed", "err", err)
		return
	}

	eventType := EventType(ev.Status)
	msg := kafka.Message{
		Topic: eventType,
		Key:   []byte(ev.AppointmentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	// Detached from the request context on purpose: the transition has
	// already committed and must not be tied to the caller's deadline.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.writer.WriteMessages(ctx, msg); err != nil {
			d.logger.Error("notification publish failed",
				"event_type", eventType,
				"appointment_id", ev.AppointmentID,
				"err", err,
			)
		}
	}()
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// ReadyCheck dials the first broker for /readyz.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		list := SplitBrokers(brokers)
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", list[0])
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
