// Package watch delivers full-state appointment snapshots to subscribers
// whenever any record changes, so the operator view stays current without
// manual refresh.
package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/tal-mizrahi/barberbook/internal/model"
)

// LoadFunc produces the full current appointment set. The hub never diffs:
// every delivery is a complete snapshot and subscribers must treat it so.
type LoadFunc func(ctx context.Context) ([]model.Appointment, error)

// Hub fans change signals out as snapshots. With a Redis client configured,
// signals travel over pub/sub so every instance reloads; without one the
// hub degrades to in-process signalling.
type Hub struct {
	logger  *slog.Logger
	load    LoadFunc
	rdb     *redis.Client
	channel string

	kick chan struct{}

	mu     sync.Mutex
	subs   map[int]chan []model.Appointment
	nextID int
}

func NewHub(logger *slog.Logger, load LoadFunc, rdb *redis.Client, channel string) *Hub {
	if channel == "" {
		channel = "appointments.changed"
	}
	return &Hub{
		logger:  logger,
		load:    load,
		rdb:     rdb,
		channel: channel,
		kick:    make(chan struct{}, 1),
		subs:    map[int]chan []model.Appointment{},
	}
}

// Announce signals that the record set changed. Non-blocking; coalesces
// with a pending signal. Satisfies storage.Announcer.
func (h *Hub) Announce(ctx context.Context) {
	if h.rdb != nil {
		if err := h.rdb.Publish(ctx, h.channel, "changed").Err(); err != nil {
			h.logger.Warn("change publish failed; falling back to local signal", "err", err)
		} else {
			return
		}
	}
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// Subscribe registers a consumer. The returned channel carries snapshots,
// buffered one deep with latest-wins delivery: a slow consumer sees the
// newest state, not a backlog. The cancel func must be called to release
// the subscription.
func (h *Hub) Subscribe() (<-chan []model.Appointment, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan []model.Appointment, 1)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Run consumes change signals until ctx ends. Call it once from main.
func (h *Hub) Run(ctx context.Context) {
	var redisCh <-chan *redis.Message
	if h.rdb != nil {
		sub := h.rdb.Subscribe(ctx, h.channel)
		defer sub.Close()
		redisCh = sub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.kick:
		case _, ok := <-redisCh:
			if !ok {
				redisCh = nil
				continue
			}
		}
		h.broadcast(ctx)
	}
}

func (h *Hub) broadcast(ctx context.Context) {
	snapshot, err := h.load(ctx)
	if err != nil {
		h.logger.Error("snapshot load failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		// Drop the stale pending snapshot, if any, then deliver.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
