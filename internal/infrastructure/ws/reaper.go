package ws

import (
	"context"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/events"
	"github.com/hilthontt/relay/internal/infrastructure/logging"
	"github.com/hilthontt/relay/internal/infrastructure/metrics"
)

// Reaper evicts rooms that have sat empty past the expiry. Eviction is
// in-memory only; the durable Room survives and a later join or
// reconnect reactivates it.
type Reaper struct {
	registry  *Registry
	expiry    time.Duration
	publisher *events.RoomPublisher
	metrics   *metrics.Metrics
	logger    logging.Logger
}

func NewReaper(
	registry *Registry,
	expiry time.Duration,
	publisher *events.RoomPublisher,
	m *metrics.Metrics,
	logger logging.Logger,
) *Reaper {
	return &Reaper{
		registry:  registry,
		expiry:    expiry,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	interval := r.expiry / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	reaped := r.registry.ReapIdle(r.expiry)
	if len(reaped) == 0 {
		return
	}

	for _, roomID := range reaped {
		if err := r.publisher.PublishRoomReaped(ctx, domain.Room{RoomID: roomID}); err != nil {
			r.logger.Warn(logging.RabbitMQ, logging.ExternalService, "reap publish failed", map[logging.ExtraKey]any{
				logging.RoomID:       roomID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	if r.metrics != nil {
		r.metrics.ActiveRooms.Set(float64(r.registry.Len()))
	}

	r.logger.Info(logging.Relay, logging.Reaper, "evicted idle rooms", map[logging.ExtraKey]any{
		"count": len(reaped),
	})
}
