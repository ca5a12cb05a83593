package workers

import (
	"board-lab/contract"
	"board-lab/domain/event"
	"board-lab/observability"
	"context"
	"fmt"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout drains the delivery queue and hands every event to its recipients
// and to the permanent sinks (journal, monitoring).
//
// Deliveries are processed one at a time, so a participant receives the events
// in the order the room workers queued them. Delivery is best effort: a sink
// that fails or exceeds the sink timeout loses the event.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	deliveries  <-chan event.Delivery
	sinks       []contract.EventSink
	sinkTimeout time.Duration
	monitoring  *observability.MonitoringManager
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IRegistry,
	deliveries <-chan event.Delivery,
	sinkTimeout time.Duration,
	monitoring *observability.MonitoringManager) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		deliveries:  deliveries,
		sinkTimeout: sinkTimeout,
		monitoring:  monitoring,
	}
}

// Add registers permanent sinks. It must be called before Run.
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Name() string { return "event-fanout" }

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case d, ok := <-w.deliveries:
			if !ok {
				w.log.Debug("Delivery channel is closed")
				return nil
			}
			w.Fanout(ctx, d)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping deliveries")
			return nil
		}
	}
}

// Fanout One sink for each recipient, then every permanent sink
func (w *EventFanout) Fanout(ctx context.Context, d event.Delivery) {
	for _, id := range d.Recipients {
		sink, ok := w.registry.GetSink(id)
		if !ok {
			// Disconnected between the send and the delivery
			continue
		}
		if err := w.consume(ctx, sink, d.Event); err != nil {
			w.dropped()
			w.log.Debug("Delivery lost", "participant_id", id, "event", fmt.Sprintf("%T", d.Event), "error", err)
		}
	}
	for _, sink := range w.sinks {
		if err := w.consume(ctx, sink, d.Event); err != nil {
			w.log.Warn("Permanent sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) error {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	return sink.Consume(sinkCtx, e)
}

func (w *EventFanout) dropped() {
	if w.monitoring != nil {
		w.monitoring.IncrDroppedDeliveries()
	}
}
