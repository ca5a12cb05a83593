package workers

import (
	"board-lab/contract"
	"board-lab/observability"
	"context"
	"log/slog"
	"reflect"
	"time"
)

var _ contract.Worker = (*ChannelCapacityWorker)(nil)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length and capacity of the
// shard and delivery queues. Reading len and cap of a channel never blocks.
type ChannelCapacityWorker struct {
	log        *slog.Logger
	channels   []NamedChannel
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	monitoring *observability.MonitoringManager, interval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:        log,
		channels:   channels,
		monitoring: monitoring,
		interval:   interval,
	}
}

func (w *ChannelCapacityWorker) Name() string { return "channel-capacity" }

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping queue sampling")
			return ctx.Err()
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *ChannelCapacityWorker) sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		w.monitoring.UpdateQueue(nc.Name, v.Len(), v.Cap())
	}
}
