// Package runtime routes commands to room workers and events to connections.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/errors"
	"board-lab/observability"
	"board-lab/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var _ contract.IDispatcher = (*Orchestrator)(nil)

type Settings struct {
	NumWorkers    int
	BufferSize    int
	SinkTimeout   time.Duration
	ReplayHistory bool
	StatsInterval time.Duration
}

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	settings       Settings
	supervisor     contract.ISupervisor
	registry       *Registry
	rooms          *RoomRegistry
	monitoring     *observability.MonitoringManager
	permanentSinks []contract.EventSink
	shards         []chan domain.Command
	deliveries     chan event.Delivery
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, rooms *RoomRegistry, monitoring *observability.MonitoringManager,
	settings Settings) *Orchestrator {
	if settings.NumWorkers < 1 {
		settings.NumWorkers = 1
	}
	shards := make([]chan domain.Command, settings.NumWorkers)
	for i := range shards {
		shards[i] = make(chan domain.Command, settings.BufferSize)
	}
	return &Orchestrator{
		log:        log,
		settings:   settings,
		supervisor: supervisor,
		registry:   registry,
		rooms:      rooms,
		monitoring: monitoring,
		shards:     shards,
		deliveries: make(chan event.Delivery, settings.BufferSize),
	}
}

// Add registers permanent sinks receiving every event. It must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Dispatch queues a command on the shard owning its room.
// It blocks while the shard is full, until ctx is done.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd domain.Command) error {
	select {
	case o.shardFor(cmd.RoomID()) <- cmd:
		return nil
	case <-ctx.Done():
		o.log.Warn("Command not queued", "room_id", cmd.RoomID(), "participant_id", cmd.Actor(), "error", ctx.Err())
		return fmt.Errorf("%w: %v", errors.ErrDispatchCanceled, ctx.Err())
	}
}

// Connect attaches the outbound sink of a new connection and returns its session.
func (o *Orchestrator) Connect(participantID domain.ParticipantID, sink contract.EventSink) *Session {
	o.registry.Attach(participantID, sink)
	o.log.Debug("Participant connected", "participant_id", participantID)
	return NewSession(participantID, o, o.log)
}

// Disconnect leaves the current room of the session, then forgets its sink.
func (o *Orchestrator) Disconnect(ctx context.Context, session *Session) error {
	defer o.registry.Detach(session.ID())
	o.log.Debug("Participant disconnected", "participant_id", session.ID())
	return session.Close(ctx)
}

// Snapshot reads the state of a room from the worker owning it.
func (o *Orchestrator) Snapshot(ctx context.Context, roomID domain.RoomID) (domain.RoomSnapshot, error) {
	reply := make(chan domain.RoomSnapshot, 1)
	query := domain.SnapshotQuery{Envelope: domain.Envelope{Room: roomID}, Reply: reply}
	if err := o.Dispatch(ctx, query); err != nil {
		return domain.RoomSnapshot{}, err
	}
	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-ctx.Done():
		return domain.RoomSnapshot{}, fmt.Errorf("%w: %v", errors.ErrDispatchCanceled, ctx.Err())
	}
}

// Rooms lists the live rooms.
func (o *Orchestrator) Rooms() []domain.RoomID {
	return o.rooms.IDs()
}

// Start registers every worker to the supervisor and runs it.
// It blocks until the supervisor stopped.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	broadcaster := NewBroadcaster(o.registry, o.deliveries)
	queues := []workers.NamedChannel{{Name: "deliveries", Channel: o.deliveries}}
	for i, shard := range o.shards {
		name := fmt.Sprintf("room-worker-%d", i)
		queues = append(queues, workers.NamedChannel{Name: name, Channel: shard})
		o.supervisor.Add(workers.NewRoomWorker(
			name,
			o.rooms, o.registry, broadcaster, shard,
			o.settings.ReplayHistory, o.log,
		))
	}
	fanout := workers.NewEventFanout(o.log, o.registry, o.deliveries, o.settings.SinkTimeout, o.monitoring).
		Add(o.permanentSinks...)
	o.supervisor.Add(fanout)
	if o.monitoring != nil && o.settings.StatsInterval > 0 {
		o.supervisor.Add(
			workers.NewStatsWorker(o.log, o.settings.StatsInterval, o.monitoring),
			workers.NewChannelCapacityWorker(o.log, queues, o.monitoring, o.settings.StatsInterval),
		)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "room_workers", len(o.shards))
	o.supervisor.Run(ctx)
}

// Stop cancels every supervised worker.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) shardFor(roomID domain.RoomID) chan domain.Command {
	return o.shards[xxhash.Sum64String(string(roomID))%uint64(len(o.shards))]
}
