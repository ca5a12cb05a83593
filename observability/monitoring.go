package observability

import (
	"board-lab/contract"
	"board-lab/domain/event"
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var _ contract.EventSink = (*MonitoringManager)(nil)

// MonitoringStats aggregates every metric exposed on the debug server
type MonitoringStats struct {
	// --- BOARD METRICS ---
	ActiveRooms        int64  `json:"active_rooms"`
	ActiveParticipants int64  `json:"active_participants"`
	RoomsOpened        uint64 `json:"rooms_opened"`
	RoomsReclaimed     uint64 `json:"rooms_reclaimed"`
	SegmentsRelayed    uint64 `json:"segments_relayed"`
	StrokesClosed      uint64 `json:"strokes_closed"`
	Undos              uint64 `json:"undos"`
	Redos              uint64 `json:"redos"`
	DroppedDeliveries  uint64 `json:"dropped_deliveries"`

	// --- PROCESS METRICS ---
	RssBytes   uint64  `json:"rss_bytes"`
	CpuPercent float64 `json:"cpu_percent"`

	// --- QUEUES ---
	Queues map[string]QueueDepth `json:"queues"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	SampledAt  time.Time `json:"sampled_at"`
}

type QueueDepth struct {
	Length   int `json:"length"`
	Capacity int `json:"capacity"`
}

// MonitoringManager counts board activity.
// It is plugged as a permanent sink, so it sees every delivered event.
type MonitoringManager struct {
	log *slog.Logger
	mu  sync.RWMutex

	activeRooms        atomic.Int64
	activeParticipants atomic.Int64
	roomsOpened        atomic.Uint64
	roomsReclaimed     atomic.Uint64
	segmentsRelayed    atomic.Uint64
	strokesClosed      atomic.Uint64
	undos              atomic.Uint64
	redos              atomic.Uint64
	droppedDeliveries  atomic.Uint64

	rssBytes   uint64
	cpuPercent float64
	sampledAt  time.Time
	queues     map[string]QueueDepth
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, queues: make(map[string]QueueDepth)}
}

func (mm *MonitoringManager) Consume(_ context.Context, e event.DomainEvent) error {
	switch e.(type) {
	case event.RoomOpened:
		mm.roomsOpened.Add(1)
		mm.activeRooms.Add(1)
	case event.RoomReclaimed:
		mm.roomsReclaimed.Add(1)
		mm.activeRooms.Add(-1)
	case event.ParticipantJoined:
		mm.activeParticipants.Add(1)
	case event.ParticipantLeft:
		mm.activeParticipants.Add(-1)
	case event.SegmentDrawn:
		mm.segmentsRelayed.Add(1)
	case event.StrokeClosed:
		mm.strokesClosed.Add(1)
	case event.UndoApplied:
		mm.undos.Add(1)
	case event.RedoApplied:
		mm.redos.Add(1)
	}
	return nil
}

func (mm *MonitoringManager) IncrDroppedDeliveries() {
	mm.droppedDeliveries.Add(1)
}

// UpdateProcess stores the latest process sample.
func (mm *MonitoringManager) UpdateProcess(rss uint64, cpu float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.rssBytes = rss
	mm.cpuPercent = cpu
	mm.sampledAt = time.Now().UTC()
	mm.log.Debug("Process stats updated", "rss_bytes", rss, "cpu_percent", cpu)
}

func (mm *MonitoringManager) UpdateQueue(name string, length, capacity int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.queues[name] = QueueDepth{Length: length, Capacity: capacity}
	if capacity > 0 && length == capacity {
		mm.log.Warn("Queue is full", "queue", name, "capacity", capacity)
	}
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.mu.RLock()
	defer mm.mu.RUnlock()
	queues := make(map[string]QueueDepth, len(mm.queues))
	for name, depth := range mm.queues {
		queues[name] = depth
	}
	return MonitoringStats{
		ActiveRooms:        mm.activeRooms.Load(),
		ActiveParticipants: mm.activeParticipants.Load(),
		RoomsOpened:        mm.roomsOpened.Load(),
		RoomsReclaimed:     mm.roomsReclaimed.Load(),
		SegmentsRelayed:    mm.segmentsRelayed.Load(),
		StrokesClosed:      mm.strokesClosed.Load(),
		Undos:              mm.undos.Load(),
		Redos:              mm.redos.Load(),
		DroppedDeliveries:  mm.droppedDeliveries.Load(),
		RssBytes:           mm.rssBytes,
		CpuPercent:         mm.cpuPercent,
		Queues:             queues,
		AllocMemMb:         m.Alloc / 1024 / 1024,
		NumGC:              m.NumGC,
		SampledAt:          mm.sampledAt,
	}
}
