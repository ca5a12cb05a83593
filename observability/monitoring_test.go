package observability

import (
	"board-lab/domain"
	"board-lab/domain/event"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Consume(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	// Given a room lifecycle with some drawing activity
	events := []event.DomainEvent{
		event.RoomOpened{Room: "r1"},
		event.ParticipantJoined{Room: "r1", Participant: "p1"},
		event.ParticipantJoined{Room: "r1", Participant: "p2"},
		event.SegmentDrawn{Room: "r1", Participant: "p1"},
		event.SegmentDrawn{Room: "r1", Participant: "p1"},
		event.StrokeClosed{Room: "r1", Stroke: domain.Stroke{ID: "s1"}},
		event.UndoApplied{Room: "r1", Participant: "p1"},
		event.RedoApplied{Room: "r1", Participant: "p1"},
		event.ParticipantLeft{Room: "r1", Participant: "p2"},
		event.ColorAssigned{Room: "r1", Participant: "p1"},
	}

	// When every event is consumed
	for _, e := range events {
		req.NoError(mm.Consume(ctx, e))
	}
	mm.IncrDroppedDeliveries()

	// Then counters reflect the activity
	stats := mm.GetLatest()
	req.Equal(int64(1), stats.ActiveRooms)
	req.Equal(int64(1), stats.ActiveParticipants)
	req.Equal(uint64(1), stats.RoomsOpened)
	req.Equal(uint64(2), stats.SegmentsRelayed)
	req.Equal(uint64(1), stats.StrokesClosed)
	req.Equal(uint64(1), stats.Undos)
	req.Equal(uint64(1), stats.Redos)
	req.Equal(uint64(1), stats.DroppedDeliveries)

	// When the room is reclaimed
	req.NoError(mm.Consume(ctx, event.RoomReclaimed{Room: "r1"}))

	// Then no room is active anymore
	stats = mm.GetLatest()
	req.Equal(int64(0), stats.ActiveRooms)
	req.Equal(uint64(1), stats.RoomsReclaimed)
}

func TestMonitoringManager_UpdateProcess(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))

	mm.UpdateProcess(4096, 12.5)

	stats := mm.GetLatest()
	req.Equal(uint64(4096), stats.RssBytes)
	req.Equal(12.5, stats.CpuPercent)
	req.False(stats.SampledAt.IsZero())
}
