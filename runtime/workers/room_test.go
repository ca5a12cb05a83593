package workers

import (
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type roomWorkerFixture struct {
	worker      *RoomWorker
	rooms       *mocks.MockIRoomRegistry
	registry    *mocks.MockIRegistry
	broadcaster *mocks.MockIBroadcaster
}

func newRoomWorkerFixture(t *testing.T, replay bool) roomWorkerFixture {
	ctrl := gomock.NewController(t)
	f := roomWorkerFixture{
		rooms:       mocks.NewMockIRoomRegistry(ctrl),
		registry:    mocks.NewMockIRegistry(ctrl),
		broadcaster: mocks.NewMockIBroadcaster(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f.worker = NewRoomWorker("room-worker-0", f.rooms, f.registry, f.broadcaster, nil, replay, log)
	next := 0
	f.worker.newStrokeID = func() domain.StrokeID {
		next++
		return domain.StrokeID("stroke-" + string(rune('0'+next)))
	}
	return f
}

func envelope(room, participant string) domain.Envelope {
	return domain.Envelope{Room: domain.RoomID(room), Participant: domain.ParticipantID(participant)}
}

func joinedRoom(t *testing.T, ids ...domain.ParticipantID) *domain.Room {
	room := domain.NewRoom("r1")
	for i, id := range ids {
		require.NoError(t, room.Join(domain.Participant{
			ID: id, Color: "#e74c3c", RoomID: "r1", JoinedAt: time.Unix(int64(i), 0),
		}))
	}
	return room
}

func TestRoomWorker_Join_CreatesRoomAndAssignsColor(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := domain.NewRoom("r1")

	// Given a room that does not exist yet
	f.rooms.EXPECT().GetOrCreate(domain.RoomID("r1")).Return(room, true)
	f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.RoomOpened{})).Return(nil)
	f.registry.EXPECT().Subscribe(domain.ParticipantID("p1"), domain.RoomID("r1"))

	var assigned event.ColorAssigned
	f.broadcaster.EXPECT().
		SendToParticipant(ctx, domain.ParticipantID("p1"), gomock.AssignableToTypeOf(event.ColorAssigned{})).
		DoAndReturn(func(_ context.Context, _ domain.ParticipantID, e event.DomainEvent) error {
			assigned = e.(event.ColorAssigned)
			return nil
		})
	f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.ParticipantJoined{})).Return(nil)

	// When p1 joins
	f.worker.Handle(ctx, domain.JoinCommand{Envelope: envelope("r1", "p1"), At: time.Now()})

	// Then p1 is a member and received a palette color
	req.True(room.IsMember("p1"))
	req.Contains(domain.Palette, assigned.Color)
	participant, ok := room.Participant("p1")
	req.True(ok)
	req.Equal(assigned.Color, participant.Color)
}

func TestRoomWorker_Join_ReplaysHistory(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, true)
	ctx := context.Background()

	// Given a room where p1 already drew one stroke
	room := joinedRoom(t, "p1")
	_, err := room.BeginStroke("p1", "s1", time.Now())
	req.NoError(err)
	req.NoError(room.AppendSegment("p1", domain.Segment{X1: 1, Y1: 1, Color: "#000", Width: 2}))
	_, _, err = room.EndStroke("p1")
	req.NoError(err)

	f.rooms.EXPECT().GetOrCreate(domain.RoomID("r1")).Return(room, false)
	f.registry.EXPECT().Subscribe(domain.ParticipantID("p2"), domain.RoomID("r1"))
	gomock.InOrder(
		f.broadcaster.EXPECT().
			SendToParticipant(ctx, domain.ParticipantID("p2"), gomock.AssignableToTypeOf(event.ColorAssigned{})).
			Return(nil),
		f.broadcaster.EXPECT().
			SendToParticipant(ctx, domain.ParticipantID("p2"), gomock.AssignableToTypeOf(event.HistoryReplayed{})).
			DoAndReturn(func(_ context.Context, _ domain.ParticipantID, e event.DomainEvent) error {
				replayed := e.(event.HistoryReplayed)
				req.Len(replayed.Histories, 1)
				req.Equal(domain.ParticipantID("p1"), replayed.Histories[0].Participant)
				return nil
			}),
	)
	f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.ParticipantJoined{})).Return(nil)

	// When p2 joins the existing room
	f.worker.Handle(ctx, domain.JoinCommand{Envelope: envelope("r1", "p2"), At: time.Now()})

	// Then p2 is a member
	req.True(room.IsMember("p2"))
}

func TestRoomWorker_DrawSegment_RelaysToOthers(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1", "p2")
	seg := domain.Segment{X0: 0, Y0: 0, X1: 10, Y1: 10, Color: "#3498db", Width: 3}

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true).Times(2)
	f.broadcaster.EXPECT().SendToRoomExcept(ctx, domain.RoomID("r1"), domain.ParticipantID("p1"), event.SegmentDrawn{
		Room: "r1", Participant: "p1", Segment: seg,
	}).Return(nil).Times(1)

	// Given p1 began a stroke
	f.worker.Handle(ctx, domain.BeginStrokeCommand{Envelope: envelope("r1", "p1"), At: time.Now()})

	// When p1 draws a segment
	f.worker.Handle(ctx, domain.DrawSegmentCommand{Envelope: envelope("r1", "p1"), Segment: seg})

	// Then the segment is relayed to everyone except p1 and kept in the open stroke
	req.True(room.IsDrawing("p1"))
}

func TestRoomWorker_DrawSegment_WithoutStrokeIsDropped(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1", "p2")

	// Given p1 has no open stroke
	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true)

	// When p1 draws a segment, then nothing is broadcast
	f.worker.Handle(ctx, domain.DrawSegmentCommand{
		Envelope: envelope("r1", "p1"),
		Segment:  domain.Segment{X1: 1, Color: "#000", Width: 1},
	})
	req.Empty(room.History("p1"))
}

func TestRoomWorker_UndoRedo_BroadcastToWholeRoom(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1", "p2")

	_, err := room.BeginStroke("p1", "s1", time.Now())
	req.NoError(err)
	req.NoError(room.AppendSegment("p1", domain.Segment{X1: 1, Color: "#000", Width: 1}))
	stroke, closed, err := room.EndStroke("p1")
	req.NoError(err)
	req.True(closed)

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true).AnyTimes()
	gomock.InOrder(
		f.broadcaster.EXPECT().SendToRoom(ctx, domain.RoomID("r1"), event.UndoApplied{
			Room: "r1", Participant: "p1", Stroke: stroke,
		}).Return(nil),
		f.broadcaster.EXPECT().SendToRoom(ctx, domain.RoomID("r1"), event.RedoApplied{
			Room: "r1", Participant: "p1", Stroke: stroke,
		}).Return(nil),
	)

	// When p1 undoes, undoes again on an empty history, then redoes
	f.worker.Handle(ctx, domain.UndoCommand{Envelope: envelope("r1", "p1")})
	f.worker.Handle(ctx, domain.UndoCommand{Envelope: envelope("r1", "p1")})
	f.worker.Handle(ctx, domain.RedoCommand{Envelope: envelope("r1", "p1")})

	// Then only the effective operations were broadcast and the stroke is back
	req.Len(room.History("p1"), 1)
	req.Empty(room.RedoStack("p1"))
}

func TestRoomWorker_EndStroke_PublishesClosedStroke(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1")

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true).AnyTimes()
	f.broadcaster.EXPECT().SendToRoomExcept(ctx, domain.RoomID("r1"), domain.ParticipantID("p1"), gomock.Any()).Return(nil)
	f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.StrokeClosed{})).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			req.Len(e.(event.StrokeClosed).Stroke.Segments, 1)
			return nil
		}).Times(1)

	// Given a stroke with one segment
	f.worker.Handle(ctx, domain.BeginStrokeCommand{Envelope: envelope("r1", "p1"), At: time.Now()})
	f.worker.Handle(ctx, domain.DrawSegmentCommand{
		Envelope: envelope("r1", "p1"),
		Segment:  domain.Segment{X1: 1, Color: "#000", Width: 1},
	})

	// When the stroke is ended twice
	f.worker.Handle(ctx, domain.EndStrokeCommand{Envelope: envelope("r1", "p1")})
	f.worker.Handle(ctx, domain.EndStrokeCommand{Envelope: envelope("r1", "p1")})

	// Then it is closed exactly once
	req.Len(room.History("p1"), 1)
}

func TestRoomWorker_Leave_ReclaimsEmptyRoom(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1")

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true).Times(2)
	f.registry.EXPECT().Unsubscribe(domain.ParticipantID("p1"), domain.RoomID("r1")).Times(1)
	f.rooms.EXPECT().RemoveIfEmpty(domain.RoomID("r1")).Return(true).Times(1)
	gomock.InOrder(
		f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.ParticipantLeft{})).Return(nil),
		f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.RoomReclaimed{})).Return(nil),
	)

	// When the last participant leaves twice
	f.worker.Handle(ctx, domain.LeaveCommand{Envelope: envelope("r1", "p1")})
	f.worker.Handle(ctx, domain.LeaveCommand{Envelope: envelope("r1", "p1")})

	// Then the room was reclaimed once
	req.True(room.IsEmpty())
}

func TestRoomWorker_Leave_KeepsOccupiedRoom(t *testing.T) {
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()
	room := joinedRoom(t, "p1", "p2")

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true)
	f.registry.EXPECT().Unsubscribe(domain.ParticipantID("p1"), domain.RoomID("r1"))
	f.rooms.EXPECT().RemoveIfEmpty(domain.RoomID("r1")).Return(false)
	f.broadcaster.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(event.ParticipantLeft{})).Return(nil).Times(1)

	// When one of two participants leaves, then no reclaim is published
	f.worker.Handle(ctx, domain.LeaveCommand{Envelope: envelope("r1", "p1")})
}

func TestRoomWorker_UnknownRoomIsNoop(t *testing.T) {
	f := newRoomWorkerFixture(t, false)
	ctx := context.Background()

	// Given a room that no longer exists
	f.rooms.EXPECT().Get(domain.RoomID("gone")).Return(nil, false).Times(3)

	// When stale commands arrive, then nothing is broadcast
	f.worker.Handle(ctx, domain.UndoCommand{Envelope: envelope("gone", "p1")})
	f.worker.Handle(ctx, domain.DrawSegmentCommand{Envelope: envelope("gone", "p1")})
	f.worker.Handle(ctx, domain.LeaveCommand{Envelope: envelope("gone", "p1")})
}

func TestRoomWorker_Snapshot(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	room := joinedRoom(t, "p1")

	f.rooms.EXPECT().Get(domain.RoomID("r1")).Return(room, true)
	f.rooms.EXPECT().Get(domain.RoomID("r2")).Return(nil, false)

	reply := make(chan domain.RoomSnapshot, 1)
	f.worker.Handle(context.Background(), domain.SnapshotQuery{Envelope: envelope("r1", ""), Reply: reply})
	snapshot := <-reply
	req.True(snapshot.Exists)
	req.Len(snapshot.Participants, 1)

	f.worker.Handle(context.Background(), domain.SnapshotQuery{Envelope: envelope("r2", ""), Reply: reply})
	snapshot = <-reply
	req.False(snapshot.Exists)
	req.Equal(domain.RoomID("r2"), snapshot.ID)
}

func TestRoomWorker_Run_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	f := newRoomWorkerFixture(t, false)
	commands := make(chan domain.Command)
	f.worker.commands = commands

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("Worker did not stop")
	}
}
