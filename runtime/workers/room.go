package workers

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/ksuid"
)

// Ensure *RoomWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*RoomWorker)(nil)

// RoomWorker owns one shard of rooms. Every command of a room is routed to the
// same worker, so a room is never mutated by two goroutines.
type RoomWorker struct {
	name          string
	rooms         contract.IRoomRegistry
	registry      contract.IRegistry
	broadcaster   contract.IBroadcaster
	commands      <-chan domain.Command
	replayHistory bool
	log           *slog.Logger
	now           func() time.Time
	newStrokeID   func() domain.StrokeID
}

func NewRoomWorker(
	name string,
	rooms contract.IRoomRegistry,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	commands <-chan domain.Command,
	replayHistory bool,
	log *slog.Logger) *RoomWorker {
	return &RoomWorker{
		name:          name,
		rooms:         rooms,
		registry:      registry,
		broadcaster:   broadcaster,
		commands:      commands,
		replayHistory: replayHistory,
		log:           log.With("worker", name),
		now:           func() time.Time { return time.Now().UTC() },
		newStrokeID:   func() domain.StrokeID { return domain.StrokeID(ksuid.New().String()) },
	}
}

func (w *RoomWorker) Name() string { return w.name }

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Handle(ctx, cmd)
		}
	}
}

// Handle applies one command. Stale or malformed commands degrade to a no-op.
func (w *RoomWorker) Handle(ctx context.Context, cmd domain.Command) {
	var err error
	switch c := cmd.(type) {
	case domain.JoinCommand:
		err = w.join(ctx, c)
	case domain.BeginStrokeCommand:
		err = w.beginStroke(ctx, c)
	case domain.DrawSegmentCommand:
		err = w.drawSegment(ctx, c)
	case domain.EndStrokeCommand:
		err = w.endStroke(ctx, c)
	case domain.UndoCommand:
		err = w.undo(ctx, c)
	case domain.RedoCommand:
		err = w.redo(ctx, c)
	case domain.LeaveCommand:
		err = w.leave(ctx, c)
	case domain.SnapshotQuery:
		w.snapshot(c)
	default:
		err = fmt.Errorf("unexpected command %T", cmd)
	}
	if err != nil {
		w.log.Debug("Command dropped",
			"command", fmt.Sprintf("%T", cmd),
			"room_id", cmd.RoomID(),
			"participant_id", cmd.Actor(),
			"error", err)
	}
}

func (w *RoomWorker) join(ctx context.Context, c domain.JoinCommand) error {
	room, created := w.rooms.GetOrCreate(c.Room)
	if created {
		if err := w.broadcaster.Publish(ctx, event.RoomOpened{Room: c.Room, At: w.now()}); err != nil {
			return err
		}
	}

	participant := domain.Participant{ID: c.Participant, Color: domain.PickColor(), JoinedAt: c.At}
	if err := room.Join(participant); err != nil {
		return err
	}
	w.registry.Subscribe(c.Participant, c.Room)

	if err := w.broadcaster.SendToParticipant(ctx, c.Participant, event.ColorAssigned{
		Room: c.Room, Participant: c.Participant, Color: participant.Color,
	}); err != nil {
		return err
	}
	if w.replayHistory {
		if err := w.broadcaster.SendToParticipant(ctx, c.Participant, event.HistoryReplayed{
			Room: c.Room, Participant: c.Participant, Histories: room.Histories(),
		}); err != nil {
			return err
		}
	}
	return w.broadcaster.Publish(ctx, event.ParticipantJoined{
		Room: c.Room, Participant: c.Participant, Color: participant.Color, At: w.now(),
	})
}

func (w *RoomWorker) beginStroke(ctx context.Context, c domain.BeginStrokeCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	closed, err := room.BeginStroke(c.Participant, w.newStrokeID(), c.At)
	if err != nil {
		return err
	}
	if closed != nil {
		return w.broadcaster.Publish(ctx, event.StrokeClosed{Room: c.Room, Stroke: *closed, At: w.now()})
	}
	return nil
}

func (w *RoomWorker) drawSegment(ctx context.Context, c domain.DrawSegmentCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	if err = room.AppendSegment(c.Participant, c.Segment); err != nil {
		return err
	}
	return w.broadcaster.SendToRoomExcept(ctx, c.Room, c.Participant, event.SegmentDrawn{
		Room: c.Room, Participant: c.Participant, Segment: c.Segment,
	})
}

func (w *RoomWorker) endStroke(ctx context.Context, c domain.EndStrokeCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	stroke, closed, err := room.EndStroke(c.Participant)
	if err != nil || !closed {
		return err
	}
	return w.broadcaster.Publish(ctx, event.StrokeClosed{Room: c.Room, Stroke: stroke, At: w.now()})
}

func (w *RoomWorker) undo(ctx context.Context, c domain.UndoCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	stroke, ok, err := room.Undo(c.Participant)
	if err != nil || !ok {
		return err
	}
	return w.broadcaster.SendToRoom(ctx, c.Room, event.UndoApplied{
		Room: c.Room, Participant: c.Participant, Stroke: stroke,
	})
}

func (w *RoomWorker) redo(ctx context.Context, c domain.RedoCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	stroke, ok, err := room.Redo(c.Participant)
	if err != nil || !ok {
		return err
	}
	return w.broadcaster.SendToRoom(ctx, c.Room, event.RedoApplied{
		Room: c.Room, Participant: c.Participant, Stroke: stroke,
	})
}

func (w *RoomWorker) leave(ctx context.Context, c domain.LeaveCommand) error {
	room, err := w.room(c.Room)
	if err != nil {
		return err
	}
	if !room.Leave(c.Participant) {
		return nil
	}
	w.registry.Unsubscribe(c.Participant, c.Room)
	if err = w.broadcaster.Publish(ctx, event.ParticipantLeft{
		Room: c.Room, Participant: c.Participant, At: w.now(),
	}); err != nil {
		return err
	}
	if w.rooms.RemoveIfEmpty(c.Room) {
		w.log.Debug("Room reclaimed", "room_id", c.Room)
		return w.broadcaster.Publish(ctx, event.RoomReclaimed{Room: c.Room, At: w.now()})
	}
	return nil
}

func (w *RoomWorker) snapshot(q domain.SnapshotQuery) {
	snapshot := domain.RoomSnapshot{ID: q.Room}
	if room, ok := w.rooms.Get(q.Room); ok {
		snapshot = room.Snapshot()
	}
	select {
	case q.Reply <- snapshot:
	default:
		w.log.Warn("Snapshot reply dropped", "room_id", q.Room)
	}
}

func (w *RoomWorker) room(roomID domain.RoomID) (*domain.Room, error) {
	room, ok := w.rooms.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomID, errors.ErrUnknownRoom)
	}
	return room, nil
}
