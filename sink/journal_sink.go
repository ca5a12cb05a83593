package sink

import (
	"board-lab/contract"
	"board-lab/domain/event"
	"board-lab/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"
)

var _ contract.EventSink = JournalSink{}

// JournalSink records the activity of live rooms.
// The journal of a room disappears with the room.
type JournalSink struct {
	repository repositories.IJournalRepository
	log        *slog.Logger
}

func NewJournalSink(repository repositories.IJournalRepository, log *slog.Logger) JournalSink {
	return JournalSink{repository: repository, log: log}
}

func (j JournalSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.RoomOpened:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.RoomOpened, At: evt.At,
		})
	case event.ParticipantJoined:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.ParticipantJoined,
			Participant: evt.Participant, Color: evt.Color, At: evt.At,
		})
	case event.ParticipantLeft:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.ParticipantLeft, Participant: evt.Participant, At: evt.At,
		})
	case event.StrokeClosed:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.StrokeClosed, Participant: evt.Stroke.Author,
			StrokeID: evt.Stroke.ID, Segments: len(evt.Stroke.Segments), At: evt.At,
		})
	case event.UndoApplied:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.StrokeUndone, Participant: evt.Participant,
			StrokeID: evt.Stroke.ID, Segments: len(evt.Stroke.Segments), At: time.Now().UTC(),
		})
	case event.RedoApplied:
		return j.repository.Append(repositories.JournalEntry{
			Room: evt.Room, Kind: repositories.StrokeRedone, Participant: evt.Participant,
			StrokeID: evt.Stroke.ID, Segments: len(evt.Stroke.Segments), At: time.Now().UTC(),
		})
	case event.RoomReclaimed:
		j.log.Debug("Dropping room journal", "room_id", evt.Room)
		return j.repository.DropRoom(evt.Room)
	default:
		j.log.Debug(fmt.Sprintf("Not journaled event : %T", evt))
		return nil
	}
}
