package runtime

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/errors"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session is the transport independent side of one connection.
// Submissions are serialized by the session mutex, which keeps the events of one
// participant in the order the transport delivered them.
type Session struct {
	mu         sync.Mutex
	id         domain.ParticipantID
	room       domain.RoomID
	closed     bool
	dispatcher contract.IDispatcher
	log        *slog.Logger
}

func NewSession(id domain.ParticipantID, dispatcher contract.IDispatcher, log *slog.Logger) *Session {
	return &Session{id: id, dispatcher: dispatcher, log: log}
}

func (s *Session) ID() domain.ParticipantID { return s.id }

// RoomID returns the current room, empty before the first join.
func (s *Session) RoomID() domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Join enters a room, leaving the current one first. Joining the current room again is a no-op.
func (s *Session) Join(ctx context.Context, roomID domain.RoomID) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSessionClosed
	}
	if s.room == roomID {
		return nil
	}
	if s.room != "" {
		if err := s.leaveLocked(ctx); err != nil {
			return err
		}
	}
	cmd := domain.JoinCommand{Envelope: s.envelope(roomID), At: time.Now().UTC()}
	if err := s.dispatcher.Dispatch(ctx, cmd); err != nil {
		return err
	}
	s.room = roomID
	s.log.Debug("Participant joined", "participant_id", s.id, "room_id", roomID)
	return nil
}

func (s *Session) BeginStroke(ctx context.Context) error {
	return s.submit(ctx, func(env domain.Envelope) domain.Command {
		return domain.BeginStrokeCommand{Envelope: env, At: time.Now().UTC()}
	})
}

func (s *Session) Draw(ctx context.Context, segment domain.Segment) error {
	if err := domain.ValidateSegment(segment); err != nil {
		return err
	}
	return s.submit(ctx, func(env domain.Envelope) domain.Command {
		return domain.DrawSegmentCommand{Envelope: env, Segment: segment}
	})
}

func (s *Session) EndStroke(ctx context.Context) error {
	return s.submit(ctx, func(env domain.Envelope) domain.Command {
		return domain.EndStrokeCommand{Envelope: env}
	})
}

func (s *Session) Undo(ctx context.Context) error {
	return s.submit(ctx, func(env domain.Envelope) domain.Command {
		return domain.UndoCommand{Envelope: env}
	})
}

func (s *Session) Redo(ctx context.Context) error {
	return s.submit(ctx, func(env domain.Envelope) domain.Command {
		return domain.RedoCommand{Envelope: env}
	})
}

// Leave exits the current room. Without a room it does nothing.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(ctx)
}

// Close is called on disconnect. The participant leaves its room at most once,
// whatever the number of calls and whether Leave already ran.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.leaveLocked(ctx)
}

func (s *Session) leaveLocked(ctx context.Context) error {
	if s.room == "" {
		return nil
	}
	room := s.room
	s.room = ""
	return s.dispatcher.Dispatch(ctx, domain.LeaveCommand{Envelope: s.envelope(room)})
}

func (s *Session) submit(ctx context.Context, build func(env domain.Envelope) domain.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSessionClosed
	}
	if s.room == "" {
		return errors.ErrNotJoined
	}
	return s.dispatcher.Dispatch(ctx, build(s.envelope(s.room)))
}

func (s *Session) envelope(roomID domain.RoomID) domain.Envelope {
	return domain.Envelope{Room: roomID, Participant: s.id}
}
