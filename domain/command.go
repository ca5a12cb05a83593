package domain

import (
	"time"
)

// Command is the closed set of requests a room worker accepts.
// Only types of this package can implement it.
type Command interface {
	RoomID() RoomID
	Actor() ParticipantID
	command()
}

// Envelope carries the routing part shared by every command.
type Envelope struct {
	Room        RoomID
	Participant ParticipantID
}

func (e Envelope) RoomID() RoomID       { return e.Room }
func (e Envelope) Actor() ParticipantID { return e.Participant }
func (e Envelope) command()             {}

type JoinCommand struct {
	Envelope
	At time.Time
}

type BeginStrokeCommand struct {
	Envelope
	At time.Time
}

type DrawSegmentCommand struct {
	Envelope
	Segment Segment
}

type EndStrokeCommand struct {
	Envelope
}

type UndoCommand struct {
	Envelope
}

type RedoCommand struct {
	Envelope
}

// LeaveCommand covers both an explicit leave and a transport disconnect.
type LeaveCommand struct {
	Envelope
}

// SnapshotQuery reads a room from inside its worker. Reply must be buffered.
type SnapshotQuery struct {
	Envelope
	Reply chan RoomSnapshot
}
