package event

import (
	"board-lab/domain"
	"time"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// Delivery is an event on its way to a fixed list of participants.
// An empty list still reaches the permanent sinks.
type Delivery struct {
	Event      DomainEvent
	Recipients []domain.ParticipantID
}

// Welcomed tells a freshly connected participant its own id. It is not tied to a room.
type Welcomed struct {
	Participant domain.ParticipantID
}

func (Welcomed) RoomID() domain.RoomID { return "" }

type ColorAssigned struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Color       string
}

func (e ColorAssigned) RoomID() domain.RoomID { return e.Room }

type SegmentDrawn struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Segment     domain.Segment
}

func (e SegmentDrawn) RoomID() domain.RoomID { return e.Room }

type UndoApplied struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Stroke      domain.Stroke
}

func (e UndoApplied) RoomID() domain.RoomID { return e.Room }

type RedoApplied struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Stroke      domain.Stroke
}

func (e RedoApplied) RoomID() domain.RoomID { return e.Room }

type HistoryReplayed struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Histories   []domain.ParticipantHistory
}

func (e HistoryReplayed) RoomID() domain.RoomID { return e.Room }

// The events below only reach permanent sinks (journal, monitoring).

type RoomOpened struct {
	Room domain.RoomID
	At   time.Time
}

func (e RoomOpened) RoomID() domain.RoomID { return e.Room }

type RoomReclaimed struct {
	Room domain.RoomID
	At   time.Time
}

func (e RoomReclaimed) RoomID() domain.RoomID { return e.Room }

type ParticipantJoined struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	Color       string
	At          time.Time
}

func (e ParticipantJoined) RoomID() domain.RoomID { return e.Room }

type ParticipantLeft struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
	At          time.Time
}

func (e ParticipantLeft) RoomID() domain.RoomID { return e.Room }

type StrokeClosed struct {
	Room   domain.RoomID
	Stroke domain.Stroke
	At     time.Time
}

func (e StrokeClosed) RoomID() domain.RoomID { return e.Room }
