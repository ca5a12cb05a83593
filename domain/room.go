package domain

import (
	"board-lab/errors"
	"slices"
	"time"
)

type RoomID string

// Room owns the stroke histories and redo stacks of its participants.
// A Room is not safe for concurrent use: it must be driven by a single worker.
type Room struct {
	ID           RoomID
	participants map[ParticipantID]Participant
	histories    map[ParticipantID][]Stroke
	redoStacks   map[ParticipantID][]Stroke
	open         map[ParticipantID]*Stroke
}

func NewRoom(id RoomID) *Room {
	return &Room{
		ID:           id,
		participants: make(map[ParticipantID]Participant),
		histories:    make(map[ParticipantID][]Stroke),
		redoStacks:   make(map[ParticipantID][]Stroke),
		open:         make(map[ParticipantID]*Stroke),
	}
}

// Join registers the participant with empty history and redo stack.
func (r *Room) Join(p Participant) error {
	if _, ok := r.participants[p.ID]; ok {
		return errors.ErrAlreadyJoined
	}
	p.RoomID = r.ID
	r.participants[p.ID] = p
	r.histories[p.ID] = []Stroke{}
	r.redoStacks[p.ID] = []Stroke{}
	return nil
}

// Leave drops every entry of the participant. It reports whether anything was removed,
// so calling it twice is harmless.
func (r *Room) Leave(id ParticipantID) bool {
	if _, ok := r.participants[id]; !ok {
		return false
	}
	delete(r.participants, id)
	delete(r.histories, id)
	delete(r.redoStacks, id)
	delete(r.open, id)
	return true
}

func (r *Room) IsMember(id ParticipantID) bool {
	_, ok := r.participants[id]
	return ok
}

func (r *Room) Participant(id ParticipantID) (Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// Participants returns the members ordered by join time.
func (r *Room) Participants() []Participant {
	res := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		res = append(res, p)
	}
	slices.SortFunc(res, func(a, b Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return res
}

// IsEmpty is true once no participant, history or redo stack is left.
func (r *Room) IsEmpty() bool {
	return len(r.participants) == 0 && len(r.histories) == 0 && len(r.redoStacks) == 0
}

// BeginStroke opens a new stroke. An already open stroke is closed first and
// returned when it had segments.
func (r *Room) BeginStroke(id ParticipantID, strokeID StrokeID, at time.Time) (*Stroke, error) {
	if !r.IsMember(id) {
		return nil, errors.ErrNotJoined
	}
	var closed *Stroke
	if _, drawing := r.open[id]; drawing {
		if s, ok, _ := r.EndStroke(id); ok {
			closed = &s
		}
	}
	r.open[id] = &Stroke{ID: strokeID, Author: id, StartedAt: at}
	return closed, nil
}

// AppendSegment extends the open stroke. New work invalidates the redo stack
// from the first segment on.
func (r *Room) AppendSegment(id ParticipantID, seg Segment) error {
	if !r.IsMember(id) {
		return errors.ErrNotJoined
	}
	stroke, ok := r.open[id]
	if !ok {
		return errors.ErrNoOpenStroke
	}
	stroke.Segments = append(stroke.Segments, seg)
	r.redoStacks[id] = r.redoStacks[id][:0]
	return nil
}

// EndStroke closes the open stroke and appends it to the history.
// An empty stroke is discarded and reported as not closed.
func (r *Room) EndStroke(id ParticipantID) (Stroke, bool, error) {
	if !r.IsMember(id) {
		return Stroke{}, false, errors.ErrNotJoined
	}
	stroke, ok := r.open[id]
	if !ok {
		return Stroke{}, false, nil
	}
	delete(r.open, id)
	if stroke.IsEmpty() {
		return Stroke{}, false, nil
	}
	r.histories[id] = append(r.histories[id], *stroke)
	r.redoStacks[id] = r.redoStacks[id][:0]
	return *stroke, true, nil
}

func (r *Room) IsDrawing(id ParticipantID) bool {
	_, ok := r.open[id]
	return ok
}

// Undo moves the last closed stroke of the participant onto its redo stack.
func (r *Room) Undo(id ParticipantID) (Stroke, bool, error) {
	if !r.IsMember(id) {
		return Stroke{}, false, errors.ErrNotJoined
	}
	history := r.histories[id]
	if len(history) == 0 {
		return Stroke{}, false, nil
	}
	last := history[len(history)-1]
	r.histories[id] = history[:len(history)-1]
	r.redoStacks[id] = append(r.redoStacks[id], last)
	return last, true, nil
}

// Redo moves the most recently undone stroke back onto the history.
func (r *Room) Redo(id ParticipantID) (Stroke, bool, error) {
	if !r.IsMember(id) {
		return Stroke{}, false, errors.ErrNotJoined
	}
	stack := r.redoStacks[id]
	if len(stack) == 0 {
		return Stroke{}, false, nil
	}
	last := stack[len(stack)-1]
	r.redoStacks[id] = stack[:len(stack)-1]
	r.histories[id] = append(r.histories[id], last)
	return last, true, nil
}

func (r *Room) History(id ParticipantID) []Stroke {
	return slices.Clone(r.histories[id])
}

func (r *Room) RedoStack(id ParticipantID) []Stroke {
	return slices.Clone(r.redoStacks[id])
}

// Histories lists the closed strokes of every member, members in join order.
func (r *Room) Histories() []ParticipantHistory {
	var res []ParticipantHistory
	for _, p := range r.Participants() {
		if len(r.histories[p.ID]) == 0 {
			continue
		}
		res = append(res, ParticipantHistory{Participant: p.ID, Strokes: r.History(p.ID)})
	}
	return res
}

type ParticipantSnapshot struct {
	Participant Participant
	Drawing     bool
	History     []Stroke
	Redo        []Stroke
}

type RoomSnapshot struct {
	ID           RoomID
	Exists       bool
	Participants []ParticipantSnapshot
}

func (r *Room) Snapshot() RoomSnapshot {
	snapshot := RoomSnapshot{ID: r.ID, Exists: true}
	for _, p := range r.Participants() {
		snapshot.Participants = append(snapshot.Participants, ParticipantSnapshot{
			Participant: p,
			Drawing:     r.IsDrawing(p.ID),
			History:     r.History(p.ID),
			Redo:        r.RedoStack(p.ID),
		})
	}
	return snapshot
}
