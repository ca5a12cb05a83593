package domain

import (
	"board-lab/errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func segment(x int) Segment {
	return Segment{X0: float64(x), Y0: float64(x), X1: float64(x + 10), Y1: float64(x + 10), Color: "black", Width: 3}
}

func joined(t *testing.T, ids ...ParticipantID) *Room {
	room := NewRoom("R1")
	for i, id := range ids {
		require.NoError(t, room.Join(Participant{ID: id, Color: Palette[0], JoinedAt: time.Unix(int64(i), 0)}))
	}
	return room
}

// draw closes one stroke made of n segments.
func draw(t *testing.T, room *Room, id ParticipantID, strokeID StrokeID, n int) Stroke {
	_, err := room.BeginStroke(id, strokeID, time.Now())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, room.AppendSegment(id, segment(i)))
	}
	stroke, closed, err := room.EndStroke(id)
	require.NoError(t, err)
	require.True(t, closed)
	return stroke
}

func TestRoom_Join_RegistersEmptyStacks(t *testing.T) {
	req := require.New(t)
	room := NewRoom("R1")

	// When a participant joins
	err := room.Join(Participant{ID: "A", Color: "#e6194B"})

	// Then it is a member with empty stacks bound to the room
	req.NoError(err)
	req.True(room.IsMember("A"))
	req.Empty(room.History("A"))
	req.Empty(room.RedoStack("A"))
	p, ok := room.Participant("A")
	req.True(ok)
	req.Equal(RoomID("R1"), p.RoomID)

	// And joining twice is refused
	req.ErrorIs(room.Join(Participant{ID: "A"}), errors.ErrAlreadyJoined)
}

func TestRoom_Undo_Then_Redo_OneStroke(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	// Given A finalized a stroke of 3 segments
	stroke := draw(t, room, "A", "s1", 3)
	req.Len(stroke.Segments, 3)
	req.Equal(ParticipantID("A"), stroke.Author)

	// When A undoes
	undone, ok, err := room.Undo("A")

	// Then the history is empty and the redo stack holds the stroke
	req.NoError(err)
	req.True(ok)
	req.Equal(stroke, undone)
	req.Empty(room.History("A"))
	req.Len(room.RedoStack("A"), 1)

	// When A redoes
	redone, ok, err := room.Redo("A")

	// Then the stroke is back with all its segments
	req.NoError(err)
	req.True(ok)
	req.Equal(stroke, redone)
	req.Len(room.History("A"), 1)
	req.Empty(room.RedoStack("A"))
}

func TestRoom_UndoRedo_RoundTrip_RestoresHistory(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	var strokes []Stroke
	for i := 0; i < 5; i++ {
		strokes = append(strokes, draw(t, room, "A", StrokeID(fmt.Sprintf("s%d", i)), i+1))
	}

	// When A undoes then redoes n times
	for range strokes {
		_, ok, err := room.Undo("A")
		req.NoError(err)
		req.True(ok)
	}
	req.Empty(room.History("A"))
	for range strokes {
		_, ok, err := room.Redo("A")
		req.NoError(err)
		req.True(ok)
	}

	// Then the history is exactly S1..Sn and redo is empty
	req.Equal(strokes, room.History("A"))
	req.Empty(room.RedoStack("A"))
}

func TestRoom_EmptyStacks_AreNoOps(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	_, ok, err := room.Undo("A")
	req.NoError(err)
	req.False(ok)

	_, ok, err = room.Redo("A")
	req.NoError(err)
	req.False(ok)

	req.Empty(room.History("A"))
	req.Empty(room.RedoStack("A"))
}

func TestRoom_NewSegment_InvalidatesRedo(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	// Given an undone stroke
	draw(t, room, "A", "s1", 2)
	_, _, err := room.Undo("A")
	req.NoError(err)
	req.Len(room.RedoStack("A"), 1)

	// When A starts drawing again, before closing the new stroke
	_, err = room.BeginStroke("A", "s2", time.Now())
	req.NoError(err)
	req.Len(room.RedoStack("A"), 1)
	req.NoError(room.AppendSegment("A", segment(1)))

	// Then the first segment already cleared the redo stack
	req.Empty(room.RedoStack("A"))
	_, ok, err := room.Redo("A")
	req.NoError(err)
	req.False(ok)
}

func TestRoom_Undo_IsolatedPerParticipant(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A", "B")

	// Given A and B drew interleaved strokes
	a1 := draw(t, room, "A", "a1", 1)
	draw(t, room, "B", "b1", 2)
	a2 := draw(t, room, "A", "a2", 3)
	b2 := draw(t, room, "B", "b2", 4)

	// When B undoes
	undone, ok, err := room.Undo("B")

	// Then only B's last stroke moved
	req.NoError(err)
	req.True(ok)
	req.Equal(b2, undone)
	req.Len(room.History("B"), 1)
	req.Len(room.RedoStack("B"), 1)
	req.Equal([]Stroke{a1, a2}, room.History("A"))
	req.Empty(room.RedoStack("A"))
}

func TestRoom_Segment_WithoutOpenStroke_IsRejected(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")
	draw(t, room, "A", "s1", 1)
	_, _, _ = room.Undo("A")

	// When a segment arrives while A is idle
	err := room.AppendSegment("A", segment(0))

	// Then it is refused and redo is left alone
	req.ErrorIs(err, errors.ErrNoOpenStroke)
	req.Len(room.RedoStack("A"), 1)
}

func TestRoom_EndStroke_Edges(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	// Ending without an open stroke is a no-op
	_, closed, err := room.EndStroke("A")
	req.NoError(err)
	req.False(closed)

	// An empty stroke is discarded
	_, err = room.BeginStroke("A", "empty", time.Now())
	req.NoError(err)
	req.True(room.IsDrawing("A"))
	_, closed, err = room.EndStroke("A")
	req.NoError(err)
	req.False(closed)
	req.False(room.IsDrawing("A"))
	req.Empty(room.History("A"))
}

func TestRoom_BeginStroke_WhileDrawing_ClosesPrevious(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A")

	_, err := room.BeginStroke("A", "s1", time.Now())
	req.NoError(err)
	req.NoError(room.AppendSegment("A", segment(1)))

	// When a new stroke begins before the first one ended
	closed, err := room.BeginStroke("A", "s2", time.Now())

	// Then the first stroke is kept in history
	req.NoError(err)
	req.NotNil(closed)
	req.Equal(StrokeID("s1"), closed.ID)
	req.Len(room.History("A"), 1)
	req.True(room.IsDrawing("A"))
}

func TestRoom_Leave_RemovesEverything(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A", "B")
	draw(t, room, "A", "a1", 1)
	_, _ = room.BeginStroke("A", "a2", time.Now())

	// When A leaves
	req.True(room.Leave("A"))

	// Then no entry of A remains
	req.False(room.IsMember("A"))
	req.False(room.IsDrawing("A"))
	req.Empty(room.History("A"))
	req.False(room.IsEmpty())

	// And leaving twice changes nothing
	req.False(room.Leave("A"))

	// And operations of a former member are refused
	_, _, err := room.Undo("A")
	req.ErrorIs(err, errors.ErrNotJoined)
	req.ErrorIs(room.AppendSegment("A", segment(0)), errors.ErrNotJoined)

	req.True(room.Leave("B"))
	req.True(room.IsEmpty())
}

func TestRoom_Histories_And_Snapshot(t *testing.T) {
	req := require.New(t)
	room := joined(t, "A", "B", "C")
	a1 := draw(t, room, "A", "a1", 1)
	b1 := draw(t, room, "B", "b1", 1)
	a2 := draw(t, room, "A", "a2", 1)
	_, _ = room.BeginStroke("B", "b2", time.Now())

	histories := room.Histories()
	req.Equal([]ParticipantHistory{
		{Participant: "A", Strokes: []Stroke{a1, a2}},
		{Participant: "B", Strokes: []Stroke{b1}},
	}, histories)

	snapshot := room.Snapshot()
	req.True(snapshot.Exists)
	req.Len(snapshot.Participants, 3)
	req.Equal(ParticipantID("A"), snapshot.Participants[0].Participant.ID)
	req.True(snapshot.Participants[1].Drawing)
	req.Empty(snapshot.Participants[2].History)
}
