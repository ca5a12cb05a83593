// Package ws exposes the board over WebSocket with JSON frames.
package ws

import (
	"board-lab/domain"
	"board-lab/domain/event"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

const (
	// Inbound
	TypeJoin        = "join"
	TypeBeginStroke = "begin_stroke"
	TypeSegment     = "segment"
	TypeEndStroke   = "end_stroke"
	TypeUndo        = "undo"
	TypeRedo        = "redo"
	TypeLeave       = "leave"

	// Outbound
	TypeWelcome     = "welcome"
	TypeAssignColor = "assign_color"
	TypeUndoApplied = "undo_applied"
	TypeRedoApplied = "redo_applied"
	TypeHistory     = "history"
	TypeError       = "error"
)

// Frame is the envelope of every message, in both directions.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type JoinPayload struct {
	RoomID string `json:"roomId"`
}

type SegmentPayload struct {
	X0            float64 `json:"x0"`
	Y0            float64 `json:"y0"`
	X1            float64 `json:"x1"`
	Y1            float64 `json:"y1"`
	Color         string  `json:"color"`
	Width         float64 `json:"width"`
	ParticipantID string  `json:"participantId,omitempty"`
}

type WelcomePayload struct {
	ParticipantID string `json:"participantId"`
}

type ColorPayload struct {
	Color string `json:"color"`
}

type UndoAppliedPayload struct {
	ParticipantID string `json:"participantId"`
	StrokeID      string `json:"strokeId"`
}

type StrokePayload struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participantId"`
	Segments      []SegmentPayload `json:"segments"`
}

type RedoAppliedPayload struct {
	ParticipantID string        `json:"participantId"`
	Stroke        StrokePayload `json:"stroke"`
}

type HistoryPayload struct {
	Strokes []StrokePayload `json:"strokes"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}

// rejected carries the error frame of a refused inbound frame through the sink.
type rejected struct {
	reason string
}

func (rejected) RoomID() domain.RoomID { return "" }

func NewFrame(frameType string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Type: frameType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: frameType, Data: data}, nil
}

// ToFrame converts an event for the wire. Events without a client representation
// report false.
func ToFrame(e event.DomainEvent) (Frame, bool, error) {
	var frame Frame
	var err error
	switch evt := e.(type) {
	case event.Welcomed:
		frame, err = NewFrame(TypeWelcome, WelcomePayload{ParticipantID: string(evt.Participant)})
	case event.ColorAssigned:
		frame, err = NewFrame(TypeAssignColor, ColorPayload{Color: evt.Color})
	case event.SegmentDrawn:
		payload := FromSegment(evt.Segment)
		payload.ParticipantID = string(evt.Participant)
		frame, err = NewFrame(TypeSegment, payload)
	case event.UndoApplied:
		frame, err = NewFrame(TypeUndoApplied, UndoAppliedPayload{
			ParticipantID: string(evt.Participant),
			StrokeID:      string(evt.Stroke.ID),
		})
	case event.RedoApplied:
		frame, err = NewFrame(TypeRedoApplied, RedoAppliedPayload{
			ParticipantID: string(evt.Participant),
			Stroke:        fromStroke(evt.Stroke),
		})
	case event.HistoryReplayed:
		strokes := []StrokePayload{}
		for _, h := range evt.Histories {
			strokes = append(strokes, lo.Map(h.Strokes, func(s domain.Stroke, _ int) StrokePayload {
				return fromStroke(s)
			})...)
		}
		frame, err = NewFrame(TypeHistory, HistoryPayload{Strokes: strokes})
	case rejected:
		frame, err = NewFrame(TypeError, ErrorPayload{Reason: evt.reason})
	default:
		return Frame{}, false, nil
	}
	if err != nil {
		return Frame{}, false, fmt.Errorf("encoding %T: %w", e, err)
	}
	return frame, true, nil
}

func FromSegment(s domain.Segment) SegmentPayload {
	return SegmentPayload{X0: s.X0, Y0: s.Y0, X1: s.X1, Y1: s.Y1, Color: s.Color, Width: s.Width}
}

func (p SegmentPayload) ToSegment() domain.Segment {
	return domain.Segment{X0: p.X0, Y0: p.Y0, X1: p.X1, Y1: p.Y1, Color: p.Color, Width: p.Width}
}

func fromStroke(s domain.Stroke) StrokePayload {
	return StrokePayload{
		ID:            string(s.ID),
		ParticipantID: string(s.Author),
		Segments:      lo.Map(s.Segments, func(seg domain.Segment, _ int) SegmentPayload { return FromSegment(seg) }),
	}
}
