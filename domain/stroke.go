// Package domain contains core concepts of the drawing board.
// This file defines Segments and Strokes.
// Segments are immutable; a Stroke only grows while it is open.
package domain

import "time"

type StrokeID string

// Segment is one drawn line piece.
type Segment struct {
	X0    float64
	Y0    float64
	X1    float64
	Y1    float64
	Color string  `validate:"required,max=32,printascii"`
	Width float64 `validate:"gt=0,lte=500"`
}

// Stroke is the ordered sequence of segments produced by one gesture of one participant.
type Stroke struct {
	ID        StrokeID
	Author    ParticipantID
	Segments  []Segment
	StartedAt time.Time
}

func (s Stroke) IsEmpty() bool {
	return len(s.Segments) == 0
}

// ParticipantHistory is the closed strokes of one participant, oldest first.
type ParticipantHistory struct {
	Participant ParticipantID
	Strokes     []Stroke
}
