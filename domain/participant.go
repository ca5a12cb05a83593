// Package domain contains core concepts of the drawing board.
// This file defines Participant entities and the color palette.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/samber/lo"
)

type ParticipantID string

// Participant lives as long as its connection. A reconnection is a new Participant.
type Participant struct {
	ID       ParticipantID
	Color    string
	RoomID   RoomID
	JoinedAt time.Time
}

// Palette is the fixed set of pen colors handed out on join.
var Palette = []string{
	"#e6194B", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe",
}

// PickColor draws a color from the palette with replacement.
// Two participants of the same room may share a color.
func PickColor() string {
	return lo.Sample(Palette)
}
