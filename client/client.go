// Package client is a scripted WebSocket participant of the board.
package client

import (
	"board-lab/infrastructure/ws"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Received is one frame read from the server.
type Received struct {
	At     time.Time
	Type   string
	From   string
	Detail string
}

// Bot drives one connection. Frames are read by a background goroutine
// while the caller writes, which gorilla/websocket allows.
type Bot struct {
	log           *slog.Logger
	conn          *websocket.Conn
	ParticipantID string

	mu       sync.Mutex
	color    string
	received []Received
	done     chan struct{}
}

// Dial connects to the server and waits for the welcome frame.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", url, err)
	}

	var frame ws.Frame
	if err = conn.ReadJSON(&frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("no welcome frame: %w", err)
	}
	var welcome ws.WelcomePayload
	if frame.Type != ws.TypeWelcome || json.Unmarshal(frame.Data, &welcome) != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first frame %q", frame.Type)
	}

	b := &Bot{log: log, conn: conn, ParticipantID: welcome.ParticipantID, done: make(chan struct{})}
	go b.readLoop()
	return b, nil
}

func (b *Bot) Join(roomID string) error {
	return b.send(ws.TypeJoin, ws.JoinPayload{RoomID: roomID})
}

func (b *Bot) BeginStroke() error { return b.send(ws.TypeBeginStroke, nil) }

func (b *Bot) Draw(segment ws.SegmentPayload) error { return b.send(ws.TypeSegment, segment) }

func (b *Bot) EndStroke() error { return b.send(ws.TypeEndStroke, nil) }

func (b *Bot) Undo() error { return b.send(ws.TypeUndo, nil) }

func (b *Bot) Redo() error { return b.send(ws.TypeRedo, nil) }

func (b *Bot) Leave() error { return b.send(ws.TypeLeave, nil) }

// DrawStroke sends a whole stroke: a staircase of n segments starting at (x, y).
func (b *Bot) DrawStroke(x, y float64, n int, width float64) error {
	if err := b.BeginStroke(); err != nil {
		return err
	}
	color := b.Color()
	if color == "" {
		color = "#000000"
	}
	for i := 0; i < n; i++ {
		x0, y0 := x+float64(i*10), y+float64(i*10)
		if err := b.Draw(ws.SegmentPayload{X0: x0, Y0: y0, X1: x0 + 10, Y1: y0 + 10, Color: color, Width: width}); err != nil {
			return err
		}
	}
	return b.EndStroke()
}

// Color is the pen color assigned on the last join.
func (b *Bot) Color() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.color
}

func (b *Bot) Received() []Received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Received(nil), b.received...)
}

// WaitFor blocks until a frame of the given type was received, or ctx is done.
func (b *Bot) WaitFor(ctx context.Context, frameType string) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, r := range b.Received() {
			if r.Type == frameType {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", frameType, ctx.Err())
		case <-b.done:
			return fmt.Errorf("waiting for %s: connection closed", frameType)
		case <-ticker.C:
		}
	}
}

// Close says goodbye to the server and waits for the read loop.
func (b *Bot) Close() error {
	err := b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	select {
	case <-b.done:
	case <-time.After(time.Second):
	}
	if closeErr := b.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (b *Bot) send(frameType string, payload any) error {
	frame, err := ws.NewFrame(frameType, payload)
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(frame)
}

func (b *Bot) readLoop() {
	defer close(b.done)
	for {
		var frame ws.Frame
		if err := b.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn("Read failed", "error", err)
			}
			return
		}
		received, err := describe(frame)
		if err != nil {
			b.log.Warn("Undecodable frame", "type", frame.Type, "error", err)
			continue
		}
		b.mu.Lock()
		if frame.Type == ws.TypeAssignColor {
			b.color = received.Detail
		}
		b.received = append(b.received, received)
		b.mu.Unlock()
	}
}

func describe(frame ws.Frame) (Received, error) {
	r := Received{At: time.Now(), Type: frame.Type}
	switch frame.Type {
	case ws.TypeAssignColor:
		var p ws.ColorPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.Detail = p.Color
	case ws.TypeSegment:
		var p ws.SegmentPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.From = p.ParticipantID
		r.Detail = fmt.Sprintf("(%g,%g)->(%g,%g) %s", p.X0, p.Y0, p.X1, p.Y1, p.Color)
	case ws.TypeUndoApplied:
		var p ws.UndoAppliedPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.From = p.ParticipantID
		r.Detail = p.StrokeID
	case ws.TypeRedoApplied:
		var p ws.RedoAppliedPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.From = p.ParticipantID
		r.Detail = fmt.Sprintf("%s (%d segments)", p.Stroke.ID, len(p.Stroke.Segments))
	case ws.TypeHistory:
		var p ws.HistoryPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.Detail = fmt.Sprintf("%d strokes", len(p.Strokes))
	case ws.TypeError:
		var p ws.ErrorPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return r, err
		}
		r.Detail = p.Reason
	}
	return r, nil
}
