package ws

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/errors"
	"board-lab/runtime"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connector hands out one session per connection.
type Connector interface {
	Connect(participantID domain.ParticipantID, sink contract.EventSink) *runtime.Session
	Disconnect(ctx context.Context, session *runtime.Session) error
}

type Settings struct {
	ConnectionBufferSize int
	DispatchTimeout      time.Duration
	WriteTimeout         time.Duration
	PongTimeout          time.Duration
	MaxMessageSize       int64
}

type Server struct {
	log       *slog.Logger
	connector Connector
	settings  Settings
	upgrader  websocket.Upgrader
}

func NewServer(log *slog.Logger, connector Connector, settings Settings) *Server {
	return &Server{
		log:       log,
		connector: connector,
		settings:  settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin may draw
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves the connection until it is closed.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Failed to upgrade WebSocket", "error", err)
		return
	}
	defer conn.Close()

	participantID := domain.ParticipantID(uuid.NewString())
	sink := NewSink(s.settings.ConnectionBufferSize)
	_ = sink.Consume(r.Context(), event.Welcomed{Participant: participantID})
	session := s.connector.Connect(participantID, sink)
	log := s.log.With("participant_id", participantID)
	log.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	written := make(chan struct{})
	go func() {
		defer close(written)
		s.writePump(conn, sink, log)
	}()

	s.readPump(r.Context(), conn, session, sink, log)

	// The request context may already be gone, the leave must not be lost
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.DispatchTimeout)
	defer cancel()
	if err := s.connector.Disconnect(ctx, session); err != nil {
		log.Warn("Leave on disconnect failed", "error", err)
	}
	sink.Close()
	<-written
	log.Info("WebSocket connection closed")
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *runtime.Session, sink *Sink, log *slog.Logger) {
	conn.SetReadLimit(s.settings.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.settings.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.settings.PongTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.settings.PongTimeout))

		err = s.handle(ctx, session, message)
		switch {
		case err == nil:
		case stderrors.Is(err, errors.ErrSessionClosed):
			return
		case stderrors.Is(err, errors.ErrDispatchCanceled):
			log.Warn("Frame dropped", "error", err)
		case stderrors.Is(err, errors.ErrNotJoined),
			stderrors.Is(err, errors.ErrInvalidSegment),
			stderrors.Is(err, errors.ErrInvalidRoomID):
			// Events outside a room and malformed drawings never reach the client
			log.Debug("Frame dropped", "error", err)
		default:
			log.Debug("Frame rejected", "error", err)
			_ = sink.Consume(ctx, rejected{reason: err.Error()})
		}
	}
}

func (s *Server) handle(ctx context.Context, session *runtime.Session, message []byte) error {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("undecodable frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.DispatchTimeout)
	defer cancel()

	switch frame.Type {
	case TypeJoin:
		var payload JoinPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return fmt.Errorf("undecodable %s: %w", frame.Type, err)
		}
		return session.Join(ctx, domain.RoomID(payload.RoomID))
	case TypeBeginStroke:
		return session.BeginStroke(ctx)
	case TypeSegment:
		var payload SegmentPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return fmt.Errorf("undecodable %s: %w", frame.Type, err)
		}
		return session.Draw(ctx, payload.ToSegment())
	case TypeEndStroke:
		return session.EndStroke(ctx)
	case TypeUndo:
		return session.Undo(ctx)
	case TypeRedo:
		return session.Redo(ctx)
	case TypeLeave:
		return session.Leave(ctx)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownFrame, frame.Type)
	}
}

func (s *Server) writePump(conn *websocket.Conn, sink *Sink, log *slog.Logger) {
	ticker := time.NewTicker(s.settings.PongTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case e := <-sink.events:
			frame, ok, err := ToFrame(e)
			if err != nil {
				log.Error("Frame encoding failed", "error", err)
				continue
			}
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if err = conn.WriteJSON(frame); err != nil {
				log.Debug("WebSocket write failed", "error", err)
				// Unblocks the read pump
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-sink.done:
			_ = conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
