package internal

import (
	"board-lab/domain"
	"board-lab/observability"
	"board-lab/repositories"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

// RoomInspector reads the live rooms without touching them.
type RoomInspector interface {
	Rooms() []domain.RoomID
	Snapshot(ctx context.Context, roomID domain.RoomID) (domain.RoomSnapshot, error)
}

type ParticipantView struct {
	ID       domain.ParticipantID `json:"id"`
	Color    string               `json:"color"`
	JoinedAt time.Time            `json:"joinedAt"`
	Drawing  bool                 `json:"drawing"`
	Strokes  int                  `json:"strokes"`
	Redo     int                  `json:"redo"`
}

type RoomView struct {
	ID           domain.RoomID     `json:"id"`
	Participants []ParticipantView `json:"participants"`
}

type JournalPage struct {
	Entries []repositories.JournalEntry `json:"entries"`
	Cursor  *string                     `json:"cursor,omitempty"`
}

type DebugServer struct {
	log        *slog.Logger
	inspector  RoomInspector
	monitoring *observability.MonitoringManager
	journal    repositories.IJournalRepository
	timeout    time.Duration
}

func NewDebugServer(log *slog.Logger, inspector RoomInspector, monitoring *observability.MonitoringManager,
	journal repositories.IJournalRepository, timeout time.Duration) *DebugServer {
	return &DebugServer{log: log, inspector: inspector, monitoring: monitoring, journal: journal, timeout: timeout}
}

func (d *DebugServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/debug/stats", d.stats).Methods(http.MethodGet)
	router.HandleFunc("/debug/rooms", d.rooms).Methods(http.MethodGet)
	router.HandleFunc("/debug/rooms/{roomId}", d.room).Methods(http.MethodGet)
	router.HandleFunc("/debug/rooms/{roomId}/journal", d.roomJournal).Methods(http.MethodGet)
	return router
}

func (d *DebugServer) stats(w http.ResponseWriter, _ *http.Request) {
	d.writeJSON(w, http.StatusOK, d.monitoring.GetLatest())
}

func (d *DebugServer) rooms(w http.ResponseWriter, _ *http.Request) {
	rooms := d.inspector.Rooms()
	if rooms == nil {
		rooms = []domain.RoomID{}
	}
	d.writeJSON(w, http.StatusOK, rooms)
}

func (d *DebugServer) room(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), d.timeout)
	defer cancel()

	snapshot, err := d.inspector.Snapshot(ctx, domain.RoomID(mux.Vars(r)["roomId"]))
	if err != nil {
		d.log.Warn("Room snapshot failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !snapshot.Exists {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	d.writeJSON(w, http.StatusOK, toRoomView(snapshot))
}

func (d *DebugServer) roomJournal(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	entries, next, err := d.journal.Entries(domain.RoomID(mux.Vars(r)["roomId"]), cursor)
	if err != nil {
		d.log.Error("Journal read failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []repositories.JournalEntry{}
	}
	if next != nil && *next == "" {
		next = nil
	}
	d.writeJSON(w, http.StatusOK, JournalPage{Entries: entries, Cursor: next})
}

func (d *DebugServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.log.Debug("Response write failed", "error", err)
	}
}

func toRoomView(snapshot domain.RoomSnapshot) RoomView {
	return RoomView{
		ID: snapshot.ID,
		Participants: lo.Map(snapshot.Participants, func(p domain.ParticipantSnapshot, _ int) ParticipantView {
			return ParticipantView{
				ID:       p.Participant.ID,
				Color:    p.Participant.Color,
				JoinedAt: p.Participant.JoinedAt,
				Drawing:  p.Drawing,
				Strokes:  len(p.History),
				Redo:     len(p.Redo),
			}
		}),
	}
}
