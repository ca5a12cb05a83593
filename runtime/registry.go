package runtime

import (
	"board-lab/contract"
	"board-lab/domain"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[domain.ParticipantID]struct{}

type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.ParticipantID]contract.EventSink // map participant -> Sink
	roomMembers map[domain.RoomID]Set                      // map room to participants
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.ParticipantID]contract.EventSink),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Attach registers the outbound channel of a freshly connected participant.
func (r *Registry) Attach(participantID domain.ParticipantID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[participantID] = sink
}

// Detach forgets the connection. Room membership is left to Unsubscribe.
func (r *Registry) Detach(participantID domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, participantID)
}

func (r *Registry) GetSink(participantID domain.ParticipantID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[participantID]
	return sink, ok
}

// Subscribe adds a participant to the listeners of a room.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(participantID domain.ParticipantID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][participantID] = struct{}{}
}

// Unsubscribe removes a participant from a room and drops the room entry
// once nobody listens to it anymore.
func (r *Registry) Unsubscribe(participantID domain.ParticipantID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

// Members returns the participants listening to a room, sorted.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) Members(roomID domain.RoomID) []domain.ParticipantID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	ids := lo.Keys(members)
	slices.Sort(ids)
	return ids
}
