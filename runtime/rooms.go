package runtime

import (
	"board-lab/contract"
	"board-lab/domain"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRoomRegistry = (*RoomRegistry)(nil)

// RoomRegistry is the arena of live rooms. The map is shared by every room worker,
// while each Room is only driven by the worker owning its shard.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[domain.RoomID]*domain.Room)}
}

// GetOrCreate returns the room, creating it on first use. The boolean reports a creation.
func (r *RoomRegistry) GetOrCreate(roomID domain.RoomID) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		return room, false
	}
	room := domain.NewRoom(roomID)
	r.rooms[roomID] = room
	return room, true
}

func (r *RoomRegistry) Get(roomID domain.RoomID) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	return room, ok
}

// RemoveIfEmpty drops the room once nobody and nothing is left in it.
// Unknown ids and non empty rooms are left untouched, so redundant calls are fine.
func (r *RoomRegistry) RemoveIfEmpty(roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || !room.IsEmpty() {
		return false
	}
	delete(r.rooms, roomID)
	return true
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) IDs() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := lo.Keys(r.rooms)
	slices.Sort(ids)
	return ids
}
