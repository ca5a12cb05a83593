//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"board-lab/domain"
	"board-lab/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Workers implementing Name() string are reported under that name instead.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry keeps the live connections and which room each of them listens to.
type IRegistry interface {
	Attach(participantID domain.ParticipantID, sink EventSink)
	Detach(participantID domain.ParticipantID)
	Subscribe(participantID domain.ParticipantID, roomID domain.RoomID)
	Unsubscribe(participantID domain.ParticipantID, roomID domain.RoomID)
	Members(roomID domain.RoomID) []domain.ParticipantID
	GetSink(participantID domain.ParticipantID) (EventSink, bool)
}

// IRoomRegistry is the arena of rooms indexed by id.
type IRoomRegistry interface {
	GetOrCreate(roomID domain.RoomID) (*domain.Room, bool)
	Get(roomID domain.RoomID) (*domain.Room, bool)
	RemoveIfEmpty(roomID domain.RoomID) bool
	Len() int
}

type IBroadcaster interface {
	SendToRoomExcept(ctx context.Context, roomID domain.RoomID, sender domain.ParticipantID, e event.DomainEvent) error
	SendToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) error
	SendToParticipant(ctx context.Context, participantID domain.ParticipantID, e event.DomainEvent) error
	Publish(ctx context.Context, e event.DomainEvent) error
}

type IDispatcher interface {
	Dispatch(ctx context.Context, cmd domain.Command) error
}
