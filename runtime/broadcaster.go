package runtime

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/errors"
	"context"
	"fmt"

	"github.com/samber/lo"
)

var _ contract.IBroadcaster = (*Broadcaster)(nil)

// Broadcaster resolves recipients when an event is sent and queues the delivery
// for the fanout worker. Resolving at send time means a room worker sees exactly
// the membership it just wrote.
type Broadcaster struct {
	registry   contract.IRegistry
	deliveries chan<- event.Delivery
}

func NewBroadcaster(registry contract.IRegistry, deliveries chan<- event.Delivery) *Broadcaster {
	return &Broadcaster{registry: registry, deliveries: deliveries}
}

func (b *Broadcaster) SendToRoomExcept(ctx context.Context, roomID domain.RoomID, sender domain.ParticipantID, e event.DomainEvent) error {
	recipients := lo.Filter(b.registry.Members(roomID), func(id domain.ParticipantID, _ int) bool {
		return id != sender
	})
	return b.enqueue(ctx, event.Delivery{Event: e, Recipients: recipients})
}

func (b *Broadcaster) SendToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) error {
	return b.enqueue(ctx, event.Delivery{Event: e, Recipients: b.registry.Members(roomID)})
}

func (b *Broadcaster) SendToParticipant(ctx context.Context, participantID domain.ParticipantID, e event.DomainEvent) error {
	return b.enqueue(ctx, event.Delivery{Event: e, Recipients: []domain.ParticipantID{participantID}})
}

// Publish only reaches the permanent sinks.
func (b *Broadcaster) Publish(ctx context.Context, e event.DomainEvent) error {
	return b.enqueue(ctx, event.Delivery{Event: e})
}

func (b *Broadcaster) enqueue(ctx context.Context, d event.Delivery) error {
	select {
	case b.deliveries <- d:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrDispatchCanceled, ctx.Err())
	}
}
