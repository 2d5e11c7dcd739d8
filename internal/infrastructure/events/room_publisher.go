package events

import (
	"context"
	"encoding/json"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/contracts"
	"github.com/hilthontt/relay/internal/infrastructure/messaging"
)

// RoomPublisher mirrors room lifecycle onto the broker for audit consumers.
// A publisher constructed with a nil RabbitMQ connection is a no-op, so the
// relay runs unchanged without a broker.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, payload messaging.RoomEventData) error {
	if p == nil || p.rabbitmq == nil {
		return nil
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomID: payload.Room.RoomID,
		Data:   roomEventJSON,
	})
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, contracts.EventRoomCreated, messaging.RoomEventData{
		Room:        room,
		MemberCount: 1,
	})
}

func (p *RoomPublisher) PublishRoomDeleted(ctx context.Context, room domain.Room, memberCount int) error {
	return p.publish(ctx, contracts.EventRoomDeleted, messaging.RoomEventData{
		Room:        room,
		MemberCount: memberCount,
	})
}

func (p *RoomPublisher) PublishRoomReaped(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, contracts.EventRoomReaped, messaging.RoomEventData{
		Room: room,
	})
}

func (p *RoomPublisher) PublishMemberJoined(ctx context.Context, room domain.Room, uid, username string, memberCount int) error {
	return p.publish(ctx, contracts.EventMemberJoined, messaging.RoomEventData{
		Room:        room,
		MemberUID:   uid,
		Username:    username,
		MemberCount: memberCount,
	})
}

func (p *RoomPublisher) PublishMemberLeft(ctx context.Context, room domain.Room, uid, username string, memberCount int) error {
	return p.publish(ctx, contracts.EventMemberLeft, messaging.RoomEventData{
		Room:        room,
		MemberUID:   uid,
		Username:    username,
		MemberCount: memberCount,
	})
}

func (p *RoomPublisher) PublishMessageSent(ctx context.Context, room domain.Room, uid, username string) error {
	return p.publish(ctx, contracts.EventMessageSent, messaging.RoomEventData{
		Room:      room,
		MemberUID: uid,
		Username:  username,
	})
}
