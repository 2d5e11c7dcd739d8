package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/contracts"
	"github.com/hilthontt/relay/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type roomConsumer struct {
	rabbitmq  *messaging.RabbitMQ
	auditRepo domain.RoomAuditRepository
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, auditRepo domain.RoomAuditRepository) *roomConsumer {
	return &roomConsumer{
		rabbitmq:  rabbitmq,
		auditRepo: auditRepo,
	}
}

func (c *roomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("Failed to unmarshal amqp message: %v", err)
			return err
		}

		var payload messaging.RoomEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			log.Printf("Failed to unmarshal room event: %v", err)
			return err
		}

		entry := c.auditLogFor(msg.RoutingKey, payload)
		if entry == nil {
			log.Printf("Unknown room event routing key: %s", msg.RoutingKey)
			return nil
		}

		return c.auditRepo.Log(ctx, entry)
	})
}

func (c *roomConsumer) auditLogFor(routingKey string, payload messaging.RoomEventData) *domain.RoomAuditLog {
	roomID := payload.Room.RoomID

	switch routingKey {
	case contracts.EventRoomCreated:
		return domain.NewRoomCreatedLog(roomID, payload.Room.Owner)
	case contracts.EventRoomDeleted:
		return domain.NewRoomDeletedLog(roomID, payload.MemberCount)
	case contracts.EventRoomReaped:
		return domain.NewRoomReapedLog(roomID, 0)
	case contracts.EventMemberJoined:
		return domain.NewMemberJoinedLog(roomID, payload.MemberCount)
	case contracts.EventMemberLeft:
		return domain.NewMemberLeftLog(roomID, payload.MemberCount)
	case contracts.EventMessageSent:
		return domain.NewMessageSentLog(roomID)
	}

	return nil
}
