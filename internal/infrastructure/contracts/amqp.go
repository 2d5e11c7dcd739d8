package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomID string `json:"roomId"`
	Data   []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventMessageSent  = "message.sent"
	EventMemberJoined = "member.joined"
	EventMemberLeft   = "member.left"
	EventRoomCreated  = "room.created"
	EventRoomDeleted  = "room.deleted"
	EventRoomReaped   = "room.reaped"
)
