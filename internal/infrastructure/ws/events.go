package ws

// Client → server frame types.
const (
	FrameCreateRoom = "create-room"
	FrameJoinRoom   = "join-room"
	FrameReconnect  = "reconnect"
	FrameChat       = "chat"
	FrameLeaveRoom  = "leave-room"
	FrameDeleteRoom = "delete-room"
)

// Server → client event types.
const (
	EventRoomCreated = "room-created"
	EventHistory     = "history"
	EventChat        = "chat"
	EventSystem      = "system"
	EventRoomDeleted = "room-deleted"
	EventError       = "error"
)
