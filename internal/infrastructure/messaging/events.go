package messaging

import "github.com/hilthontt/relay/internal/domain"

const (
	RoomsQueue      = "rooms"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	Room        domain.Room `json:"room"`
	MemberUID   string      `json:"memberUid,omitempty"`
	Username    string      `json:"username,omitempty"`
	MemberCount int         `json:"memberCount"`
}
