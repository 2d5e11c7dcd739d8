package rooms

import "time"

type messageResponse struct {
	User      string    `json:"user"`
	UID       string    `json:"uid,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type roomResponse struct {
	RoomID        string            `json:"roomId"`
	Owner         string            `json:"owner"`
	CreatedAt     time.Time         `json:"createdAt"`
	ActiveMembers int               `json:"activeMembers"`
	Messages      []messageResponse `json:"messages"`
}
