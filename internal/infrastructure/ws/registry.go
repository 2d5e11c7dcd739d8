package ws

import (
	"sync"
	"time"
)

type member struct {
	client   *Client
	username string
}

// ActiveRoom is the live membership of one room. Durable ownership lives
// in the store; the copy here only serves broadcast and reap decisions.
type ActiveRoom struct {
	RoomID string
	Owner  string

	mu        sync.RWMutex
	members   map[string]*member
	lastEmpty time.Time
}

func newActiveRoom(roomID, owner string) *ActiveRoom {
	return &ActiveRoom{
		RoomID:    roomID,
		Owner:     owner,
		members:   make(map[string]*member),
		lastEmpty: time.Now(),
	}
}

func (r *ActiveRoom) AddMember(uid, username string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[uid] = &member{client: client, username: username}
}

// RemoveMember drops the member and reports whether it was present.
func (r *ActiveRoom) RemoveMember(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[uid]; !ok {
		return false
	}
	delete(r.members, uid)
	if len(r.members) == 0 {
		r.lastEmpty = time.Now()
	}
	return true
}

func (r *ActiveRoom) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Username returns the handle the member joined with.
func (r *ActiveRoom) Username(uid string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[uid]
	if !ok {
		return "", false
	}
	return m.username, true
}

// ResolveUID finds a current member by username. Usernames are not
// unique, so this is a best-effort mapping for history records that
// predate persisted sender identifiers.
func (r *ActiveRoom) ResolveUID(username string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for uid, m := range r.members {
		if m.username == username {
			return uid
		}
	}
	return ""
}

// snapshot copies the current member clients so broadcasts never hold
// the membership lock while writing.
func (r *ActiveRoom) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		clients = append(clients, m.client)
	}
	return clients
}

// Broadcast queues the event for every member and reports how many
// deliveries succeeded and how many were dropped on full buffers.
func (r *ActiveRoom) Broadcast(v any) (delivered, dropped int) {
	for _, client := range r.snapshot() {
		if client.TrySend(v) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Registry is the process-wide map of live rooms. It is rebuilt empty on
// restart; reconnecting clients repopulate it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*ActiveRoom
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*ActiveRoom),
	}
}

// GetOrCreate returns the live room, activating it with the given owner
// when absent. The owner argument is ignored for an already-active room.
func (reg *Registry) GetOrCreate(roomID, owner string) *ActiveRoom {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		return room
	}

	room := newActiveRoom(roomID, owner)
	reg.rooms[roomID] = room
	return room
}

func (reg *Registry) Get(roomID string) (*ActiveRoom, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[roomID]
	return room, ok
}

func (reg *Registry) Remove(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// ReapIdle evicts rooms that have had zero members for at least expiry
// and returns their ids. The durable Room records are untouched.
func (reg *Registry) ReapIdle(expiry time.Duration) []string {
	if expiry <= 0 {
		return nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var reaped []string
	cutoff := time.Now().Add(-expiry)
	for roomID, room := range reg.rooms {
		room.mu.RLock()
		idle := len(room.members) == 0 && room.lastEmpty.Before(cutoff)
		room.mu.RUnlock()

		if idle {
			delete(reg.rooms, roomID)
			reaped = append(reaped, roomID)
		}
	}
	return reaped
}
