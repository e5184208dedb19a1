package ws

import "sync"

// Broker tracks which sessions subscribe to the lobby and to each room, and
// broadcasts envelope messages to them.
type Broker struct {
	mu       sync.Mutex
	sessions map[string]*Session            // by user id
	lobby    map[string]*Session            // lobby subscribers by user id
	rooms    map[string]map[string]*Session // room id -> user id -> session
}

func NewBroker() *Broker {
	return &Broker{
		sessions: make(map[string]*Session),
		lobby:    make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Add registers a connected session, replacing any previous session for the
// same user. The replaced session, if any, is returned so the caller can
// cancel it.
func (b *Broker) Add(s *Session) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.sessions[s.UserID]
	b.sessions[s.UserID] = s
	return prev
}

// Remove drops a session from every subscription. It is a no-op if a newer
// session has already replaced this one.
func (b *Broker) Remove(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions[s.UserID] != s {
		return
	}
	delete(b.sessions, s.UserID)
	delete(b.lobby, s.UserID)
	for roomID, members := range b.rooms {
		delete(members, s.UserID)
		if len(members) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// Session returns the live session for a user, or nil.
func (b *Broker) Session(userID string) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[userID]
}

func (b *Broker) JoinLobby(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lobby[s.UserID] = s
}

func (b *Broker) LeaveLobby(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lobby, s.UserID)
}

// LobbyCount returns the number of lobby subscribers.
func (b *Broker) LobbyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lobby)
}

func (b *Broker) JoinRoom(roomID string, s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.rooms[roomID]
	if !ok {
		members = make(map[string]*Session)
		b.rooms[roomID] = members
	}
	members[s.UserID] = s
}

func (b *Broker) LeaveRoom(roomID string, s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if members, ok := b.rooms[roomID]; ok {
		delete(members, s.UserID)
		if len(members) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// snapshot copies a subscriber set so writes happen outside the lock.
func snapshot(members map[string]*Session, except string) []*Session {
	out := make([]*Session, 0, len(members))
	for id, s := range members {
		if id == except {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ToLobby broadcasts an event to every lobby subscriber.
func (b *Broker) ToLobby(event string, payload map[string]interface{}) {
	b.mu.Lock()
	targets := snapshot(b.lobby, "")
	b.mu.Unlock()
	for _, s := range targets {
		s.WriteEvent(event, payload)
	}
}

// ToRoom broadcasts an event to every session in a room.
func (b *Broker) ToRoom(roomID, event string, payload map[string]interface{}) {
	b.mu.Lock()
	targets := snapshot(b.rooms[roomID], "")
	b.mu.Unlock()
	for _, s := range targets {
		s.WriteEvent(event, payload)
	}
}

// ToRoomExcept broadcasts to a room, skipping one user.
func (b *Broker) ToRoomExcept(roomID, exceptUserID, event string, payload map[string]interface{}) {
	b.mu.Lock()
	targets := snapshot(b.rooms[roomID], exceptUserID)
	b.mu.Unlock()
	for _, s := range targets {
		s.WriteEvent(event, payload)
	}
}
