package models

import "time"

// GameType discriminates which rule engine a room plays under.
type GameType string

const (
	GameTypeTicTacToe GameType = "tic_tac_toe"
	GameTypeChess     GameType = "chess"
)

// PlayerSide is the per-game identifier a player occupies: "X"/"O" for
// tic-tac-toe, "white"/"black" for chess.
type PlayerSide string

const (
	SideX     PlayerSide = "X"
	SideO     PlayerSide = "O"
	SideWhite PlayerSide = "white"
	SideBlack PlayerSide = "black"
)

// Sides returns the ordered pair of side values for a game type. The first
// side is always assigned to the room host and moves first.
func Sides(gt GameType) (PlayerSide, PlayerSide) {
	if gt == GameTypeChess {
		return SideWhite, SideBlack
	}
	return SideX, SideO
}

// Opposite returns the paired side value.
func Opposite(s PlayerSide) PlayerSide {
	switch s {
	case SideX:
		return SideO
	case SideO:
		return SideX
	case SideWhite:
		return SideBlack
	case SideBlack:
		return SideWhite
	}
	return s
}

type RoomRole string

const (
	RolePlayer    RoomRole = "player"
	RoleSpectator RoomRole = "spectator"
)

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// RoomMember is a participant reference owned by exactly one room.
type RoomMember struct {
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	Rating    int        `json:"rating"`
	Role      RoomRole   `json:"role"`
	Ready     bool       `json:"isReady"`
	Connected bool       `json:"isConnected"`
	Side      PlayerSide `json:"mark,omitempty"`
}

// Room is a transient multiplayer session stored as JSON in the shared cache.
// PasswordHash is persisted with the record but stripped before any broadcast
// via Sanitized.
type Room struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	HostID       string       `json:"hostId"`
	HasPassword  bool         `json:"hasPassword"`
	PasswordHash string       `json:"passwordHash,omitempty"`
	GameType     GameType     `json:"gameType"`
	Status       RoomStatus   `json:"status"`
	Players      []RoomMember `json:"players"`
	Spectators   []RoomMember `json:"spectators"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// Member returns a pointer into the room's player or spectator list for
// userID, or nil if the user is not a member.
func (r *Room) Member(userID string) *RoomMember {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	for i := range r.Spectators {
		if r.Spectators[i].UserID == userID {
			return &r.Spectators[i]
		}
	}
	return nil
}

// Player returns the player entry for userID, or nil if the user is not
// seated as a player.
func (r *Room) Player(userID string) *RoomMember {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerBySide returns the player holding the given side value.
func (r *Room) PlayerBySide(side PlayerSide) *RoomMember {
	for i := range r.Players {
		if r.Players[i].Side == side {
			return &r.Players[i]
		}
	}
	return nil
}

// TotalMembers counts players plus spectators.
func (r *Room) TotalMembers() int {
	return len(r.Players) + len(r.Spectators)
}

// Sanitized returns a copy safe for broadcast, with the password hash removed.
func (r *Room) Sanitized() Room {
	clean := *r
	clean.PasswordHash = ""
	return clean
}

// RoomInfo is the lobby-facing summary of a room.
type RoomInfo struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	HostID         string     `json:"hostId"`
	HostName       string     `json:"hostName"`
	HasPassword    bool       `json:"hasPassword"`
	GameType       GameType   `json:"gameType"`
	PlayerCount    int        `json:"playerCount"`
	SpectatorCount int        `json:"spectatorCount"`
	MaxPlayers     int        `json:"maxPlayers"`
	MaxSpectators  int        `json:"maxSpectators"`
	Status         RoomStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Summary builds the lobby-facing view of a room.
func (r *Room) Summary(maxPlayers, maxSpectators int) RoomInfo {
	hostName := "Unknown"
	if m := r.Member(r.HostID); m != nil {
		hostName = m.Name
	}
	return RoomInfo{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		HostName:       hostName,
		HasPassword:    r.HasPassword,
		GameType:       r.GameType,
		PlayerCount:    len(r.Players),
		SpectatorCount: len(r.Spectators),
		MaxPlayers:     maxPlayers,
		MaxSpectators:  maxSpectators,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
}
