package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestIDPrefix marks user IDs minted client-side for unauthenticated play.
// Guest results never persist to the database.
const GuestIDPrefix = "guest_"

// IsGuestID reports whether the user ID belongs to an unauthenticated guest.
func IsGuestID(userID string) bool {
	return strings.HasPrefix(userID, GuestIDPrefix)
}

// User is a registered account row. Rating, Wins, Losses and Draws mirror the
// tic-tac-toe rating record for clients that predate per-game ratings.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Rating       int       `json:"rating"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Draws        int       `json:"draws"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RatingRecord is a per-game-type rating row for a user.
type RatingRecord struct {
	UserID    uuid.UUID `json:"userId"`
	GameType  GameType  `json:"gameType"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	UpdatedAt time.Time `json:"updatedAt"`
}
