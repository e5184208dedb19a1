// Package game holds the rule engines. Each engine owns move validation,
// state transitions, and terminal detection for one game type; everything
// above this package treats games uniformly through the Engine interface.
package game

import (
	"encoding/json"
	"fmt"

	"github.com/davidagustin/tic-tac-toe/internal/models"
)

// MoveResult is what an engine returns for an accepted move. Moved is the
// per-move broadcast payload; Over is set only when the move ended the game.
type MoveResult struct {
	State *models.GameState
	Moved map[string]interface{}
	Over  map[string]interface{}
}

// GameOver reports whether the move reached a terminal state.
func (r *MoveResult) GameOver() bool {
	return r.Over != nil
}

// Engine is one game type's rule implementation. Engines are stateless; all
// game data lives in the GameState they are handed.
type Engine interface {
	// GameType returns the type this engine registered under.
	GameType() models.GameType

	// CreateState builds a fresh in-progress state from a room whose two
	// players hold assigned sides.
	CreateState(room *models.Room) (*models.GameState, error)

	// ApplyMove validates and applies a raw move payload from userID.
	// Returns errs.ErrNotYourTurn or errs.ErrInvalidMove on rejection.
	ApplyMove(state *models.GameState, userID string, move json.RawMessage) (*MoveResult, error)

	// Forfeit ends the game with the named user as the loser.
	Forfeit(state *models.GameState, userID string) (*MoveResult, error)

	// Rematch swaps the players' sides on the room and builds a fresh state.
	Rematch(room *models.Room, prev *models.GameState) (*models.GameState, error)
}

var registry = map[models.GameType]Engine{}

// Register installs an engine for its game type. Called from init.
func Register(e Engine) {
	registry[e.GameType()] = e
}

// ForType returns the engine for a game type.
func ForType(gt models.GameType) (Engine, error) {
	e, ok := registry[gt]
	if !ok {
		return nil, fmt.Errorf("no engine registered for game type %q", gt)
	}
	return e, nil
}

// swapSides exchanges the two players' side assignments, clearing ready
// flags so the next game needs fresh confirmation.
func swapSides(room *models.Room) {
	for i := range room.Players {
		room.Players[i].Side = models.Opposite(room.Players[i].Side)
		room.Players[i].Ready = false
	}
}

// seatedPlayers returns the players holding the first and second side for
// the room's game type, erroring unless both seats are filled.
func seatedPlayers(room *models.Room) (first, second models.RoomMember, err error) {
	a, b := models.Sides(room.GameType)
	pa := room.PlayerBySide(a)
	pb := room.PlayerBySide(b)
	if pa == nil || pb == nil {
		return models.RoomMember{}, models.RoomMember{}, fmt.Errorf("room %s does not have both sides assigned", room.ID)
	}
	return *pa, *pb, nil
}
