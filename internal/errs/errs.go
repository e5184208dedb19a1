package errs

import "errors"

// Sentinel errors returned by the room, chat, and game layers. Handlers map
// them to wire codes with Code before sending an error event.
var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyInRoom    = errors.New("already in a room")
	ErrNotFound         = errors.New("not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrRoomFull         = errors.New("room is full")
	ErrNoActiveGame     = errors.New("no active game")
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidMove      = errors.New("invalid move")
	ErrRateLimited      = errors.New("too many messages")
)

// Code maps an error chain to the machine-readable code clients switch on.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrAlreadyInRoom):
		return "ALREADY_IN_ROOM"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrWrongPassword):
		return "WRONG_PASSWORD"
	case errors.Is(err, ErrPasswordRequired):
		return "PASSWORD_REQUIRED"
	case errors.Is(err, ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, ErrNoActiveGame):
		return "NO_ACTIVE_GAME"
	case errors.Is(err, ErrNotInProgress):
		return "NOT_IN_PROGRESS"
	case errors.Is(err, ErrNotYourTurn):
		return "NOT_YOUR_TURN"
	case errors.Is(err, ErrInvalidMove):
		return "INVALID_MOVE"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}
