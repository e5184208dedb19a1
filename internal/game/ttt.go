package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
)

func init() {
	Register(&tttEngine{})
}

// winTriples enumerates every winning line: rows, columns, diagonals.
var winTriples = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ValidMove reports whether position is an empty cell on the board.
func ValidMove(b models.Board, position int) bool {
	return position >= 0 && position < len(b) && b[position] == ""
}

// Winner returns the side holding a complete line, or "".
func Winner(b models.Board) models.PlayerSide {
	for _, t := range winTriples {
		if b[t[0]] != "" && b[t[0]] == b[t[1]] && b[t[0]] == b[t[2]] {
			return b[t[0]]
		}
	}
	return ""
}

// WinningCells returns the indices of the completed line, or nil.
func WinningCells(b models.Board) []int {
	for _, t := range winTriples {
		if b[t[0]] != "" && b[t[0]] == b[t[1]] && b[t[0]] == b[t[2]] {
			return []int{t[0], t[1], t[2]}
		}
	}
	return nil
}

// Full reports whether every cell is taken.
func Full(b models.Board) bool {
	for _, c := range b {
		if c == "" {
			return false
		}
	}
	return true
}

// StatusOf derives the game status from the board alone.
func StatusOf(b models.Board) models.GameStatus {
	switch Winner(b) {
	case models.SideX:
		return models.StatusXWins
	case models.SideO:
		return models.StatusOWins
	}
	if Full(b) {
		return models.StatusDraw
	}
	return models.StatusInProgress
}

// FreeCells returns every empty position in index order.
func FreeCells(b models.Board) []int {
	var out []int
	for i, c := range b {
		if c == "" {
			out = append(out, i)
		}
	}
	return out
}

type tttEngine struct{}

func (e *tttEngine) GameType() models.GameType { return models.GameTypeTicTacToe }

func (e *tttEngine) CreateState(room *models.Room) (*models.GameState, error) {
	playerX, playerO, err := seatedPlayers(room)
	if err != nil {
		return nil, err
	}
	return &models.GameState{
		GameType:  models.GameTypeTicTacToe,
		RoomID:    room.ID,
		Status:    models.StatusInProgress,
		StartedAt: time.Now().UTC(),
		TTT: &models.TttState{
			CurrentTurn: models.SideX,
			PlayerX:     playerX,
			PlayerO:     playerO,
			Moves:       []models.TttMove{},
		},
	}, nil
}

type tttMovePayload struct {
	Position *int `json:"position"`
}

func (e *tttEngine) ApplyMove(state *models.GameState, userID string, move json.RawMessage) (*MoveResult, error) {
	ts := state.TTT
	if state.Status != models.StatusInProgress {
		return nil, errs.ErrNotInProgress
	}

	var payload tttMovePayload
	if err := json.Unmarshal(move, &payload); err != nil || payload.Position == nil {
		return nil, fmt.Errorf("%w: missing position", errs.ErrInvalidMove)
	}
	position := *payload.Position

	current := ts.PlayerX
	if ts.CurrentTurn == models.SideO {
		current = ts.PlayerO
	}
	if current.UserID != userID {
		return nil, errs.ErrNotYourTurn
	}
	if !ValidMove(ts.Board, position) {
		return nil, fmt.Errorf("%w: position %d", errs.ErrInvalidMove, position)
	}

	ts.Board[position] = ts.CurrentTurn
	ts.Moves = append(ts.Moves, models.TttMove{
		Player:    ts.CurrentTurn,
		Position:  position,
		MoveNum:   len(ts.Moves) + 1,
		Timestamp: time.Now().UTC(),
	})

	winner := Winner(ts.Board)
	gameOver := winner != "" || Full(ts.Board)
	previousTurn := ts.CurrentTurn

	if gameOver {
		state.Status = StatusOf(ts.Board)
	} else {
		ts.CurrentTurn = models.Opposite(ts.CurrentTurn)
	}

	result := &MoveResult{
		State: state,
		Moved: map[string]interface{}{
			"gameType": models.GameTypeTicTacToe,
			"position": position,
			"player":   previousTurn,
			"nextTurn": ts.CurrentTurn,
			"board":    ts.Board,
		},
	}
	if gameOver {
		reason := "Draw!"
		var winnerField interface{}
		if winner != "" {
			reason = fmt.Sprintf("%s wins!", winner)
			winnerField = winner
		}
		result.Over = map[string]interface{}{
			"gameType":     models.GameTypeTicTacToe,
			"winner":       winnerField,
			"reason":       reason,
			"finalBoard":   ts.Board,
			"winningCells": WinningCells(ts.Board),
		}
	}
	return result, nil
}

func (e *tttEngine) Forfeit(state *models.GameState, userID string) (*MoveResult, error) {
	ts := state.TTT
	if state.Status != models.StatusInProgress {
		return nil, errs.ErrNotInProgress
	}

	var winner models.PlayerSide
	switch userID {
	case ts.PlayerX.UserID:
		state.Status = models.StatusOWins
		winner = models.SideO
	case ts.PlayerO.UserID:
		state.Status = models.StatusXWins
		winner = models.SideX
	default:
		return nil, errs.ErrForbidden
	}

	return &MoveResult{
		State: state,
		Over: map[string]interface{}{
			"gameType":     models.GameTypeTicTacToe,
			"winner":       winner,
			"reason":       "Forfeit",
			"finalBoard":   ts.Board,
			"winningCells": nil,
		},
	}, nil
}

func (e *tttEngine) Rematch(room *models.Room, _ *models.GameState) (*models.GameState, error) {
	swapSides(room)
	return e.CreateState(room)
}
