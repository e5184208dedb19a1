package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corentings/chess"

	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
)

// InitialFEN is the standard chess starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func init() {
	Register(&chessEngine{})
}

type chessEngine struct{}

func (e *chessEngine) GameType() models.GameType { return models.GameTypeChess }

func (e *chessEngine) CreateState(room *models.Room) (*models.GameState, error) {
	playerWhite, playerBlack, err := seatedPlayers(room)
	if err != nil {
		return nil, err
	}
	return &models.GameState{
		GameType:  models.GameTypeChess,
		RoomID:    room.ID,
		Status:    models.StatusInProgress,
		StartedAt: time.Now().UTC(),
		Chess: &models.ChessState{
			FEN:         InitialFEN,
			CurrentTurn: models.SideWhite,
			PlayerWhite: playerWhite,
			PlayerBlack: playerBlack,
			Moves:       []models.ChessMove{},
			Captured:    models.CapturedPieces{White: []string{}, Black: []string{}},
		},
	}, nil
}

// loadGame rebuilds the chess.Game for a stored state. The PGN is preferred
// because repetition counting needs the move history; FEN alone is only
// enough before the first move.
func loadGame(cs *models.ChessState) (*chess.Game, error) {
	if cs.PGN != "" {
		opt, err := chess.PGN(strings.NewReader(cs.PGN))
		if err != nil {
			return nil, fmt.Errorf("restore game from pgn: %w", err)
		}
		return chess.NewGame(opt), nil
	}
	opt, err := chess.FEN(cs.FEN)
	if err != nil {
		return nil, fmt.Errorf("restore game from fen: %w", err)
	}
	return chess.NewGame(opt), nil
}

type chessMovePayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

func (e *chessEngine) ApplyMove(state *models.GameState, userID string, move json.RawMessage) (*MoveResult, error) {
	cs := state.Chess
	if state.Status != models.StatusInProgress {
		return nil, errs.ErrNotInProgress
	}

	var payload chessMovePayload
	if err := json.Unmarshal(move, &payload); err != nil || payload.From == "" || payload.To == "" {
		return nil, fmt.Errorf("%w: missing from/to", errs.ErrInvalidMove)
	}

	current := cs.PlayerWhite
	if cs.CurrentTurn == models.SideBlack {
		current = cs.PlayerBlack
	}
	if current.UserID != userID {
		return nil, errs.ErrNotYourTurn
	}

	g, err := loadGame(cs)
	if err != nil {
		return nil, err
	}

	uci := payload.From + payload.To + strings.ToLower(payload.Promotion)
	mv, err := chess.UCINotation{}.Decode(g.Position(), uci)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidMove, uci)
	}
	san := chess.AlgebraicNotation{}.Encode(g.Position(), mv)
	if err := g.Move(mv); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidMove, uci)
	}

	// Repetition and fifty-move draws end the game immediately rather than
	// waiting for a claim.
	for _, m := range g.EligibleDraws() {
		if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
			if err := g.Draw(m); err == nil {
				break
			}
		}
	}

	previousTurn := cs.CurrentTurn
	cs.Moves = append(cs.Moves, models.ChessMove{
		Color:     previousTurn,
		From:      payload.From,
		To:        payload.To,
		SAN:       san,
		Promotion: payload.Promotion,
		MoveNum:   len(cs.Moves) + 1,
		Timestamp: time.Now().UTC(),
	})

	cs.FEN = g.FEN()
	cs.PGN = g.String()
	cs.CurrentTurn = turnSide(g.Position().Turn())
	cs.IsCheck = mv.HasTag(chess.Check)
	cs.LastMove = &models.SquarePair{From: payload.From, To: payload.To}
	cs.Captured = capturedPieces(g)

	state.Status = deriveStatus(g)
	gameOver := state.Status.Terminal()

	result := &MoveResult{
		State: state,
		Moved: map[string]interface{}{
			"gameType":  models.GameTypeChess,
			"from":      payload.From,
			"to":        payload.To,
			"san":       san,
			"color":     previousTurn,
			"nextTurn":  cs.CurrentTurn,
			"fen":       cs.FEN,
			"isCheck":   cs.IsCheck,
			"promotion": payload.Promotion,
		},
	}
	if gameOver {
		result.Over = gameOverPayload(state.Winner(), endReason(g), cs)
	}
	return result, nil
}

func (e *chessEngine) Forfeit(state *models.GameState, userID string) (*MoveResult, error) {
	cs := state.Chess
	if state.Status != models.StatusInProgress {
		return nil, errs.ErrNotInProgress
	}

	var winner models.PlayerSide
	switch userID {
	case cs.PlayerWhite.UserID:
		state.Status = models.StatusBlackWins
		winner = models.SideBlack
	case cs.PlayerBlack.UserID:
		state.Status = models.StatusWhiteWins
		winner = models.SideWhite
	default:
		return nil, errs.ErrForbidden
	}

	return &MoveResult{
		State: state,
		Over:  gameOverPayload(winner, "Forfeit", cs),
	}, nil
}

func (e *chessEngine) Rematch(room *models.Room, _ *models.GameState) (*models.GameState, error) {
	swapSides(room)
	return e.CreateState(room)
}

func turnSide(c chess.Color) models.PlayerSide {
	if c == chess.White {
		return models.SideWhite
	}
	return models.SideBlack
}

func deriveStatus(g *chess.Game) models.GameStatus {
	switch g.Outcome() {
	case chess.WhiteWon:
		return models.StatusWhiteWins
	case chess.BlackWon:
		return models.StatusBlackWins
	case chess.Draw:
		return models.StatusDraw
	}
	return models.StatusInProgress
}

func endReason(g *chess.Game) string {
	switch g.Method() {
	case chess.Checkmate:
		return "Checkmate!"
	case chess.Stalemate:
		return "Stalemate"
	case chess.ThreefoldRepetition:
		return "Draw by repetition"
	case chess.InsufficientMaterial:
		return "Insufficient material"
	default:
		return "Draw!"
	}
}

func gameOverPayload(winner models.PlayerSide, reason string, cs *models.ChessState) map[string]interface{} {
	var winnerField interface{}
	if winner != "" {
		winnerField = winner
	}
	return map[string]interface{}{
		"gameType": models.GameTypeChess,
		"winner":   winnerField,
		"reason":   reason,
		"finalFen": cs.FEN,
		"pgn":      cs.PGN,
	}
}

// pieceSymbols maps piece types to the display glyphs for each color.
var pieceSymbols = map[models.PlayerSide]map[chess.PieceType]string{
	models.SideWhite: {
		chess.King: "♔", chess.Queen: "♕", chess.Rook: "♖",
		chess.Bishop: "♗", chess.Knight: "♘", chess.Pawn: "♙",
	},
	models.SideBlack: {
		chess.King: "♚", chess.Queen: "♛", chess.Rook: "♜",
		chess.Bishop: "♝", chess.Knight: "♞", chess.Pawn: "♟",
	},
}

var startingCounts = map[chess.PieceType]int{
	chess.Pawn:   8,
	chess.Rook:   2,
	chess.Knight: 2,
	chess.Bishop: 2,
	chess.Queen:  1,
}

// capturedPieces diffs the board against starting material. A side's list
// holds the glyphs of the opposing pieces it has taken. Promotions can push
// a count past its start; those never register as captures.
func capturedPieces(g *chess.Game) models.CapturedPieces {
	remaining := map[models.PlayerSide]map[chess.PieceType]int{
		models.SideWhite: {},
		models.SideBlack: {},
	}
	for pt, n := range startingCounts {
		remaining[models.SideWhite][pt] = n
		remaining[models.SideBlack][pt] = n
	}

	for _, piece := range g.Position().Board().SquareMap() {
		if piece.Type() == chess.King {
			continue
		}
		remaining[turnSide(piece.Color())][piece.Type()]--
	}

	captured := models.CapturedPieces{White: []string{}, Black: []string{}}
	for pt, n := range remaining[models.SideWhite] {
		for i := 0; i < n; i++ {
			captured.Black = append(captured.Black, pieceSymbols[models.SideWhite][pt])
		}
	}
	for pt, n := range remaining[models.SideBlack] {
		for i := 0; i < n; i++ {
			captured.White = append(captured.White, pieceSymbols[models.SideBlack][pt])
		}
	}
	return captured
}
