package models

import (
	"encoding/json"
	"time"
)

// GameStatus is the lifecycle value shared by both game types.
type GameStatus string

const (
	StatusInProgress GameStatus = "in_progress"
	StatusXWins      GameStatus = "x_wins"
	StatusOWins      GameStatus = "o_wins"
	StatusWhiteWins  GameStatus = "white_wins"
	StatusBlackWins  GameStatus = "black_wins"
	StatusDraw       GameStatus = "draw"
	StatusAbandoned  GameStatus = "abandoned"
)

// Terminal reports whether the status represents a finished game.
func (s GameStatus) Terminal() bool {
	return s != StatusInProgress
}

// Board is the 9-cell tic-tac-toe grid. Empty cells marshal as JSON null so
// the wire format matches what clients render directly.
type Board [9]PlayerSide

func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]*PlayerSide, len(b))
	for i := range b {
		if b[i] != "" {
			side := b[i]
			cells[i] = &side
		}
	}
	return json.Marshal(cells)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []*PlayerSide
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	var out Board
	for i := 0; i < len(out) && i < len(cells); i++ {
		if cells[i] != nil {
			out[i] = *cells[i]
		}
	}
	*b = out
	return nil
}

// TttMove is one applied tic-tac-toe move.
type TttMove struct {
	Player    PlayerSide `json:"player"`
	Position  int        `json:"position"`
	MoveNum   int        `json:"moveNum"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChessMove is one applied chess move in both coordinate and SAN form.
type ChessMove struct {
	Color     PlayerSide `json:"color"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	SAN       string     `json:"san"`
	Promotion string     `json:"promotion,omitempty"`
	MoveNum   int        `json:"moveNum"`
	Timestamp time.Time  `json:"timestamp"`
}

// SquarePair identifies the endpoints of the most recent chess move.
type SquarePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CapturedPieces lists piece symbols captured by each color.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

// TttState is the tic-tac-toe payload of a GameState.
type TttState struct {
	Board       Board      `json:"board"`
	CurrentTurn PlayerSide `json:"currentTurn"`
	PlayerX     RoomMember `json:"playerX"`
	PlayerO     RoomMember `json:"playerO"`
	Moves       []TttMove  `json:"moves"`
}

// ChessState is the chess payload of a GameState.
type ChessState struct {
	FEN         string         `json:"fen"`
	PGN         string         `json:"pgn"`
	CurrentTurn PlayerSide     `json:"currentTurn"`
	PlayerWhite RoomMember     `json:"playerWhite"`
	PlayerBlack RoomMember     `json:"playerBlack"`
	Moves       []ChessMove    `json:"moves"`
	IsCheck     bool           `json:"isCheck"`
	LastMove    *SquarePair    `json:"lastMove,omitempty"`
	Captured    CapturedPieces `json:"capturedPieces"`
}

// GameState is the authoritative in-progress or terminal game, a tagged
// union discriminated by GameType. Exactly one of TTT or Chess is set.
type GameState struct {
	GameType  GameType    `json:"gameType"`
	RoomID    string      `json:"roomId"`
	Status    GameStatus  `json:"status"`
	StartedAt time.Time   `json:"startedAt"`
	TTT       *TttState   `json:"ttt,omitempty"`
	Chess     *ChessState `json:"chess,omitempty"`
}

// Winner returns the winning side for a terminal status, or "" for a draw
// or an in-progress game.
func (g *GameState) Winner() PlayerSide {
	switch g.Status {
	case StatusXWins:
		return SideX
	case StatusOWins:
		return SideO
	case StatusWhiteWins:
		return SideWhite
	case StatusBlackWins:
		return SideBlack
	}
	return ""
}

// Participants returns the two seated players in side order (X/white first).
func (g *GameState) Participants() (RoomMember, RoomMember) {
	if g.GameType == GameTypeChess {
		return g.Chess.PlayerWhite, g.Chess.PlayerBlack
	}
	return g.TTT.PlayerX, g.TTT.PlayerO
}
