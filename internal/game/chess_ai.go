package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/corentings/chess"
)

const chessSearchDepth = 3

// ChessAIMove picks the computer's move for the position in fen. Easy plays
// a random legal move, medium scores captures, checks and center control,
// hard runs a fixed-depth alpha-beta search over material plus piece-square
// tables. The promotion string is empty unless the move promotes.
func ChessAIMove(fen string, difficulty AIDifficulty) (from, to, promotion string, err error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return "", "", "", fmt.Errorf("parse fen: %w", err)
	}
	pos := chess.NewGame(opt).Position()

	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return "", "", "", errors.New("no legal moves available")
	}

	var mv *chess.Move
	switch difficulty {
	case AIMedium:
		mv = chessMediumMove(pos, moves)
	case AIHard:
		mv = chessHardMove(pos, moves)
	default:
		mv = moves[rand.Intn(len(moves))]
	}

	uci := chess.UCINotation{}.Encode(pos, mv)
	return uci[0:2], uci[2:4], uci[4:], nil
}

var centerSquares = map[chess.Square]bool{
	chess.D4: true, chess.D5: true, chess.E4: true, chess.E5: true,
}

func chessMediumMove(pos *chess.Position, moves []*chess.Move) *chess.Move {
	type scored struct {
		mv    *chess.Move
		score int
	}
	board := pos.Board()

	ranked := make([]scored, 0, len(moves))
	for _, mv := range moves {
		score := 0
		if mv.HasTag(chess.Capture) {
			victim := board.Piece(mv.S2())
			if victim == chess.NoPiece {
				// En passant captures land behind the pawn.
				victim = chess.BlackPawn
			}
			mover := board.Piece(mv.S1())
			score += pieceValues[victim.Type()] - pieceValues[mover.Type()]/10
		}
		if mv.HasTag(chess.Check) {
			score += 50
		}
		if centerSquares[mv.S2()] {
			score += 30
		}
		ranked = append(ranked, scored{mv, score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	topN := 3
	if len(ranked) < topN {
		topN = len(ranked)
	}
	return ranked[rand.Intn(topN)].mv
}

func chessHardMove(pos *chess.Position, moves []*chess.Move) *chess.Move {
	maximizing := pos.Turn() == chess.White
	bestMove := moves[0]
	bestScore := 1 << 30
	if maximizing {
		bestScore = -bestScore
	}

	for _, mv := range moves {
		score := alphaBeta(pos.Update(mv), chessSearchDepth-1, -(1 << 30), 1<<30, !maximizing)
		if maximizing && score > bestScore || !maximizing && score < bestScore {
			bestScore = score
			bestMove = mv
		}
	}
	return bestMove
}

func alphaBeta(pos *chess.Position, depth, alpha, beta int, maximizing bool) int {
	moves := pos.ValidMoves()
	if depth == 0 || len(moves) == 0 {
		return evaluate(pos)
	}

	if maximizing {
		best := -(1 << 30)
		for _, mv := range moves {
			score := alphaBeta(pos.Update(mv), depth-1, alpha, beta, false)
			if score > best {
				best = score
			}
			if score > alpha {
				alpha = score
			}
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := 1 << 30
	for _, mv := range moves {
		score := alphaBeta(pos.Update(mv), depth-1, alpha, beta, true)
		if score < best {
			best = score
		}
		if score < beta {
			beta = score
		}
		if beta <= alpha {
			break
		}
	}
	return best
}

// evaluate scores a position from white's perspective in centipawns.
func evaluate(pos *chess.Position) int {
	switch pos.Status() {
	case chess.Checkmate:
		if pos.Turn() == chess.White {
			return -100000
		}
		return 100000
	case chess.Stalemate:
		return 0
	}

	score := 0
	for sq, piece := range pos.Board().SquareMap() {
		value := pieceValues[piece.Type()] + psqValue(piece, sq)
		if piece.Color() == chess.White {
			score += value
		} else {
			score -= value
		}
	}
	return score
}
