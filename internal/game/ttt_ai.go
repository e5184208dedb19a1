package game

import (
	"errors"
	"math/rand"

	"github.com/davidagustin/tic-tac-toe/internal/models"
)

// AIDifficulty selects how strongly the computer plays.
type AIDifficulty string

const (
	AIEasy   AIDifficulty = "easy"
	AIMedium AIDifficulty = "medium"
	AIHard   AIDifficulty = "hard"
)

// TttAIMove returns the computer's chosen cell for the given board and side.
// Easy plays randomly, medium wins or blocks when possible, hard plays
// perfect minimax preferring the center among equal moves.
func TttAIMove(b models.Board, side models.PlayerSide, difficulty AIDifficulty) (int, error) {
	available := FreeCells(b)
	if len(available) == 0 {
		return 0, errors.New("no available moves on the board")
	}

	switch difficulty {
	case AIMedium:
		return tttMediumMove(b, side, available), nil
	case AIHard:
		return tttHardMove(b, side, available), nil
	default:
		return available[rand.Intn(len(available))], nil
	}
}

func tttMediumMove(b models.Board, side models.PlayerSide, available []int) int {
	opponent := models.Opposite(side)

	for _, pos := range available {
		next := b
		next[pos] = side
		if Winner(next) == side {
			return pos
		}
	}
	for _, pos := range available {
		next := b
		next[pos] = opponent
		if Winner(next) == opponent {
			return pos
		}
	}
	return available[rand.Intn(len(available))]
}

func tttHardMove(b models.Board, side models.PlayerSide, available []int) int {
	bestScore := -100
	var bestMoves []int

	for _, pos := range available {
		next := b
		next[pos] = side
		score := tttMinimax(next, models.Opposite(side), side, false)
		if score > bestScore {
			bestScore = score
			bestMoves = []int{pos}
		} else if score == bestScore {
			bestMoves = append(bestMoves, pos)
		}
	}

	for _, pos := range bestMoves {
		if pos == 4 {
			return 4
		}
	}
	return bestMoves[0]
}

// tttMinimax scores a board from side's perspective: +10 win, -10 loss,
// 0 draw.
func tttMinimax(b models.Board, current, side models.PlayerSide, maximizing bool) int {
	if w := Winner(b); w == side {
		return 10
	} else if w != "" {
		return -10
	}
	if Full(b) {
		return 0
	}

	if maximizing {
		best := -100
		for _, pos := range FreeCells(b) {
			next := b
			next[pos] = current
			if score := tttMinimax(next, models.Opposite(current), side, false); score > best {
				best = score
			}
		}
		return best
	}

	best := 100
	for _, pos := range FreeCells(b) {
		next := b
		next[pos] = current
		if score := tttMinimax(next, models.Opposite(current), side, true); score < best {
			best = score
		}
	}
	return best
}
