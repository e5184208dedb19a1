package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChessAIMoveEasyLegal(t *testing.T) {
	from, to, _, err := ChessAIMove(InitialFEN, AIEasy)
	require.NoError(t, err)
	assert.Len(t, from, 2)
	assert.Len(t, to, 2)
}

func TestChessAIMoveBadFEN(t *testing.T) {
	_, _, _, err := ChessAIMove("not a position", AIEasy)
	assert.Error(t, err)
}

func TestChessAIMediumForcedMove(t *testing.T) {
	// Black is in check with a single legal reply.
	fen := "R6k/8/8/8/8/8/8/6RK b - - 0 1"
	from, to, _, err := ChessAIMove(fen, AIMedium)
	require.NoError(t, err)
	assert.Equal(t, "h8", from)
	assert.Equal(t, "h7", to)
}

func TestChessAIHardFindsMateInOne(t *testing.T) {
	// Back-rank mate: Ra8#.
	fen := "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	from, to, _, err := ChessAIMove(fen, AIHard)
	require.NoError(t, err)
	assert.Equal(t, "a1", from)
	assert.Equal(t, "a8", to)
}

func TestChessAIHardTakesFreeQueen(t *testing.T) {
	fen := "rnb1kbnr/ppp1pppp/8/3q4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3"
	_, to, _, err := ChessAIMove(fen, AIHard)
	require.NoError(t, err)
	assert.Equal(t, "d5", to)
}

func TestChessAIPromotionSuffix(t *testing.T) {
	// White pawn on a7 promotes; every legal pawn move is a promotion.
	fen := "8/P6k/8/8/8/8/7K/8 w - - 0 1"
	from, to, promo, err := ChessAIMove(fen, AIHard)
	require.NoError(t, err)
	assert.Equal(t, "a7", from)
	assert.Equal(t, "a8", to)
	assert.Equal(t, "q", promo)
}
