package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedEqualRatings(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1000, 1000), 1e-9)
}

func TestExpected400PointGap(t *testing.T) {
	// A 400-point favorite expects ~10/11 of the points.
	e := Expected(1400, 1000)
	require.InDelta(t, 10.0/11.0, e, 1e-9)
	assert.InDelta(t, 1.0, e+Expected(1000, 1400), 1e-9)
}

func TestUpdateEvenMatchWin(t *testing.T) {
	assert.Equal(t, 1016, Update(1000, 1000, ScoreWin))
	assert.Equal(t, 984, Update(1000, 1000, ScoreLoss))
	assert.Equal(t, 1000, Update(1000, 1000, ScoreDraw))
}

func TestUpdateUpset(t *testing.T) {
	// The underdog gains more than 16 for a win, the favorite loses the same.
	gained := Update(1000, 1400, ScoreWin) - 1000
	lost := 1400 - Update(1400, 1000, ScoreLoss)
	assert.Equal(t, gained, lost)
	assert.Greater(t, gained, 16)
}

func TestUpdateFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0, Update(10, 10, ScoreLoss))
}

func TestPairZeroSum(t *testing.T) {
	a, b := Pair(1200, 1100, ScoreWin)
	assert.Equal(t, 1200-a, -(1100 - b))
	assert.Greater(t, a, 1200)
	assert.Less(t, b, 1100)
}

func TestPairDrawMovesTowardEachOther(t *testing.T) {
	a, b := Pair(1300, 1000, ScoreDraw)
	assert.Less(t, a, 1300)
	assert.Greater(t, b, 1000)
}
