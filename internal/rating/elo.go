// Package rating implements the Elo update applied after every rated game.
//
// Ratings are tracked per game type. Guests play at the seed rating and
// never persist results, but a registered opponent's rating still moves
// against the guest's modeled strength.
package rating

import "math"

const (
	// KFactor is the fixed K applied to every update.
	KFactor = 32

	// SeedRating is the rating assigned to new accounts and modeled for guests.
	SeedRating = 1000
)

// Score values for the Update calls, from the rated player's perspective.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Expected returns the expected score of a player rated `rating` against an
// opponent rated `opponent`.
func Expected(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// Update returns the player's new rating after scoring `score` (1 win,
// 0.5 draw, 0 loss) against the opponent. Standard rounding, never below zero.
func Update(rating, opponent int, score float64) int {
	next := float64(rating) + KFactor*(score-Expected(rating, opponent))
	out := int(math.Round(next))
	if out < 0 {
		out = 0
	}
	return out
}

// Pair applies Update to both sides of a game at once. scoreA is from A's
// perspective; B scores the complement.
func Pair(ratingA, ratingB int, scoreA float64) (int, int) {
	newA := Update(ratingA, ratingB, scoreA)
	newB := Update(ratingB, ratingA, 1.0-scoreA)
	return newA, newB
}
