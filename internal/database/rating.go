package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/rating"
)

// GetOrCreateRating returns the user's rating row for a game type, inserting
// a seed row on first contact.
func GetOrCreateRating(ctx context.Context, userID uuid.UUID, gameType models.GameType) (*models.RatingRecord, error) {
	q := `
		INSERT INTO user_ratings (user_id, game_type, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, game_type) DO UPDATE SET user_id = user_ratings.user_id
		RETURNING user_id, game_type, rating, wins, losses, draws, updated_at
	`
	var r models.RatingRecord
	err := DB.QueryRow(ctx, q, userID, gameType, rating.SeedRating).Scan(
		&r.UserID, &r.GameType, &r.Rating, &r.Wins, &r.Losses, &r.Draws, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create rating: %w", err)
	}
	return &r, nil
}

// GetUserRatings returns all per-game-type rating rows for a user.
func GetUserRatings(ctx context.Context, userID uuid.UUID) ([]models.RatingRecord, error) {
	q := `
		SELECT user_id, game_type, rating, wins, losses, draws, updated_at
		FROM user_ratings WHERE user_id = $1 ORDER BY game_type
	`
	rows, err := DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RatingRecord
	for rows.Next() {
		var r models.RatingRecord
		if err := rows.Scan(&r.UserID, &r.GameType, &r.Rating, &r.Wins, &r.Losses, &r.Draws, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// participantRating resolves a player's current rating. Guests play at the
// seed value and never touch the database.
func participantRating(ctx context.Context, userID string, gameType models.GameType) (int, error) {
	if models.IsGuestID(userID) {
		return rating.SeedRating, nil
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return rating.SeedRating, nil
	}
	r, err := GetOrCreateRating(ctx, id, gameType)
	if err != nil {
		return 0, err
	}
	return r.Rating, nil
}

// UpdateRatingsAfterGame applies Elo to both participants of a finished game.
// winnerID is empty for a draw. Guest ratings are modeled but never written;
// tic-tac-toe results additionally mirror onto the legacy users columns.
func UpdateRatingsAfterGame(ctx context.Context, gameType models.GameType, player1ID, player2ID, winnerID string) error {
	r1, err := participantRating(ctx, player1ID, gameType)
	if err != nil {
		return err
	}
	r2, err := participantRating(ctx, player2ID, gameType)
	if err != nil {
		return err
	}

	score1 := rating.ScoreDraw
	switch winnerID {
	case player1ID:
		score1 = rating.ScoreWin
	case player2ID:
		score1 = rating.ScoreLoss
	}
	new1, new2 := rating.Pair(r1, r2, score1)

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := commitRating(ctx, tx, gameType, player1ID, new1, score1); err != nil {
			return err
		}
		return commitRating(ctx, tx, gameType, player2ID, new2, 1.0-score1)
	})
}

func commitRating(ctx context.Context, tx pgx.Tx, gameType models.GameType, userID string, newRating int, score float64) error {
	if models.IsGuestID(userID) {
		return nil
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}

	winInc, lossInc, drawInc := 0, 0, 0
	switch score {
	case rating.ScoreWin:
		winInc = 1
	case rating.ScoreLoss:
		lossInc = 1
	default:
		drawInc = 1
	}

	q := `
		INSERT INTO user_ratings (user_id, game_type, rating, wins, losses, draws)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, game_type) DO UPDATE SET
			rating = $3,
			wins = user_ratings.wins + $4,
			losses = user_ratings.losses + $5,
			draws = user_ratings.draws + $6,
			updated_at = now()
	`
	if _, err := tx.Exec(ctx, q, id, gameType, newRating, winInc, lossInc, drawInc); err != nil {
		return fmt.Errorf("upsert rating for %s: %w", userID, err)
	}

	// Older clients read the overall rating straight off the account row.
	if gameType == models.GameTypeTicTacToe {
		uq := `
			UPDATE users SET
				rating = $1,
				wins = wins + $2,
				losses = losses + $3,
				draws = draws + $4
			WHERE id = $5
		`
		if _, err := tx.Exec(ctx, uq, newRating, winInc, lossInc, drawInc, id); err != nil {
			return fmt.Errorf("update legacy rating for %s: %w", userID, err)
		}
	}
	return nil
}
