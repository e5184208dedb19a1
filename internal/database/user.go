package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidagustin/tic-tac-toe/internal/auth"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/rating"
)

// CreateUser hashes the given plaintext password and inserts the account row.
func CreateUser(ctx context.Context, user *models.User, password string) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if user.Rating == 0 {
		user.Rating = rating.SeedRating
	}

	q := `INSERT INTO users (id, username, email, password, rating)
	      VALUES ($1, $2, $3, $4, $5)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Username, user.Email, user.PasswordHash, user.Rating,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password, rating, wins, losses, draws, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Rating, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(DB.QueryRow(ctx, q, username))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(DB.QueryRow(ctx, q, id))
}

// AuthenticateUser verifies a username/password pair and returns the account.
func AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	u, err := GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	ok, err := auth.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("invalid credentials")
	}
	return u, nil
}
