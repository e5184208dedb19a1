// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidagustin/tic-tac-toe/internal/models"
)

// Recorder is the history sink backed by Postgres. It implements the
// coordinator's persistence hook.
type Recorder struct{}

// PersistCompletedGame writes the immutable game record and applies rating
// updates. Games between two guests are not recorded at all.
func (Recorder) PersistCompletedGame(ctx context.Context, state *models.GameState) error {
	return SaveCompletedGame(ctx, state)
}

// playerRef resolves a participant ID to a nullable uuid column value.
func playerRef(userID string) interface{} {
	if models.IsGuestID(userID) {
		return nil
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return id
}

// SaveCompletedGame persists a finished game: one games row, its move list,
// then Elo updates for registered participants. Skipped when both
// participants are guests.
func SaveCompletedGame(ctx context.Context, state *models.GameState) error {
	if !state.Status.Terminal() {
		return fmt.Errorf("game %s is not finished", state.RoomID)
	}

	p1, p2 := state.Participants()
	if models.IsGuestID(p1.UserID) && models.IsGuestID(p2.UserID) {
		return nil
	}

	var winnerID string
	switch state.Winner() {
	case models.SideX, models.SideWhite:
		winnerID = p1.UserID
	case models.SideO, models.SideBlack:
		winnerID = p2.UserID
	}

	gameID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("generate game id: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, room_id, game_type, status, player1_id, player2_id, winner_id, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		var winnerRef interface{}
		if winnerID != "" {
			winnerRef = playerRef(winnerID)
		}
		if _, e := tx.Exec(ctx, q,
			gameID, state.RoomID, state.GameType, state.Status,
			playerRef(p1.UserID), playerRef(p2.UserID), winnerRef,
			state.StartedAt, time.Now().UTC(),
		); e != nil {
			return fmt.Errorf("insert game: %w", e)
		}
		return insertMoves(ctx, tx, gameID, state)
	})
	if err != nil {
		return err
	}

	return UpdateRatingsAfterGame(ctx, state.GameType, p1.UserID, p2.UserID, winnerID)
}

func insertMoves(ctx context.Context, tx pgx.Tx, gameID uuid.UUID, state *models.GameState) error {
	q := `
		INSERT INTO game_moves (game_id, move_num, player, position, from_square, to_square, san, promotion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if state.GameType == models.GameTypeChess {
		for _, m := range state.Chess.Moves {
			if _, e := tx.Exec(ctx, q, gameID, m.MoveNum, m.Color, nil, m.From, m.To, m.SAN, m.Promotion); e != nil {
				return fmt.Errorf("insert move %d: %w", m.MoveNum, e)
			}
		}
		return nil
	}
	for _, m := range state.TTT.Moves {
		if _, e := tx.Exec(ctx, q, gameID, m.MoveNum, m.Player, m.Position, nil, nil, nil, nil); e != nil {
			return fmt.Errorf("insert move %d: %w", m.MoveNum, e)
		}
	}
	return nil
}

// GameSummary is one row of a user's game history.
type GameSummary struct {
	ID        uuid.UUID         `json:"id"`
	RoomID    string            `json:"roomId"`
	GameType  models.GameType   `json:"gameType"`
	Status    models.GameStatus `json:"status"`
	Player1ID *uuid.UUID        `json:"player1Id"`
	Player2ID *uuid.UUID        `json:"player2Id"`
	WinnerID  *uuid.UUID        `json:"winnerId"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   time.Time         `json:"endedAt"`
}

// GetUserGames returns the most recent completed games for a user.
func GetUserGames(ctx context.Context, userID uuid.UUID, limit int) ([]GameSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := `
		SELECT id, room_id, game_type, status, player1_id, player2_id, winner_id, started_at, ended_at
		FROM games
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.RoomID, &g.GameType, &g.Status, &g.Player1ID, &g.Player2ID, &g.WinnerID, &g.StartedAt, &g.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
