// Package coordinator runs active games: it keeps the authoritative state
// in Redis, dispatches moves to the rule engines, negotiates rematches,
// and hands finished games to the history sink.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/game"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/room"
)

// HistorySink receives finished games for permanent storage. Persistence is
// best-effort; a sink failure never rolls a game back.
type HistorySink interface {
	PersistCompletedGame(ctx context.Context, state *models.GameState) error
}

// Coordinator mediates between handlers, engines, and shared game state.
type Coordinator struct {
	rdb  *redis.Client
	sink HistorySink
}

// New builds a Coordinator. sink may be nil when no history store is
// configured; finished games are then only logged.
func New(rdb *redis.Client, sink HistorySink) *Coordinator {
	return &Coordinator{rdb: rdb, sink: sink}
}

// CreateGame builds and stores a fresh state for the room's game type.
func (c *Coordinator) CreateGame(ctx context.Context, r *models.Room) (*models.GameState, error) {
	eng, err := game.ForType(r.GameType)
	if err != nil {
		return nil, err
	}
	state, err := eng.CreateState(r)
	if err != nil {
		return nil, err
	}
	if err := c.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get loads the active game for a room, errs.ErrNoActiveGame if absent.
func (c *Coordinator) Get(ctx context.Context, roomID string) (*models.GameState, error) {
	data, err := c.rdb.Get(ctx, cache.KeyGameState(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: room %s", errs.ErrNoActiveGame, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load game state %s: %w", roomID, err)
	}
	var state models.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode game state %s: %w", roomID, err)
	}
	return &state, nil
}

func (c *Coordinator) save(ctx context.Context, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}
	return c.rdb.Set(ctx, cache.KeyGameState(state.RoomID), raw, room.RoomTTL).Err()
}

// ProcessMove applies a player's move to the room's active game and stores
// the updated state.
func (c *Coordinator) ProcessMove(ctx context.Context, roomID, userID string, move json.RawMessage) (*game.MoveResult, error) {
	state, err := c.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	eng, err := game.ForType(state.GameType)
	if err != nil {
		return nil, err
	}
	result, err := eng.ApplyMove(state, userID, move)
	if err != nil {
		return nil, err
	}
	if err := c.save(ctx, result.State); err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessForfeit ends the active game with userID as the loser.
func (c *Coordinator) ProcessForfeit(ctx context.Context, roomID, userID string) (*game.MoveResult, error) {
	state, err := c.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	eng, err := game.ForType(state.GameType)
	if err != nil {
		return nil, err
	}
	result, err := eng.Forfeit(state, userID)
	if err != nil {
		return nil, err
	}
	if err := c.save(ctx, result.State); err != nil {
		return nil, err
	}
	return result, nil
}

// Persist hands a finished game to the history sink. Failures are logged
// and swallowed; the game result has already been broadcast.
func (c *Coordinator) Persist(ctx context.Context, state *models.GameState) {
	if c.sink == nil {
		return
	}
	if err := c.sink.PersistCompletedGame(ctx, state); err != nil {
		logrus.Warnf("failed to persist game for room %s: %v", state.RoomID, err)
	}
}

// OfferRematch records a player's rematch offer. The offer set lives in
// Redis beside the game state so every server process sees the same offers.
// Returns true once both players have offered.
func (c *Coordinator) OfferRematch(ctx context.Context, roomID, userID string) (bool, error) {
	key := cache.KeyRematch(roomID)
	pipe := c.rdb.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, room.RoomTTL)
	count := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record rematch offer: %w", err)
	}
	return count.Val() >= 2, nil
}

// ClearRematch drops any recorded offers for the room.
func (c *Coordinator) ClearRematch(ctx context.Context, roomID string) {
	c.rdb.Del(ctx, cache.KeyRematch(roomID))
}

// CreateRematch swaps the players' sides on the room and stores a fresh
// game state. The caller is responsible for saving the mutated room.
func (c *Coordinator) CreateRematch(ctx context.Context, r *models.Room) (*models.GameState, error) {
	prev, err := c.Get(ctx, r.ID)
	if err != nil && !errors.Is(err, errs.ErrNoActiveGame) {
		return nil, err
	}
	eng, engErr := game.ForType(r.GameType)
	if engErr != nil {
		return nil, engErr
	}
	state, err := eng.Rematch(r, prev)
	if err != nil {
		return nil, err
	}
	c.ClearRematch(ctx, r.ID)
	if err := c.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// EndGame resets the room to waiting with ready flags cleared and clears
// rematch offers, after a game reaches a terminal state.
func (c *Coordinator) EndGame(ctx context.Context, store *room.Store, roomID string) (*models.Room, error) {
	c.ClearRematch(ctx, roomID)
	return store.ClearReady(ctx, roomID)
}
