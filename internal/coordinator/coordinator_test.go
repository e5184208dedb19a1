// internal/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/room"
)

type fakeSink struct {
	persisted []*models.GameState
	fail      bool
}

func (f *fakeSink) PersistCompletedGame(_ context.Context, state *models.GameState) error {
	if f.fail {
		return fmt.Errorf("sink unavailable")
	}
	f.persisted = append(f.persisted, state)
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeSink, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	sink := &fakeSink{}
	return New(rdb, sink), sink, rdb
}

func testRoom(roomID string) *models.Room {
	return &models.Room{
		ID:       roomID,
		Name:     "test room",
		HostID:   "u1",
		GameType: models.GameTypeTicTacToe,
		Status:   models.RoomPlaying,
		Players: []models.RoomMember{
			{UserID: "u1", Name: "Alice", Role: models.RolePlayer, Side: models.SideX},
			{UserID: "u2", Name: "Bob", Role: models.RolePlayer, Side: models.SideO},
		},
	}
}

func movePayload(position int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"game:move","position":%d}`, position))
}

func TestCreateAndGetGame(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	state, err := c.CreateGame(ctx, testRoom("r1"))
	require.NoError(t, err)
	assert.Equal(t, models.GameTypeTicTacToe, state.GameType)
	assert.Equal(t, models.StatusInProgress, state.Status)
	require.NotNil(t, state.TTT)
	assert.Equal(t, "u1", state.TTT.PlayerX.UserID)
	assert.Equal(t, "u2", state.TTT.PlayerO.UserID)

	loaded, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, state.RoomID, loaded.RoomID)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNoActiveGame)
}

func TestProcessMoveToWin(t *testing.T) {
	c, sink, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.CreateGame(ctx, testRoom("r1"))
	require.NoError(t, err)

	moves := []struct {
		user string
		pos  int
	}{
		{"u1", 4}, {"u2", 0}, {"u1", 1}, {"u2", 8},
	}
	for _, m := range moves {
		result, err := c.ProcessMove(ctx, "r1", m.user, movePayload(m.pos))
		require.NoError(t, err)
		assert.False(t, result.GameOver())
		require.NotNil(t, result.Moved)
		assert.Equal(t, float64(m.pos), toFloat(result.Moved["position"]))
	}

	result, err := c.ProcessMove(ctx, "r1", "u1", movePayload(7))
	require.NoError(t, err)
	require.True(t, result.GameOver())
	assert.Equal(t, "X wins!", result.Over["reason"])
	assert.Equal(t, models.StatusXWins, result.State.Status)

	// The stored state reflects the terminal position.
	loaded, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusXWins, loaded.Status)

	c.Persist(ctx, result.State)
	require.Len(t, sink.persisted, 1)
	assert.Equal(t, models.StatusXWins, sink.persisted[0].Status)
}

// toFloat normalizes ints produced in-process and float64s decoded from
// JSON to one comparable type.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return -1
}

func TestProcessMoveErrors(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.ProcessMove(ctx, "r1", "u1", movePayload(0))
	assert.ErrorIs(t, err, errs.ErrNoActiveGame)

	_, err = c.CreateGame(ctx, testRoom("r1"))
	require.NoError(t, err)

	_, err = c.ProcessMove(ctx, "r1", "u2", movePayload(0))
	assert.ErrorIs(t, err, errs.ErrNotYourTurn)

	_, err = c.ProcessMove(ctx, "r1", "u1", movePayload(11))
	assert.ErrorIs(t, err, errs.ErrInvalidMove)
}

func TestProcessForfeit(t *testing.T) {
	c, sink, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.CreateGame(ctx, testRoom("r1"))
	require.NoError(t, err)

	result, err := c.ProcessForfeit(ctx, "r1", "u1")
	require.NoError(t, err)
	require.True(t, result.GameOver())
	assert.Equal(t, "Forfeit", result.Over["reason"])
	assert.Equal(t, models.StatusOWins, result.State.Status)

	c.Persist(ctx, result.State)
	require.Len(t, sink.persisted, 1)
}

func TestPersistSinkFailureDoesNotPanic(t *testing.T) {
	c, sink, _ := newTestCoordinator(t)
	ctx := context.Background()
	sink.fail = true

	state, err := c.CreateGame(ctx, testRoom("r1"))
	require.NoError(t, err)
	c.Persist(ctx, state)
	assert.Empty(t, sink.persisted)
}

func TestRematchFlow(t *testing.T) {
	c, _, rdb := newTestCoordinator(t)
	ctx := context.Background()

	r := testRoom("r1")
	_, err := c.CreateGame(ctx, r)
	require.NoError(t, err)
	_, err = c.ProcessForfeit(ctx, "r1", "u2")
	require.NoError(t, err)

	both, err := c.OfferRematch(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, both)

	// Re-offering from the same player does not complete the pair.
	both, err = c.OfferRematch(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, both)

	both, err = c.OfferRematch(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.True(t, both)

	state, err := c.CreateRematch(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, state.Status)

	// Sides swapped: Bob opens the rematch as X.
	assert.Equal(t, models.SideO, r.Players[0].Side)
	assert.Equal(t, models.SideX, r.Players[1].Side)
	assert.Equal(t, "u2", state.TTT.PlayerX.UserID)
	assert.Equal(t, "u1", state.TTT.PlayerO.UserID)

	offers, err := rdb.SCard(ctx, cache.KeyRematch("r1")).Result()
	require.NoError(t, err)
	assert.Zero(t, offers)
}

func TestEndGameResetsRoom(t *testing.T) {
	c, _, rdb := newTestCoordinator(t)
	ctx := context.Background()

	store := room.NewStore(rdb)
	created, err := store.Create(ctx, "room", "", models.GameTypeTicTacToe, room.HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = store.Join(ctx, created.ID, "", models.RoomMember{UserID: "u2", Name: "Bob"})
	require.NoError(t, err)
	_, _, _, err = store.ToggleReady(ctx, created.ID, "u1")
	require.NoError(t, err)
	_, _, _, err = store.ToggleReady(ctx, created.ID, "u2")
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, created.ID, models.RoomPlaying)
	require.NoError(t, err)

	_, err = c.OfferRematch(ctx, created.ID, "u1")
	require.NoError(t, err)

	reset, err := c.EndGame(ctx, store, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomWaiting, reset.Status)
	for _, p := range reset.Players {
		assert.False(t, p.Ready)
	}

	offers, err := rdb.SCard(ctx, cache.KeyRematch(created.ID)).Result()
	require.NoError(t, err)
	assert.Zero(t, offers)
}
