// internal/room/store_test.go
package room

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb), mr
}

func member(userID, name string) models.RoomMember {
	return models.RoomMember{UserID: userID, Name: name, Rating: 1000, Connected: true}
}

func TestCreateSeatsHostOnFirstSide(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "my room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice", Rating: 1200})
	require.NoError(t, err)
	require.Len(t, r.Players, 1)

	host := r.Players[0]
	assert.Equal(t, "u1", host.UserID)
	assert.Equal(t, models.RolePlayer, host.Role)
	assert.Equal(t, models.SideX, host.Side)
	assert.True(t, host.Connected)
	assert.False(t, r.HasPassword)
	assert.Equal(t, models.RoomWaiting, r.Status)

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	roomID, err := s.UserRoom(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, roomID)
}

func TestCreateChessUsesColorSides(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "chess room", "", models.GameTypeChess, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, models.SideWhite, r.Players[0].Side)

	joined, err := s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, models.SideBlack, joined.Players[1].Side)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "   ", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	long := make([]byte, MaxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.Create(ctx, string(long), "", models.GameTypeTicTacToe, HostInfo{UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = s.Create(ctx, "room", "", models.GameType("checkers"), HostInfo{UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCreateWhileAlreadyInRoom(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "first", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	_, err = s.Create(ctx, "second", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	assert.ErrorIs(t, err, errs.ErrAlreadyInRoom)
}

func TestJoinAssignsSeatThenSpectates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	joined, err := s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, models.SideO, joined.Players[1].Side)

	joined, err = s.Join(ctx, r.ID, "", member("u3", "Carol"))
	require.NoError(t, err)
	require.Len(t, joined.Spectators, 1)
	assert.Equal(t, models.RoleSpectator, joined.Spectators[0].Role)
	assert.Empty(t, joined.Spectators[0].Side)
}

func TestJoinCapacity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	for i := 2; i <= MaxTotal; i++ {
		_, err := s.Join(ctx, r.ID, "", member(fmt.Sprintf("u%d", i), fmt.Sprintf("User%d", i)))
		require.NoError(t, err)
	}

	full, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxTotal, full.TotalMembers())
	assert.Len(t, full.Players, MaxPlayers)
	assert.Len(t, full.Spectators, MaxSpectators)

	_, err = s.Join(ctx, r.ID, "", member("u11", "Overflow"))
	assert.ErrorIs(t, err, errs.ErrRoomFull)
}

func TestJoinPassword(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "private", "hunter2", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	assert.True(t, r.HasPassword)

	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	assert.ErrorIs(t, err, errs.ErrPasswordRequired)

	_, err = s.Join(ctx, r.ID, "wrong", member("u2", "Bob"))
	assert.ErrorIs(t, err, errs.ErrWrongPassword)

	joined, err := s.Join(ctx, r.ID, "hunter2", member("u2", "Bob"))
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)
}

func TestRejoinOnlyReconnects(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)

	again, err := s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	assert.Len(t, again.Players, 2)
	assert.Len(t, again.Spectators, 0)
	assert.True(t, again.Players[1].Connected)
}

func TestJoinWhileInAnotherRoom(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "first", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	other, err := s.Create(ctx, "second", "", models.GameTypeTicTacToe, HostInfo{UserID: "u2", Name: "Bob"})
	require.NoError(t, err)

	_, err = s.Join(ctx, other.ID, "", member("u1", "Alice"))
	assert.ErrorIs(t, err, errs.ErrAlreadyInRoom)
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	result, err := s.Leave(ctx, r.ID, "u1")
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = s.Get(ctx, r.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	roomID, err := s.UserRoom(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roomID)

	ids, err := s.rdb.SMembers(ctx, cache.KeyRoomList).Result()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLeaveTransfersHostAndPromotesSpectator(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u3", "Carol"))
	require.NoError(t, err)

	result, err := s.Leave(ctx, r.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, result.Room)
	assert.Equal(t, "u2", result.NewHostID)
	assert.Equal(t, "u2", result.Room.HostID)

	// Bob takes the first side, Carol fills the open seat.
	require.Len(t, result.Room.Players, 2)
	assert.Equal(t, "u2", result.Room.Players[0].UserID)
	assert.Equal(t, models.SideX, result.Room.Players[0].Side)
	assert.False(t, result.Room.Players[0].Ready)
	assert.Equal(t, "u3", result.Room.Players[1].UserID)
	assert.Equal(t, models.SideO, result.Room.Players[1].Side)
	assert.Empty(t, result.Room.Spectators)
}

func TestLeaveHostToSpectatorHandoff(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u3", "Carol"))
	require.NoError(t, err)

	// Both players leave; only the spectator remains and inherits the room.
	_, err = s.Leave(ctx, r.ID, "u2")
	require.NoError(t, err)
	result, err := s.Leave(ctx, r.ID, "u1")
	require.NoError(t, err)

	require.NotNil(t, result.Room)
	assert.Equal(t, "u3", result.Room.HostID)
	require.Len(t, result.Room.Players, 1)
	assert.Equal(t, "u3", result.Room.Players[0].UserID)
	assert.Equal(t, models.SideX, result.Room.Players[0].Side)
	assert.Empty(t, result.Room.Spectators)
}

func TestToggleReadyAndAllReady(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)

	_, ready, allReady, err := s.ToggleReady(ctx, r.ID, "u1")
	require.NoError(t, err)
	assert.True(t, ready)
	assert.False(t, allReady)

	_, ready, allReady, err = s.ToggleReady(ctx, r.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, allReady)

	_, ready, allReady, err = s.ToggleReady(ctx, r.ID, "u1")
	require.NoError(t, err)
	assert.False(t, ready)
	assert.False(t, allReady)
}

func TestToggleReadySpectatorForbidden(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u3", "Carol"))
	require.NoError(t, err)

	_, _, _, err = s.ToggleReady(ctx, r.ID, "u3")
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestCountdownGenerations(t *testing.T) {
	s, _ := newTestStore(t)

	gen := s.BeginCountdown("r1")
	assert.True(t, s.CountdownCurrent("r1", gen))

	s.CancelCountdown("r1")
	assert.False(t, s.CountdownCurrent("r1", gen))

	gen2 := s.BeginCountdown("r1")
	assert.True(t, s.CountdownCurrent("r1", gen2))
	assert.False(t, s.CountdownCurrent("r1", gen))
}

func TestUnreadyCancelsCountdown(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)

	_, _, _, err = s.ToggleReady(ctx, r.ID, "u1")
	require.NoError(t, err)
	_, _, _, err = s.ToggleReady(ctx, r.ID, "u2")
	require.NoError(t, err)

	gen := s.BeginCountdown(r.ID)
	_, _, _, err = s.ToggleReady(ctx, r.ID, "u2")
	require.NoError(t, err)
	assert.False(t, s.CountdownCurrent(r.ID, gen))
}

func TestPlayerLeaveCancelsCountdown(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)

	gen := s.BeginCountdown(r.ID)
	_, err = s.Leave(ctx, r.ID, "u2")
	require.NoError(t, err)
	assert.False(t, s.CountdownCurrent(r.ID, gen))
}

func TestClearReadyResetsAfterGame(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.Join(ctx, r.ID, "", member("u2", "Bob"))
	require.NoError(t, err)
	_, _, _, err = s.ToggleReady(ctx, r.ID, "u1")
	require.NoError(t, err)
	_, _, _, err = s.ToggleReady(ctx, r.ID, "u2")
	require.NoError(t, err)
	_, err = s.SetStatus(ctx, r.ID, models.RoomPlaying)
	require.NoError(t, err)

	cleared, err := s.ClearReady(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomWaiting, cleared.Status)
	for _, p := range cleared.Players {
		assert.False(t, p.Ready)
	}
}

func TestListPrunesExpiredRooms(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	live, err := s.Create(ctx, "live", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	stale, err := s.Create(ctx, "stale", "", models.GameTypeTicTacToe, HostInfo{UserID: "u2", Name: "Bob"})
	require.NoError(t, err)

	mr.Del(cache.KeyRoom(stale.ID))

	rooms, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, live.ID, rooms[0].ID)
	assert.Equal(t, "Alice", rooms[0].HostName)
	assert.Equal(t, MaxPlayers, rooms[0].MaxPlayers)

	ids, err := s.rdb.SMembers(ctx, cache.KeyRoomList).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{live.ID}, ids)
}

func TestRoomRecordExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "room", "", models.GameTypeTicTacToe, HostInfo{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	mr.FastForward(RoomTTL + time.Minute)

	_, err = s.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
