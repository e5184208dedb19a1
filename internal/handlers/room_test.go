// internal/handlers/room_test.go
package handlers

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/room"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(logger, rdb, nil)
}

// seatedRoom creates a two-player room with both sessions registered on
// the broker.
func seatedRoom(t *testing.T, s *Server) (*models.Room, *ws.Session, *ws.Session) {
	t.Helper()
	ctx := context.Background()

	created, err := s.Rooms.Create(ctx, "test room", "", models.GameTypeTicTacToe,
		room.HostInfo{UserID: "u1", Name: "Alice", Rating: 1000})
	require.NoError(t, err)
	_, err = s.Rooms.Join(ctx, created.ID, "", models.RoomMember{UserID: "u2", Name: "Bob", Rating: 1000})
	require.NoError(t, err)

	host := ws.NewSession("u1", "Alice", 1000, false, nil)
	guest := ws.NewSession("u2", "Bob", 1000, false, nil)
	for _, sess := range []*ws.Session{host, guest} {
		s.Broker.Add(sess)
		s.Broker.JoinRoom(created.ID, sess)
	}
	return created, host, guest
}

func events(s *ws.Session) []string {
	var out []string
	for {
		select {
		case msg := <-s.OutChan:
			typ, _ := msg["type"].(string)
			out = append(out, typ)
		default:
			return out
		}
	}
}

func TestKickRemovesMemberWhileWaiting(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	created, host, guest := seatedRoom(t, s)

	s.handleRoomKick(ctx, host, []byte(`{"type":"room:kick","userId":"u2"}`))

	assert.Contains(t, events(guest), "room:kicked")

	after, err := s.Rooms.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, after.Member("u2"))

	roomID, err := s.Rooms.UserRoom(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, roomID)
}

func TestKickIgnoredWhilePlaying(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	created, host, guest := seatedRoom(t, s)

	playing, err := s.Rooms.SetStatus(ctx, created.ID, models.RoomPlaying)
	require.NoError(t, err)
	_, err = s.Games.CreateGame(ctx, playing)
	require.NoError(t, err)

	s.handleRoomKick(ctx, host, []byte(`{"type":"room:kick","userId":"u2"}`))

	assert.Empty(t, events(guest))

	after, err := s.Rooms.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, after.Member("u2"))
	assert.Len(t, after.Players, 2)
	assert.Equal(t, models.RoomPlaying, after.Status)
}

func TestForfeitWithoutGameIsSilent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, host, _ := seatedRoom(t, s)

	s.handleGameForfeit(ctx, host)
	assert.Empty(t, events(host))
}

func TestForfeitAfterGameOverIsSilent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	created, host, guest := seatedRoom(t, s)

	playing, err := s.Rooms.SetStatus(ctx, created.ID, models.RoomPlaying)
	require.NoError(t, err)
	_, err = s.Games.CreateGame(ctx, playing)
	require.NoError(t, err)

	s.handleGameForfeit(ctx, guest)
	assert.Contains(t, events(host), "game:over")
	assert.Contains(t, events(guest), "game:over")

	// The game is already terminal; a second concession changes nothing.
	s.handleGameForfeit(ctx, host)
	assert.Empty(t, events(host))
	assert.Empty(t, events(guest))
}

func TestChatRejectionsAreSilent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	sess := ws.NewSession("u1", "Alice", 1000, false, nil)
	s.Broker.Add(sess)

	long := make([]byte, 0, 230)
	long = append(long, `{"type":"lobby:chat","text":"`...)
	for i := 0; i < 201; i++ {
		long = append(long, 'x')
	}
	long = append(long, `"}`...)
	s.handleLobbyChat(ctx, sess, long)
	assert.Empty(t, events(sess))

	for i := 0; i < 5; i++ {
		s.handleLobbyChat(ctx, sess, []byte(fmt.Sprintf(`{"type":"lobby:chat","text":"msg %d"}`, i)))
	}
	s.handleLobbyChat(ctx, sess, []byte(`{"type":"lobby:chat","text":"one too many"}`))
	assert.Empty(t, events(sess))
}
