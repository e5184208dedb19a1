// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_PASSWORD (optional)
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	password := getEnv("REDIS_PASSWORD", "")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Key builders for every shared-state record. All room-scoped keys carry the
// room ID so records expire together with the room.

// KeyRoomList is the set of live room IDs.
const KeyRoomList = "rooms"

// KeyLobbyChat is the list holding recent lobby chat messages.
const KeyLobbyChat = "lobby:chat"

// KeyLobbyOnline is the set of user IDs currently present in the lobby.
const KeyLobbyOnline = "lobby:online"

// KeyRoom is the JSON record for one room.
func KeyRoom(roomID string) string {
	return "room:" + roomID
}

// KeyUserRoom is the reverse index from a user to the room they occupy.
func KeyUserRoom(userID string) string {
	return "user:room:" + userID
}

// KeyRoomChat is the list holding recent chat for one room.
func KeyRoomChat(roomID string) string {
	return "room:chat:" + roomID
}

// KeyGameState is the JSON record for a room's active game.
func KeyGameState(roomID string) string {
	return "game:state:" + roomID
}

// KeyRematch is the set of player IDs who offered a rematch in a room.
func KeyRematch(roomID string) string {
	return "game:rematch:" + roomID
}

// KeyChatRate is the chat rate-limit counter for one user, shared across
// lobby and room chat.
func KeyChatRate(userID string) string {
	return "chat:rate:" + userID
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
