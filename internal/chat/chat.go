// Package chat stores lobby and room chat in capped Redis lists with a
// shared per-user rate limit.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
)

const (
	MaxMessageLen = 200
	MaxHistory    = 50

	// MessageTTL is refreshed on every send, so only idle channels decay.
	MessageTTL = time.Hour

	RateLimitMessages = 5
	RateLimitWindow   = 10 * time.Second
)

// Service reads and writes chat channels.
type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

func channelKey(channel models.ChatChannel, roomID string) string {
	if channel == models.ChannelLobby {
		return cache.KeyLobbyChat
	}
	return cache.KeyRoomChat(roomID)
}

// Send validates, rate-limits, and appends a message, returning the stored
// record for broadcast. roomID is ignored for the lobby channel.
func (s *Service) Send(ctx context.Context, channel models.ChatChannel, roomID, userID, userName, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxMessageLen {
		return nil, fmt.Errorf("%w: message length", errs.ErrInvalidInput)
	}

	allowed, err := s.allowMessage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Channel:   channel,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal chat message: %w", err)
	}

	key := channelKey(channel, roomID)
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -MaxHistory, -1)
	pipe.Expire(ctx, key, MessageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}
	return msg, nil
}

// History returns the retained messages for a channel, oldest first.
func (s *Service) History(ctx context.Context, channel models.ChatChannel, roomID string) ([]models.ChatMessage, error) {
	raw, err := s.rdb.LRange(ctx, channelKey(channel, roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	out := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// allowMessage counts sends in a fixed window keyed per user.
func (s *Service) allowMessage(ctx context.Context, userID string) (bool, error) {
	key := cache.KeyChatRate(userID)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("chat rate limit: %w", err)
	}
	if count == 1 {
		s.rdb.Expire(ctx, key, RateLimitWindow)
	}
	return count <= RateLimitMessages, nil
}
