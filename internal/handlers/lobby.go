// internal/handlers/lobby.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

// handleLobbyJoin subscribes the session to lobby broadcasts and sends the
// current room list, chat history and online count.
func (s *Server) handleLobbyJoin(ctx context.Context, sess *ws.Session) {
	s.Broker.JoinLobby(sess)

	if err := s.Rdb.SAdd(ctx, cache.KeyLobbyOnline, sess.UserID).Err(); err != nil {
		s.Logger.Warnf("lobby presence add failed for %s: %v", sess.UserID, err)
	}

	rooms, err := s.Rooms.List(ctx)
	if err != nil {
		s.Logger.Errorf("room list failed: %v", err)
		sess.WriteError("failed to list rooms", "INTERNAL")
		return
	}
	sess.WriteEvent("lobby:rooms", map[string]interface{}{"rooms": rooms})

	history, err := s.Chat.History(ctx, models.ChannelLobby, "")
	if err != nil {
		s.Logger.Warnf("lobby chat history failed: %v", err)
	} else {
		sess.WriteEvent("lobby:chat_history", map[string]interface{}{"messages": history})
	}

	s.broadcastOnlineCount(ctx)
}

// handleLobbyLeave removes the session from lobby presence. Safe to call on
// disconnect even when the user never joined the lobby.
func (s *Server) handleLobbyLeave(ctx context.Context, sess *ws.Session) {
	s.Broker.LeaveLobby(sess)
	if err := s.Rdb.SRem(ctx, cache.KeyLobbyOnline, sess.UserID).Err(); err != nil {
		s.Logger.Warnf("lobby presence remove failed for %s: %v", sess.UserID, err)
	}
	s.broadcastOnlineCount(ctx)
}

func (s *Server) broadcastOnlineCount(ctx context.Context) {
	count, err := s.Rdb.SCard(ctx, cache.KeyLobbyOnline).Result()
	if err != nil {
		s.Logger.Warnf("lobby online count failed: %v", err)
		return
	}
	s.Broker.ToLobby("lobby:online_count", map[string]interface{}{"count": count})
}

type chatPayload struct {
	Text string `json:"text"`
}

func (s *Server) handleLobbyChat(ctx context.Context, sess *ws.Session, data []byte) {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		sess.WriteError("malformed chat payload", "INVALID_INPUT")
		return
	}

	msg, err := s.Chat.Send(ctx, models.ChannelLobby, "", sess.UserID, sess.Name, p.Text)
	if err != nil {
		// Rejected sends drop without feedback; only infrastructure
		// failures are worth a log line.
		if !errors.Is(err, errs.ErrInvalidInput) && !errors.Is(err, errs.ErrRateLimited) {
			s.Logger.Warnf("lobby chat send failed for %s: %v", sess.UserID, err)
		}
		return
	}
	s.Broker.ToLobby("lobby:chat", map[string]interface{}{"message": msg})
}
