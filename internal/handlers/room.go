// internal/handlers/room.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/room"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

type roomCreatePayload struct {
	Name     string          `json:"name"`
	Password string          `json:"password"`
	GameType models.GameType `json:"gameType"`
}

type roomJoinPayload struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
}

type roomKickPayload struct {
	UserID string `json:"userId"`
}

func (s *Server) handleRoomCreate(ctx context.Context, sess *ws.Session, data []byte) {
	if sess.IsGuest {
		sess.WriteError("Guests cannot create rooms. Please sign up!", "FORBIDDEN")
		return
	}

	var p roomCreatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		sess.WriteError("malformed create payload", "INVALID_INPUT")
		return
	}
	if p.GameType == "" {
		p.GameType = models.GameTypeTicTacToe
	}

	created, err := s.Rooms.Create(ctx, p.Name, p.Password, p.GameType, room.HostInfo{
		UserID: sess.UserID,
		Name:   sess.Name,
		Rating: sess.Rating,
	})
	if err != nil {
		sess.WriteError(roomErrorMessage(err), errs.Code(err))
		return
	}

	s.Broker.JoinRoom(created.ID, sess)

	info := created.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_added", map[string]interface{}{"room": info})

	sess.WriteEvent("room:created", map[string]interface{}{"roomId": created.ID})
	sess.WriteEvent("room:state", map[string]interface{}{"room": created.Sanitized()})
}

func (s *Server) handleRoomJoin(ctx context.Context, sess *ws.Session, data []byte) {
	var p roomJoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		sess.WriteError("malformed join payload", "INVALID_INPUT")
		return
	}

	if current, err := s.Rooms.UserRoom(ctx, sess.UserID); err == nil && current != "" && current != p.RoomID {
		sess.WriteError("You are already in another room", "ALREADY_IN_ROOM")
		return
	}

	joined, err := s.Rooms.Join(ctx, p.RoomID, p.Password, models.RoomMember{
		UserID:    sess.UserID,
		Name:      sess.Name,
		Rating:    sess.Rating,
		Role:      models.RoleSpectator, // Join assigns the real role
		Connected: true,
	})
	if err != nil {
		sess.WriteError(roomErrorMessage(err), errs.Code(err))
		return
	}

	s.Broker.JoinRoom(joined.ID, sess)

	sess.WriteEvent("room:state", map[string]interface{}{"room": joined.Sanitized()})

	history, err := s.Chat.History(ctx, models.ChannelRoom, joined.ID)
	if err != nil {
		s.Logger.Warnf("room chat history failed for %s: %v", joined.ID, err)
	} else {
		sess.WriteEvent("room:chat_history", map[string]interface{}{"messages": history})
	}

	if member := joined.Member(sess.UserID); member != nil {
		s.Broker.ToRoomExcept(joined.ID, sess.UserID, "room:player_joined",
			map[string]interface{}{"member": member})
	}

	info := joined.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

// handleRoomLeave removes the session's user from whatever room they occupy.
// It is the shared exit path for explicit leaves, kicks and disconnects, and
// is a no-op when the user is not in a room.
func (s *Server) handleRoomLeave(ctx context.Context, sess *ws.Session) {
	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	s.Broker.LeaveRoom(roomID, sess)

	result, err := s.Rooms.Leave(ctx, roomID, sess.UserID)
	if err != nil {
		s.Logger.Warnf("room leave failed for %s in %s: %v", sess.UserID, roomID, err)
		return
	}

	if result.Deleted {
		s.Broker.ToLobby("lobby:room_removed", map[string]interface{}{"roomId": roomID})
		return
	}

	payload := map[string]interface{}{"userId": sess.UserID}
	if result.NewHostID != "" {
		payload["newHostId"] = result.NewHostID
	}
	s.Broker.ToRoom(roomID, "room:player_left", payload)
	s.Broker.ToRoom(roomID, "room:state", map[string]interface{}{"room": result.Room.Sanitized()})

	info := result.Room.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

func (s *Server) handleRoomReady(ctx context.Context, sess *ws.Session) {
	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	updated, ready, allReady, err := s.Rooms.ToggleReady(ctx, roomID, sess.UserID)
	if err != nil {
		sess.WriteError(roomErrorMessage(err), errs.Code(err))
		return
	}

	s.Broker.ToRoom(roomID, "room:player_ready", map[string]interface{}{
		"userId":  sess.UserID,
		"isReady": ready,
	})

	if allReady && updated.Status == models.RoomWaiting {
		gen := s.Rooms.BeginCountdown(roomID)
		go s.runCountdown(roomID, gen)
	}
}

// runCountdown ticks the pre-game countdown once per second, then flips the
// room to playing and creates the game state. It aborts silently if the
// countdown generation was cancelled (a player left or un-readied).
func (s *Server) runCountdown(roomID string, gen uint64) {
	ctx := context.Background()

	for n := room.CountdownSeconds; n >= 0; n-- {
		if !s.Rooms.CountdownCurrent(roomID, gen) {
			return
		}
		s.Broker.ToRoom(roomID, "room:countdown", map[string]interface{}{"seconds": n})
		time.Sleep(time.Second)
	}

	if !s.Rooms.CountdownCurrent(roomID, gen) {
		return
	}

	updated, err := s.Rooms.SetStatus(ctx, roomID, models.RoomPlaying)
	if err != nil {
		s.Logger.Warnf("countdown start failed for room %s: %v", roomID, err)
		return
	}

	state, err := s.Games.CreateGame(ctx, updated)
	if err != nil {
		s.Logger.Errorf("game create failed for room %s: %v", roomID, err)
		return
	}

	s.Broker.ToRoom(roomID, "game:state", map[string]interface{}{"state": state})

	info := updated.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

func (s *Server) handleRoomKick(ctx context.Context, sess *ws.Session, data []byte) {
	var p roomKickPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		sess.WriteError("malformed kick payload", "INVALID_INPUT")
		return
	}

	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	current, err := s.Rooms.Get(ctx, roomID)
	if err != nil {
		return
	}
	if current.HostID != sess.UserID || p.UserID == sess.UserID {
		return
	}
	// No kicking mid-game; the seats are bound to the active game state.
	if current.Status == models.RoomPlaying {
		return
	}
	if current.Member(p.UserID) == nil {
		return
	}

	if target := s.Broker.Session(p.UserID); target != nil {
		target.WriteEvent("room:kicked", map[string]interface{}{"reason": "Kicked by host"})
		s.Broker.LeaveRoom(roomID, target)
	}

	result, err := s.Rooms.Leave(ctx, roomID, p.UserID)
	if err != nil {
		s.Logger.Warnf("kick removal failed for %s in %s: %v", p.UserID, roomID, err)
		return
	}
	if result.Room == nil {
		return
	}

	s.Broker.ToRoom(roomID, "room:player_left", map[string]interface{}{"userId": p.UserID})
	s.Broker.ToRoom(roomID, "room:state", map[string]interface{}{"room": result.Room.Sanitized()})

	info := result.Room.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

func (s *Server) handleRoomChat(ctx context.Context, sess *ws.Session, data []byte) {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		sess.WriteError("malformed chat payload", "INVALID_INPUT")
		return
	}

	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	msg, err := s.Chat.Send(ctx, models.ChannelRoom, roomID, sess.UserID, sess.Name, p.Text)
	if err != nil {
		if !errors.Is(err, errs.ErrInvalidInput) && !errors.Is(err, errs.ErrRateLimited) {
			s.Logger.Warnf("room chat send failed for %s in %s: %v", sess.UserID, roomID, err)
		}
		return
	}
	s.Broker.ToRoom(roomID, "room:chat", map[string]interface{}{"message": msg})
}

func roomErrorMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrAlreadyInRoom):
		return "You are already in a room"
	case errors.Is(err, errs.ErrNotFound):
		return "Room not found"
	case errors.Is(err, errs.ErrPasswordRequired):
		return "Password required"
	case errors.Is(err, errs.ErrWrongPassword):
		return "Wrong password"
	case errors.Is(err, errs.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, errs.ErrInvalidInput):
		return "Invalid room name"
	case errors.Is(err, errs.ErrForbidden):
		return "Not allowed"
	}
	return "Room operation failed"
}
