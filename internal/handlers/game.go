// internal/handlers/game.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/game"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/room"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

func (s *Server) handleGameMove(ctx context.Context, sess *ws.Session, data []byte) {
	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	result, err := s.Games.ProcessMove(ctx, roomID, sess.UserID, json.RawMessage(data))
	if err != nil {
		sess.WriteError(moveErrorMessage(err), errs.Code(err))
		return
	}

	if result.Moved != nil {
		s.Broker.ToRoom(roomID, "game:moved", result.Moved)
	}
	if result.GameOver() {
		s.finishGame(ctx, roomID, result)
	}
}

func (s *Server) handleGameForfeit(ctx context.Context, sess *ws.Session) {
	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	result, err := s.Games.ProcessForfeit(ctx, roomID, sess.UserID)
	if err != nil {
		// Nothing to concede without a live game.
		if errors.Is(err, errs.ErrNoActiveGame) || errors.Is(err, errs.ErrNotInProgress) {
			return
		}
		sess.WriteError(moveErrorMessage(err), errs.Code(err))
		return
	}
	if result.GameOver() {
		s.finishGame(ctx, roomID, result)
	}
}

// finishGame broadcasts the terminal payload, persists history and ratings,
// and resets the room back to waiting.
func (s *Server) finishGame(ctx context.Context, roomID string, result *game.MoveResult) {
	s.Broker.ToRoom(roomID, "game:over", result.Over)

	s.Games.Persist(ctx, result.State)

	reset, err := s.Games.EndGame(ctx, s.Rooms, roomID)
	if err != nil {
		s.Logger.Warnf("room reset failed for %s: %v", roomID, err)
		return
	}

	info := reset.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

func (s *Server) handleGameRematch(ctx context.Context, sess *ws.Session) {
	roomID, err := s.Rooms.UserRoom(ctx, sess.UserID)
	if err != nil || roomID == "" {
		return
	}

	current, err := s.Rooms.Get(ctx, roomID)
	if err != nil {
		return
	}
	if current.Player(sess.UserID) == nil {
		return
	}

	both, err := s.Games.OfferRematch(ctx, roomID, sess.UserID)
	if err != nil {
		s.Logger.Warnf("rematch offer failed for %s: %v", roomID, err)
		return
	}

	if !both {
		s.Broker.ToRoomExcept(roomID, sess.UserID, "game:rematch_offered",
			map[string]interface{}{"userId": sess.UserID})
		return
	}

	// Both players agreed. Swap sides, start a fresh game.
	state, err := s.Games.CreateRematch(ctx, current)
	if err != nil {
		s.Logger.Errorf("rematch create failed for %s: %v", roomID, err)
		return
	}
	if err := s.Rooms.Save(ctx, current); err != nil {
		s.Logger.Warnf("rematch room save failed for %s: %v", roomID, err)
	}

	updated, err := s.Rooms.SetStatus(ctx, roomID, models.RoomPlaying)
	if err != nil {
		s.Logger.Warnf("rematch status update failed for %s: %v", roomID, err)
		return
	}

	s.Broker.ToRoom(roomID, "game:rematch_start", map[string]interface{}{"state": state})

	info := updated.Summary(room.MaxPlayers, room.MaxSpectators)
	s.Broker.ToLobby("lobby:room_updated", map[string]interface{}{"room": info})
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrNoActiveGame):
		return "No active game"
	case errors.Is(err, errs.ErrNotInProgress):
		return "Game is not in progress"
	case errors.Is(err, errs.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, errs.ErrInvalidMove):
		return "Invalid move"
	case errors.Is(err, errs.ErrForbidden):
		return "Not a player in this game"
	}
	return "Move failed"
}
