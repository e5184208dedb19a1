// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/davidagustin/tic-tac-toe/internal/auth"
	"github.com/davidagustin/tic-tac-toe/internal/database"
	"github.com/davidagustin/tic-tac-toe/internal/middleware"
	"github.com/davidagustin/tic-tac-toe/internal/models"
	"github.com/davidagustin/tic-tac-toe/internal/rating"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

// envelope is the wire frame for every client event.
type envelope struct {
	Type string `json:"type"`
}

// WSHandler authenticates the handshake and runs the connection's read and
// write pumps. Credentials come from query params: either `token` (JWT) or
// `guest_id`+`guest_name` for guest play.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "game" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the game subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sess.Cancel = cancel

	if prev := s.Broker.Add(sess); prev != nil && prev.Cancel != nil {
		prev.Cancel()
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	go s.writePump(ctx, c, sess)
	s.readPump(ctx, c, sess)

	// Disconnect runs the same cleanup as explicit leaves.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cleanupCancel()
	s.handleRoomLeave(cleanupCtx, sess)
	s.handleLobbyLeave(cleanupCtx, sess)
	s.Broker.Remove(sess)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, nil)
}

// authenticate resolves the connection identity. Registered users carry a
// JWT; guests self-declare an opaque id and display name at seed rating.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*ws.Session, bool) {
	q := r.URL.Query()

	if token := q.Get("token"); token != "" {
		userID, name, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return nil, false
		}
		userRating := rating.SeedRating
		if id, parseErr := uuid.Parse(userID); parseErr == nil && database.DB != nil {
			if u, dbErr := database.GetUserByID(r.Context(), id); dbErr == nil {
				name = u.Username
				userRating = u.Rating
			}
		}
		return ws.NewSession(userID, name, userRating, false, nil), true
	}

	guestID := q.Get("guest_id")
	guestName := strings.TrimSpace(q.Get("guest_name"))
	if guestID != "" && guestName != "" {
		if !models.IsGuestID(guestID) {
			guestID = models.GuestIDPrefix + guestID
		}
		return ws.NewSession(guestID, guestName, rating.SeedRating, true, nil), true
	}

	http.Error(w, "authentication required", http.StatusUnauthorized)
	return nil, false
}

func (s *Server) readPump(ctx context.Context, c *websocket.Conn, sess *ws.Session) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				s.Logger.Infof("websocket closed normally for user %s", sess.UserID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				s.Logger.Warnf("read error for user %s: %v", sess.UserID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.Logger.Warnf("non-text message from user %s, ignoring", sess.UserID)
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			sess.WriteError("malformed event", "INVALID_INPUT")
			continue
		}
		s.dispatch(ctx, sess, env.Type, data)
	}
}

func (s *Server) writePump(ctx context.Context, c *websocket.Conn, sess *ws.Session) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		case msg, ok := <-sess.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing msg for user %s: %v", sess.UserID, err)
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

// dispatch routes one decoded event to its handler. Handler errors were
// already reported to the session; dispatch itself never fails the
// connection.
func (s *Server) dispatch(ctx context.Context, sess *ws.Session, event string, data []byte) {
	switch event {
	case "lobby:join":
		s.handleLobbyJoin(ctx, sess)
	case "lobby:leave":
		s.handleLobbyLeave(ctx, sess)
	case "lobby:chat":
		s.handleLobbyChat(ctx, sess, data)
	case "room:create":
		s.handleRoomCreate(ctx, sess, data)
	case "room:join":
		s.handleRoomJoin(ctx, sess, data)
	case "room:leave":
		s.handleRoomLeave(ctx, sess)
	case "room:ready":
		s.handleRoomReady(ctx, sess)
	case "room:kick":
		s.handleRoomKick(ctx, sess, data)
	case "room:chat":
		s.handleRoomChat(ctx, sess, data)
	case "game:move":
		s.handleGameMove(ctx, sess, data)
	case "game:forfeit":
		s.handleGameForfeit(ctx, sess)
	case "game:rematch":
		s.handleGameRematch(ctx, sess)
	default:
		sess.WriteError("unknown event type "+event, "INVALID_INPUT")
	}
}
