// Package handlers wires the websocket protocol and HTTP endpoints to the
// room, chat, game, and account layers.
package handlers

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davidagustin/tic-tac-toe/internal/chat"
	"github.com/davidagustin/tic-tac-toe/internal/coordinator"
	"github.com/davidagustin/tic-tac-toe/internal/middleware"
	"github.com/davidagustin/tic-tac-toe/internal/room"
	"github.com/davidagustin/tic-tac-toe/internal/ws"
)

// Server holds every collaborator the handlers need.
type Server struct {
	Logger *logrus.Logger
	Rdb    *redis.Client
	Rooms  *room.Store
	Chat   *chat.Service
	Games  *coordinator.Coordinator
	Broker *ws.Broker
}

// NewServer assembles the handler layer. sink may be nil to disable game
// history persistence (e.g. when running without Postgres).
func NewServer(logger *logrus.Logger, rdb *redis.Client, sink coordinator.HistorySink) *Server {
	return &Server{
		Logger: logger,
		Rdb:    rdb,
		Rooms:  room.NewStore(rdb),
		Chat:   chat.NewService(rdb),
		Games:  coordinator.New(rdb, sink),
		Broker: ws.NewBroker(),
	}
}

// Routes builds the HTTP mux. authLimiter throttles the credential
// endpoints; pass nil to disable.
func (s *Server) Routes(authLimiter *middleware.IPRateLimiter) http.Handler {
	mux := http.NewServeMux()

	logged := middleware.LogMiddleware(s.Logger)
	limited := func(h http.Handler) http.Handler { return h }
	if authLimiter != nil {
		limited = authLimiter.Middleware
	}

	mux.Handle("/api/auth/register", logged(limited(http.HandlerFunc(s.RegisterHandler))))
	mux.Handle("/api/auth/login", logged(limited(http.HandlerFunc(s.LoginHandler))))
	mux.Handle("/api/user/ratings", logged(http.HandlerFunc(s.RatingsHandler)))
	mux.Handle("/api/game/history", logged(http.HandlerFunc(s.GameHistoryHandler)))
	mux.HandleFunc("/api/health", s.HealthHandler)

	mux.Handle("/ws", logged(http.HandlerFunc(s.WSHandler)))

	return mux
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
