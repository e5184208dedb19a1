// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/davidagustin/tic-tac-toe/internal/auth"
	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/database"
	"github.com/davidagustin/tic-tac-toe/internal/handlers"
	"github.com/davidagustin/tic-tac-toe/internal/middleware"
)

func main() {
	if err := auth.Init(); err != nil {
		log.Fatalf("failed to load signing keys: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	srv := handlers.NewServer(logger, cache.Rdb, database.Recorder{})

	// 5 credential attempts per IP with slow refill
	authLimiter := middleware.NewIPRateLimiter(rate.Limit(0.2), 5)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Routes(authLimiter)); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
