package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playmatatu/carom/internal/api"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/database"
	"github.com/playmatatu/carom/internal/game"
	"github.com/playmatatu/carom/internal/middleware"
	"github.com/playmatatu/carom/internal/migrations"
	"github.com/playmatatu/carom/internal/redis"
	"github.com/playmatatu/carom/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run migrations before opening the pool so a fresh sqlite file gets its schema
	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it matches live in memory only
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL not set; idle worker, matchmaking and snapshots disabled")
	}

	gm := game.InitializeManager(ctx, game.NewStore(db), rdb, cfg)
	defer gm.Shutdown()

	hub := ws.NewHub(gm, middleware.CheckOrigin(cfg))
	go hub.Run(ctx)

	if rdb != nil {
		hub.StartEventSubscriber(ctx, rdb)
		game.StartIdleWorker(ctx, gm, rdb, cfg)
		go game.StartMatchmakerWorker(ctx, gm, rdb, cfg)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, gm, hub, rdb, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting carom server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
