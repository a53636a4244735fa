package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/api/handlers"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/game"
	"github.com/playmatatu/carom/internal/middleware"
	"github.com/playmatatu/carom/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, gm *game.GameManager, hub *ws.Hub, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	store := gm.Store()
	playerAuth := middleware.PlayerAuth(cfg.JWTSecret)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(gm))
		v1.GET("/config", handlers.GetConfig(cfg))

		matches := v1.Group("/matches")
		{
			matches.POST("", handlers.CreateMatch(gm, cfg))
			matches.POST("/:token/join", handlers.JoinMatch(gm, cfg, hub))
			matches.GET("/:token", handlers.GetMatch(gm))
			matches.GET("/:token/me", playerAuth, handlers.GetMyMatch(gm))
			matches.POST("/:token/concede", playerAuth, handlers.ConcedeMatch(gm))
			matches.GET("/:token/path", handlers.GetAimPath(gm))
			matches.GET("/:token/qr", handlers.GetMatchQR(gm, cfg))
			matches.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleGameWebSocket(hub))
		}

		queue := v1.Group("/queue")
		{
			queue.POST("", handlers.JoinQueue(rdb, cfg))
			queue.GET("/:ticket", handlers.GetQueueTicket(rdb))
		}

		v1.GET("/players/:id/stats", handlers.GetPlayerStats(store))
		v1.GET("/leaderboard", handlers.GetLeaderboard(store))
	}
}
