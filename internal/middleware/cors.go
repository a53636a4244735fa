package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/config"
)

// devOrigins are accepted outside production alongside FRONTEND_URL.
var devOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
}

// AllowedOrigins lists the browser origins for the environment.
func AllowedOrigins(cfg *config.Config) []string {
	var origins []string
	if !cfg.IsProduction() {
		origins = append(origins, devOrigins...)
	}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	return origins
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return OriginAllowed(cfg, origin)
		},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// OriginAllowed reports whether a browser origin is accepted. Development
// also accepts any localhost port.
func OriginAllowed(cfg *config.Config, origin string) bool {
	if !cfg.IsProduction() &&
		(strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
		return true
	}
	for _, allowed := range AllowedOrigins(cfg) {
		if origin == allowed {
			return true
		}
	}
	return false
}

// CheckOrigin adapts OriginAllowed for the websocket upgrader. Requests
// without an Origin header come from native clients and are let through.
func CheckOrigin(cfg *config.Config) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || OriginAllowed(cfg, origin)
	}
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" && !OriginAllowed(cfg, origin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "WebSocket origin not allowed"})
			return
		}

		c.Next()
	}
}
