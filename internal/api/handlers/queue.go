package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/game"
	"github.com/redis/go-redis/v9"
)

// JoinQueue puts a player in the matchmaking queue.
func JoinQueue(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking unavailable"})
			return
		}
		var req struct {
			DisplayName string `json:"display_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
			return
		}
		name, ok := cleanDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid display_name"})
			return
		}

		t, err := game.Enqueue(c.Request.Context(), rdb, cfg, name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, t)
	}
}

// GetQueueTicket reports whether a ticket has been matched yet.
func GetQueueTicket(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking unavailable"})
			return
		}
		t, err := game.GetTicket(c.Request.Context(), rdb, c.Param("ticket"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}
