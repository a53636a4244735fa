package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/game"
)

// GetPlayerStats returns a player's lifetime tallies.
func GetPlayerStats(store *game.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player id"})
			return
		}

		p, err := store.GetPlayer(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		winRate := 0.0
		if p.MatchesPlayed > 0 {
			winRate = float64(p.MatchesWon) / float64(p.MatchesPlayed) * 100
		}
		c.JSON(http.StatusOK, gin.H{
			"player":   p,
			"win_rate": winRate,
		})
	}
}

// GetLeaderboard ranks players by matches won.
func GetLeaderboard(store *game.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard unavailable"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		entries, err := store.Leaderboard(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
	}
}
