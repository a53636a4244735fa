package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/game"
	"github.com/playmatatu/carom/internal/middleware"
	qrcode "github.com/skip2/go-qrcode"
)

// StateBroadcaster pushes the current state of a match to its connected players.
type StateBroadcaster interface {
	BroadcastState(m *game.Match)
}

type seatRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	PIN         string `json:"pin,omitempty"`
}

// CreateMatch opens a match for player 1. A PIN makes it private.
func CreateMatch(gm *game.GameManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req seatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
			return
		}
		name, ok := cleanDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid display_name"})
			return
		}

		m, p1, err := gm.CreateMatch(c.Request.Context(), name, req.PIN)
		if err != nil {
			log.Printf("[API] CreateMatch failed for %q: %v", name, err)
			respondError(c, err)
			return
		}

		resp, err := seatResponse(cfg, m, p1)
		if err != nil {
			respondError(c, err)
			return
		}
		resp["private"] = req.PIN != ""
		resp["expires_at"] = m.ExpiresAt
		c.JSON(http.StatusCreated, resp)
	}
}

// JoinMatch seats player 2 and starts the match.
func JoinMatch(gm *game.GameManager, cfg *config.Config, notify StateBroadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req seatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
			return
		}
		name, ok := cleanDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid display_name"})
			return
		}

		m, p2, err := gm.JoinMatch(c.Request.Context(), c.Param("token"), name, req.PIN)
		if err != nil {
			respondError(c, err)
			return
		}
		if notify != nil {
			notify.BroadcastState(m)
		}

		resp, err := seatResponse(cfg, m, p2)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetMatch returns the spectator view of a match. Matches no longer in memory
// are served from the Redis cache, then from the database.
func GetMatch(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if m, err := gm.GetMatch(token); err == nil {
			c.JSON(http.StatusOK, m.View(""))
			return
		}
		if v, err := gm.CachedView(c.Request.Context(), token); err == nil {
			c.JSON(http.StatusOK, v)
			return
		}
		if store := gm.Store(); store != nil {
			ms, err := store.GetSession(c.Request.Context(), token)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"session": ms})
			return
		}
		respondError(c, game.ErrMatchNotFound)
	}
}

// GetMyMatch returns the match as the authenticated player sees it.
func GetMyMatch(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := middleware.Claims(c)
		m, err := gm.GetMatch(c.Param("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.View(claims.PlayerID))
	}
}

// ConcedeMatch ends the match in the opponent's favour.
func ConcedeMatch(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := middleware.Claims(c)
		m, err := gm.GetMatch(c.Param("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		if err := gm.Concede(m, claims.PlayerID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.View(claims.PlayerID))
	}
}

// GetAimPath returns the preview dots from the active ball toward the marker.
func GetAimPath(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := gm.GetMatch(c.Param("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"points": m.AimPath()})
	}
}

// GetMatchQR renders the join link of a waiting match as a PNG.
func GetMatchQR(gm *game.GameManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := gm.GetMatch(c.Param("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		png, err := qrcode.Encode(joinURL(cfg, m.Token), qrcode.Medium, 256)
		if err != nil {
			log.Printf("[API] QR encode failed for %s: %v", m.Token, err)
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}
