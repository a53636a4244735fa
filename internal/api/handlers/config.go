package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/config"
)

// GetConfig returns the table geometry and match rules clients need to draw
// and predict frames.
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ball_radius":          carom.BallRadius,
			"table_width":          carom.TableWidth,
			"table_depth":          carom.TableDepth,
			"stick_length":         carom.StickLength,
			"starting_score":       carom.StartingScore,
			"rally_points":         carom.RallyPoints,
			"layout":               carom.StandardLayout(),
			"walls":                carom.StandardWalls(),
			"tick_rate_hz":         cfg.TickRateHz,
			"winning_score":        cfg.WinningScore,
			"idle_warning_seconds": cfg.IdleWarningSeconds,
			"idle_forfeit_seconds": cfg.IdleForfeitSeconds,
		})
	}
}
