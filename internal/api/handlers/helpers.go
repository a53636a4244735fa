package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/auth"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/game"
)

// letters, numbers, punctuation, symbols and spaces
var validName = regexp.MustCompile(`^[\p{L}\p{N}\p{P}\p{S}\p{Zs}]+$`)

// cleanDisplayName trims name and rejects empty, long or odd names.
func cleanDisplayName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 || !validName.MatchString(name) {
		return "", false
	}
	return name, true
}

// errorStatus maps session errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrMatchNotFound), errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidPIN), errors.Is(err, game.ErrUnknownPlayer):
		return http.StatusForbidden
	case errors.Is(err, game.ErrMatchFull), errors.Is(err, game.ErrMatchNotInProgress), errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict
	case errors.Is(err, auth.ErrBadPINFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// seatResponse is what a player needs to connect to their seat.
func seatResponse(cfg *config.Config, m *game.Match, p *game.MatchPlayer) (gin.H, error) {
	token, err := auth.IssuePlayerToken(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute, m.Token, p.ID, int(p.Slot))
	if err != nil {
		return nil, err
	}
	return gin.H{
		"match_id":     m.ID,
		"match_token":  m.Token,
		"player_id":    p.ID,
		"display_name": p.DisplayName,
		"slot":         p.Slot,
		"player_token": token,
		"ws_path":      "/api/v1/matches/" + m.Token + "/ws?pt=" + token,
		"join_url":     joinURL(cfg, m.Token),
	}, nil
}

func joinURL(cfg *config.Config, token string) string {
	return strings.TrimRight(cfg.FrontendURL, "/") + "/join/" + token
}
