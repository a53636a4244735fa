package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/ws"
)

// HandleGameWebSocket handles real-time match communication
func HandleGameWebSocket(hub *ws.Hub) gin.HandlerFunc {
	return hub.HandleWebSocket
}
