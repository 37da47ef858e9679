// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sistema-bup-api-server/internal/api/middleware"
	"sistema-bup-api-server/internal/socket"
)

// Longest wait for any client frame, pings included.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub      *socket.Hub
	Sessions middleware.SessionReader
	Logger   zerolog.Logger
}

// ServeWs subscribes the connection to analysis changes of ?project=.
// Browsers cannot set headers on websocket requests, so the token comes in ?token=.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	projectID := c.Query("project")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Token is required"})
		return
	}
	if projectID == "" {
		badRequest(c, "project is required")
		return
	}

	session, err := h.Sessions.CurrentSession(c.Request.Context(), tokenString)
	if err != nil || session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.Hub.Register(projectID, conn)
	defer func() {
		h.Hub.Unregister(projectID, conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn().Err(err).Str("user_id", session.ID).Msg("unexpected websocket close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
