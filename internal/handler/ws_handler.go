package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ereas/ereas-backend/internal/middleware"
	"github.com/ereas/ereas-backend/internal/service"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// clockTick is the server-to-client message on the session clock stream.
type clockTick struct {
	Event            string  `json:"event"`
	SessionID        string  `json:"session_id"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// WSHandler streams the session clock over WebSocket. The stream is
// display-only; expiry is still enforced server-side on every save and
// submit, never by the clock.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionClockStream godoc
// WS /ws/v1/student/sessions/:sessionId/clock?token=...
// Pushes the remaining time once per second until the session expires or the
// client disconnects.
func (h *WSHandler) SessionClockStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	session, err := h.sessionService.GetOwnedActiveSession(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "session is not active"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.log.Debug().
		Str("session_id", sessionID.String()).
		Int("student_id", claims.UserID).
		Msg("Clock stream opened")

	// Discard inbound frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case now := <-ticker.C:
			remaining := session.ExpiresAt.Sub(now).Seconds()
			if remaining <= 0 {
				deadline := time.Now().Add(5 * time.Second)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session expired"), deadline)
				return
			}

			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(clockTick{
				Event:            "clock",
				SessionID:        sessionID.String(),
				RemainingSeconds: remaining,
			}); err != nil {
				return
			}
		}
	}
}
