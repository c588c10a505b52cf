package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler pushes ledger events to the owner's open websocket sessions.
// It implements services.EventPublisher.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-Alive Configuration (Critical for Render.com/Cloud hosting)
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(middleware.ContextUserID)
		id, _ := userID.(string)
		utils.LogWebSocket("connected", id)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(middleware.ContextUserID)
		id, _ := userID.(string)
		utils.LogWebSocket("disconnected", id)
	})

	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("WebSocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and tags the session with the caller's id
func (h *WSHandler) HandleWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	keys := map[string]interface{}{middleware.ContextUserID: userID}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		utils.SafeError("Failed to upgrade websocket: %v", err)
	}
}

type wsEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Publish sends event to every session of userID.
func (h *WSHandler) Publish(userID, event string, payload interface{}) {
	msg, err := json.Marshal(wsEvent{Type: event, Payload: eventPayload(payload), At: time.Now()})
	if err != nil {
		utils.SafeError("Failed to encode %s event: %v", event, err)
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get(middleware.ContextUserID)
		return exists && id == userID
	})
	if err != nil {
		utils.SafeWarn("Error broadcasting %s to user %s: %v", event, utils.MaskID(userID), err)
	}
}
