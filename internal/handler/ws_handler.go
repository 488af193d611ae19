package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/service"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/ws"
	"github.com/Dave-code-creater/chiropractor-sub000/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer for the REST surface; the ws
	// endpoint authenticates by token instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades connections for the convenience broadcast path.
// Authentication rides in the query string because browsers cannot set
// headers on WebSocket dials.
type WSHandler struct {
	hub        *ws.Hub
	messages   *service.MessageService
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

func NewWSHandler(hub *ws.Hub, messages *service.MessageService, jwtManager *auth.JWTManager, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, messages: messages, jwtManager: jwtManager, logger: logger}
}

// HandleWebSocket godoc
// @Summary WebSocket endpoint for advisory event push
// @Description Non-authoritative fan-out of new_message/read/presence events. Connect with ?token=<jwt>.
// @Tags WebSocket
// @Param token query string true "JWT token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "token query parameter required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Role, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleEvent)
}

// handleEvent relays client-side events. Only typing indicators come up this
// path; message sends go through the REST surface.
func (h *WSHandler) handleEvent(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventTyping:
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return
		}
		var typing model.TypingEvent
		if err := json.Unmarshal(raw, &typing); err != nil || typing.ConversationID == "" {
			return
		}
		conv, err := h.messages.Lookup(typing.ConversationID)
		if err != nil || !conv.HasUser(client.UserID) {
			return
		}
		typing.UserID = client.UserID
		h.hub.SendToUser(conv.OtherUserID(client.UserID), &model.WSEvent{
			Type:    model.WSEventTyping,
			Payload: typing,
		})
	}
}
