package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/service"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/ws"
	"github.com/gin-gonic/gin"
)

// MessageHandler handles message send, history, long-poll and read-receipt
// endpoints.
type MessageHandler struct {
	messages *service.MessageService
	poller   *service.Poller
	hub      *ws.Hub
}

func NewMessageHandler(messages *service.MessageService, poller *service.Poller, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, poller: poller, hub: hub}
}

// Send godoc
// @Summary Send a message into a conversation
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.SendMessageRequest true "Message content"
// @Success 201 {object} model.Message
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID, role := principal(c)
	conversationID := c.Param("id")
	msg, err := h.messages.Send(conversationID, userID, role, nil, req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Advisory fan-out; pollers are the authoritative delivery path.
	if conv, lerr := h.messages.Lookup(conversationID); lerr == nil {
		h.hub.SendToUser(conv.OtherUserID(userID), &model.WSEvent{
			Type:    model.WSEventNewMessage,
			Payload: msg,
		})
	}

	c.JSON(http.StatusCreated, msg)
}

// History godoc
// @Summary Get message history for a conversation
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param before query int false "Cursor: message id to page backwards from"
// @Param limit query int false "Messages per page (default 50)"
// @Success 200 {array} model.Message
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) History(c *gin.Context) {
	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request"})
		return
	}

	var before *int64
	if req.Before != "" {
		parsed, err := strconv.ParseInt(req.Before, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid before cursor"})
			return
		}
		before = &parsed
	}

	userID, role := principal(c)
	messages, err := h.messages.History(c.Param("id"), userID, role, nil, before, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Poll godoc
// @Summary Long-poll for new messages
// @Description Holds the request open until messages newer than `since` arrive or the timeout elapses. A timeout returns 200 with an empty list, never an error.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param since query string false "Watermark: RFC3339 sent_at of the last seen message"
// @Param timeout query int false "Seconds to wait, capped at 60 (default 30)"
// @Param max query int false "Maximum messages to return, capped at 100 (default 50)"
// @Success 200 {object} model.PollResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id}/messages/poll [get]
func (h *MessageHandler) Poll(c *gin.Context) {
	req, err := parsePollRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	conv, lerr := h.messages.Lookup(c.Param("id"))
	if lerr != nil {
		respondError(c, lerr)
		return
	}

	userID, role := principal(c)
	resp, perr := h.poller.Poll(c.Request.Context(), conv, userID, role, nil, *req)
	if perr != nil {
		if errors.Is(perr, context.Canceled) {
			// Client disconnected mid-wait; nothing left to answer.
			c.Abort()
			return
		}
		respondError(c, perr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkRead godoc
// @Summary Mark all messages in a conversation as read
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.SuccessResponse
// @Router /conversations/{id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, role := principal(c)
	conversationID := c.Param("id")
	if err := h.messages.MarkRead(conversationID, userID, role, nil); err != nil {
		respondError(c, err)
		return
	}

	if conv, lerr := h.messages.Lookup(conversationID); lerr == nil {
		h.hub.SendToUser(conv.OtherUserID(userID), &model.WSEvent{
			Type: model.WSEventMessageRead,
			Payload: model.MessageReadEvent{
				ConversationID: conversationID,
				UserID:         userID,
				ReadAt:         time.Now(),
			},
		})
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Messages marked as read"})
}

// parsePollRequest validates the poll query parameters up front; a malformed
// watermark is rejected before the wait loop ever starts.
func parsePollRequest(c *gin.Context) (*model.PollRequest, error) {
	req := &model.PollRequest{}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			if since, err = time.Parse(time.RFC3339, raw); err != nil {
				return nil, errors.New("invalid since timestamp, expected RFC3339")
			}
		}
		req.Since = &since
	}

	if raw := c.Query("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return nil, errors.New("invalid timeout, expected non-negative seconds")
		}
		req.Timeout = time.Duration(seconds) * time.Second
	}

	if raw := c.Query("max"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil || max < 0 {
			return nil, errors.New("invalid max, expected non-negative integer")
		}
		req.Max = max
	}

	return req, nil
}
