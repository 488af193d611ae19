package handler

import (
	"net/http"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ConversationHandler handles conversation lifecycle endpoints
type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// Create godoc
// @Summary Open a conversation with another user
// @Description Creates a conversation, or returns the existing active one for the pair. Idempotent per active participant pair.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateConversationRequest true "Target user and subject"
// @Success 201 {object} model.ConversationResponse
// @Success 200 {object} model.ConversationResponse "existing conversation reused"
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req model.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID, role := principal(c)
	resp, err := h.conversations.Create(userID, role, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if resp.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// List godoc
// @Summary List the caller's conversations
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ConversationResponse
// @Router /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	userID, _ := principal(c)
	conversations, err := h.conversations.List(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// Get godoc
// @Summary Get a specific conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, role := principal(c)
	resp, err := h.conversations.Get(c.Param("id"), userID, role, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary Update conversation status
// @Description Closing is limited to doctors and staff; deleted is a soft delete.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.UpdateConversationStatusRequest true "New status"
// @Success 200 {object} model.ConversationResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/status [patch]
func (h *ConversationHandler) UpdateStatus(c *gin.Context) {
	var req model.UpdateConversationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID, role := principal(c)
	resp, err := h.conversations.UpdateStatus(c.Param("id"), req.Status, userID, role, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Purge godoc
// @Summary Hard-delete a conversation and its messages
// @Description Destructive admin-only operation. The regular delete is a status flip via PATCH /status.
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id} [delete]
func (h *ConversationHandler) Purge(c *gin.Context) {
	_, role := principal(c)
	if err := h.conversations.Purge(c.Param("id"), role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Conversation deleted"})
}
