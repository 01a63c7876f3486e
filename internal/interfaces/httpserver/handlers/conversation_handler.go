package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/requests"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const defaultTurnLimit = 20

// ConversationHandler exposes the conversation CRUD surface.
type ConversationHandler struct {
	conversations *conversation.Service
	log           zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(conversations *conversation.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		log:           log.With().Str("handler", "conversation").Logger(),
	}
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	items, err := h.conversations.List(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	payload := make([]responses.ConversationPayload, len(items))
	for i := range items {
		payload[i] = responses.FromConversation(&items[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// Get handles GET /v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversations.Get(c.Request.Context(), userID, id)
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, responses.FromConversation(conv))
}

// Update handles PATCH /v1/conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req requests.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "invalid request body")
		return
	}

	conv, err := h.conversations.Update(c.Request.Context(), userID, id, conversation.ConversationPatch{
		Title:  req.Title,
		Type:   req.Type,
		Pinned: req.IsPinned,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update conversation")
		return
	}

	c.JSON(http.StatusOK, responses.FromConversation(conv))
}

// Delete handles DELETE /v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.conversations.Delete(c.Request.Context(), userID, id); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.Status(http.StatusNoContent)
}

// Messages handles GET /v1/messages?conversation_id=&limit=&cursor=
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	conversationID, err := uuid.Parse(c.Query("conversation_id"))
	if err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "conversation_id must be a valid uuid")
		return
	}

	limit := defaultTurnLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			responses.HandleNewError(c, apperrors.ErrorTypeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			responses.HandleNewError(c, apperrors.ErrorTypeValidation, "cursor must be an RFC3339 timestamp")
			return
		}
		cursor = &parsed
	}

	messages, err := h.conversations.Messages(c.Request.Context(), userID, conversationID)
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, responses.GroupTurns(messages, cursor, limit))
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, name+" must be a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}
