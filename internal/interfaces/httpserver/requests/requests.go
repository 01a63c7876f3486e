package requests

import (
	"github.com/google/uuid"

	"github.com/harmix/assistant-api/internal/domain/workflow"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Company  string `json:"company"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SendMessageRequest starts one assistant turn.
type SendMessageRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	Prompt         string     `json:"prompt" binding:"required"`
}

// UpdateConversationRequest patches conversation metadata.
type UpdateConversationRequest struct {
	Title    *string `json:"title"`
	Type     *string `json:"type"`
	IsPinned *bool   `json:"is_pinned"`
}

// CreateWorkflowRequest stores a new scheduled automation.
type CreateWorkflowRequest struct {
	Name       string              `json:"name" binding:"required"`
	Prompt     string              `json:"prompt" binding:"required"`
	RunOptions workflow.RunOptions `json:"run_options" binding:"required"`
}

// UpdateWorkflowRequest patches workflow fields.
type UpdateWorkflowRequest struct {
	Name       *string              `json:"name"`
	Prompt     *string              `json:"prompt"`
	IsActive   *bool                `json:"is_active"`
	RunOptions *workflow.RunOptions `json:"run_options"`
}
