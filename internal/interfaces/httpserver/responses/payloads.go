package responses

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/domain/workflow"
)

// UserPayload is the public view of an account.
type UserPayload struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromUser maps the domain user to its DTO.
func FromUser(u *user.User) UserPayload {
	return UserPayload{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Company:   u.Company,
		CreatedAt: u.CreatedAt,
	}
}

// ConversationPayload is returned to clients.
type ConversationPayload struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromConversation maps the domain conversation to its DTO.
func FromConversation(c *conversation.Conversation) ConversationPayload {
	return ConversationPayload{
		ID:        c.ID,
		Title:     c.Title,
		Type:      c.Type,
		IsPinned:  c.Pinned,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// MessagePayload is one stored message row.
type MessagePayload struct {
	ID              uuid.UUID       `json:"id"`
	ConversationID  uuid.UUID       `json:"conversation_id"`
	ParentMessageID *uuid.UUID      `json:"parent_message_id,omitempty"`
	Role            string          `json:"role"`
	Text            string          `json:"text"`
	Content         json.RawMessage `json:"content,omitempty"`
	Sequence        int             `json:"sequence"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FromMessage maps the domain message to its DTO.
func FromMessage(m *conversation.Message) MessagePayload {
	return MessagePayload{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		ParentMessageID: m.ParentMessageID,
		Role:            string(m.Role),
		Text:            m.Content,
		Content:         m.Payload,
		Sequence:        m.Sequence,
		CreatedAt:       m.CreatedAt,
	}
}

// TurnPayload groups a root user message with the replies it produced.
type TurnPayload struct {
	Root    MessagePayload   `json:"root"`
	Replies []MessagePayload `json:"replies"`
}

// MessageHistoryResponse is the turn-grouped message listing with a keyset
// cursor on the root message timestamp.
type MessageHistoryResponse struct {
	Turns      []TurnPayload `json:"turns"`
	NextCursor *time.Time    `json:"next_cursor,omitempty"`
}

// GroupTurns folds a flat ordered message list into turns, newest root
// first. Cursor excludes roots at or after the given instant; limit bounds
// the number of turns returned.
func GroupTurns(messages []conversation.Message, cursor *time.Time, limit int) MessageHistoryResponse {
	children := make(map[uuid.UUID][]MessagePayload)
	var roots []conversation.Message
	for i := range messages {
		m := messages[i]
		if m.ParentMessageID != nil {
			children[*m.ParentMessageID] = append(children[*m.ParentMessageID], FromMessage(&m))
			continue
		}
		roots = append(roots, m)
	}

	// Newest-first over roots.
	turns := make([]TurnPayload, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		root := roots[i]
		if cursor != nil && !root.CreatedAt.Before(*cursor) {
			continue
		}
		turns = append(turns, TurnPayload{
			Root:    FromMessage(&root),
			Replies: children[root.ID],
		})
		if limit > 0 && len(turns) == limit {
			break
		}
	}

	resp := MessageHistoryResponse{Turns: turns}
	if limit > 0 && len(turns) == limit {
		last := turns[len(turns)-1].Root.CreatedAt
		resp.NextCursor = &last
	}
	return resp
}

// WorkflowPayload is returned to clients.
type WorkflowPayload struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Prompt     string              `json:"prompt"`
	IsActive   bool                `json:"is_active"`
	RunOptions workflow.RunOptions `json:"run_options"`
	LastRunAt  *time.Time          `json:"last_run_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// FromWorkflow maps the domain workflow to its DTO.
func FromWorkflow(w *workflow.Workflow) WorkflowPayload {
	return WorkflowPayload{
		ID:         w.ID,
		Name:       w.Name,
		Prompt:     w.Prompt,
		IsActive:   w.Active,
		RunOptions: w.RunOptions,
		LastRunAt:  w.LastRunAt,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// WorkflowRunPayload is one execution record.
type WorkflowRunPayload struct {
	ID             uuid.UUID  `json:"id"`
	WorkflowID     uuid.UUID  `json:"workflow_id"`
	Prompt         string     `json:"prompt"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FromWorkflowRun maps the domain run to its DTO.
func FromWorkflowRun(r *workflow.Run) WorkflowRunPayload {
	return WorkflowRunPayload{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		Prompt:         r.Prompt,
		ConversationID: r.ConversationID,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// IntegrationListResponse splits the catalog by connection state.
type IntegrationListResponse struct {
	Active   []integration.Item `json:"active"`
	Inactive []integration.Item `json:"inactive"`
}
