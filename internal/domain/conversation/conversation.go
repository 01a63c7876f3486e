package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTitle = "New Conversation"

	TypeChat    = "chat"
	TypeProject = "project"
	DefaultType = TypeChat
)

// ValidType reports whether t is an assignable conversation type.
func ValidType(t string) bool {
	return t == TypeChat || t == TypeProject
}

// Role classifies a message within a turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolUse    Role = "tool_use"
	RoleToolResult Role = "tool_result"
	RoleResult     Role = "result"
)

// Conversation is a user-owned thread of turns. Soft-deleted conversations
// are invisible to every lookup and listing.
type Conversation struct {
	ID        uuid.UUID
	UserID    uint
	Title     string
	Type      string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one append-only row of a turn. Non-root messages point at the
// originating user message; root messages have no parent. Content holds the
// trimmed display text, Payload the full structured block it came from.
// Sequence orders messages within their turn independently of the clock.
type Message struct {
	ID              uuid.UUID
	UserID          uint
	ConversationID  uuid.UUID
	ParentMessageID *uuid.UUID
	Role            Role
	Content         string
	Payload         json.RawMessage
	Sequence        int
	CreatedAt       time.Time
}

// ConversationPatch carries the mutable fields of an explicit update.
type ConversationPatch struct {
	Title  *string
	Type   *string
	Pinned *bool
}

// Repository persists conversations. Find returns NOT_FOUND for missing,
// soft-deleted and foreign-owned rows alike.
type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	Find(ctx context.Context, userID uint, id uuid.UUID) (*Conversation, error)
	ListByUser(ctx context.Context, userID uint, convType string) ([]Conversation, error)
	Update(ctx context.Context, userID uint, id uuid.UUID, patch ConversationPatch) (*Conversation, error)
	// Touch bumps the updated-at timestamp after a message lands.
	Touch(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, userID uint, id uuid.UUID) error
}

// MessageRepository persists the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListByConversation(ctx context.Context, userID uint, conversationID uuid.UUID) ([]Message, error)
}
