package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/harmix/assistant-api/internal/domain/conversation"
)

// Message represents the database schema for the append-only message log.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	UserID          uint           `gorm:"index;not null"`
	ConversationID  uuid.UUID      `gorm:"type:uuid;index:idx_message_conversation_seq;not null"`
	ParentMessageID *uuid.UUID     `gorm:"type:uuid;index"`
	Role            string         `gorm:"type:varchar(20);not null"`
	Content         string         `gorm:"type:text;not null"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	Sequence        int            `gorm:"index:idx_message_conversation_seq;not null;default:0"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns the primary key when the domain left it blank.
func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// EtoD converts database entity to domain model
func (m *Message) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:              m.ID,
		UserID:          m.UserID,
		ConversationID:  m.ConversationID,
		ParentMessageID: m.ParentMessageID,
		Role:            conversation.Role(m.Role),
		Content:         m.Content,
		Payload:         json.RawMessage(m.Payload),
		Sequence:        m.Sequence,
		CreatedAt:       m.CreatedAt,
	}
}

// NewSchemaMessage creates a database entity from domain model
func NewSchemaMessage(m *conversation.Message) *Message {
	return &Message{
		ID:              m.ID,
		UserID:          m.UserID,
		ConversationID:  m.ConversationID,
		ParentMessageID: m.ParentMessageID,
		Role:            string(m.Role),
		Content:         m.Content,
		Payload:         datatypes.JSON(m.Payload),
		Sequence:        m.Sequence,
		CreatedAt:       m.CreatedAt,
	}
}
