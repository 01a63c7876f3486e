package conversation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Frame is one unit of the outbound event stream. Exactly two kinds exist:
// a PersistedFrame mirrors a message row that was just written, a
// TerminalFrame closes the turn and is never persisted.
type Frame interface {
	// Role of the frame as rendered to the client.
	Role() Role
	// MarshalPayload renders the frame body for the data field.
	MarshalPayload() ([]byte, error)
}

// FrameWriter is the transport half of a live stream. WriteFrame flushes one
// discrete frame; WriteError emits the single terminal error frame of a
// failed stream. Both must be safe to call from the assembling goroutine.
type FrameWriter interface {
	WriteFrame(frame Frame) error
	WriteError(message string) error
}

// wireFrame is the outward JSON shape shared by both frame kinds.
type wireFrame struct {
	UserID         uint            `json:"user_id"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	MessageID      uuid.UUID       `json:"message_id"`
	Role           Role            `json:"role"`
	Content        json.RawMessage `json:"content,omitempty"`
	Text           string          `json:"text,omitempty"`
	Sequence       int             `json:"sequence"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PersistedFrame mirrors a stored message.
type PersistedFrame struct {
	Message *Message
}

func (f PersistedFrame) Role() Role { return f.Message.Role }

func (f PersistedFrame) MarshalPayload() ([]byte, error) {
	return json.Marshal(wireFrame{
		UserID:         f.Message.UserID,
		ConversationID: f.Message.ConversationID,
		MessageID:      f.Message.ID,
		Role:           f.Message.Role,
		Content:        f.Message.Payload,
		Text:           f.Message.Content,
		Sequence:       f.Message.Sequence,
		CreatedAt:      f.Message.CreatedAt.UTC(),
	})
}

// TerminalFrame ends a successful turn. Its message id is freshly generated
// and backs no row.
type TerminalFrame struct {
	UserID         uint
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	Sequence       int
	CreatedAt      time.Time
}

func NewTerminalFrame(userID uint, conversationID uuid.UUID, sequence int) TerminalFrame {
	return TerminalFrame{
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      uuid.New(),
		Sequence:       sequence,
		CreatedAt:      time.Now().UTC(),
	}
}

func (f TerminalFrame) Role() Role { return RoleResult }

func (f TerminalFrame) MarshalPayload() ([]byte, error) {
	return json.Marshal(wireFrame{
		UserID:         f.UserID,
		ConversationID: f.ConversationID,
		MessageID:      f.MessageID,
		Role:           RoleResult,
		Sequence:       f.Sequence,
		CreatedAt:      f.CreatedAt,
	})
}
