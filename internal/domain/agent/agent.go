package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ===============================================
// Agent Event Types
// ===============================================

type EventType string

const (
	EventTypeAssistant EventType = "assistant"
	EventTypeUser      EventType = "user"
	EventTypeResult    EventType = "result"
	EventTypeRaw       EventType = "raw"
)

// ContentBlock is one unit of structured output from an agent session. The
// original JSON is retained verbatim so it can be persisted without loss.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the full block alongside the parsed fields.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*b = ContentBlock(parsed)
	b.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the block exactly as the agent emitted it.
func (b *ContentBlock) Raw() json.RawMessage {
	if b.raw != nil {
		return b.raw
	}
	encoded, err := json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
		Name string `json:"name,omitempty"`
	}{b.Type, b.Text, b.Name})
	if err != nil {
		return json.RawMessage("{}")
	}
	return encoded
}

// DisplayText is the trimmed free-text field used for legacy rendering.
func (b *ContentBlock) DisplayText() string {
	return strings.TrimSpace(b.Text)
}

// IsToolUse reports whether the block is a tool invocation.
func (b *ContentBlock) IsToolUse() bool {
	return b.Type == "tool_use"
}

// IsToolResult reports whether the block carries a tool result.
func (b *ContentBlock) IsToolResult() bool {
	return b.Type == "tool_result"
}

// EventMessage is the message envelope of an assistant/user event.
type EventMessage struct {
	Content []ContentBlock `json:"content"`
}

// Event is one decoded unit of agent output. Raw events carry the original
// line of a parse failure and never reach persistence.
type Event struct {
	Type    EventType     `json:"type"`
	Message *EventMessage `json:"message,omitempty"`
	Raw     string        `json:"-"`
}

// ===============================================
// Runner Contract
// ===============================================

// Stream is a single non-restartable agent session. Events is closed once the
// session ends; Err reports the terminal error, if any, after the close.
type Stream interface {
	Events() <-chan Event
	Err() error
}

// Runner starts agent sessions. Each Run spawns a fresh process; cancelling
// the context terminates the underlying process.
type Runner interface {
	Run(ctx context.Context, prompt string) (Stream, error)
}

// ProcessError reports a non-zero agent process exit.
type ProcessError struct {
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("agent process exited with code %d", e.ExitCode)
}
