package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// streamTurn assembles one agent session into persisted messages and outward
// frames. Every content block becomes one message parented to root, written
// before its frame is flushed, so the stored log never lags what the client
// saw. A result event emits the ephemeral terminal frame and ends the turn.
func (s *Service) streamTurn(ctx context.Context, conv *Conversation, root *Message, prompt string, w FrameWriter) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.runner.Run(runCtx, prompt)
	if err != nil {
		_ = w.WriteError("failed to start agent session")
		return err
	}

	seq := 0
	for event := range stream.Events() {
		switch event.Type {
		case agent.EventTypeRaw:
			s.log.Debug().
				Str("conversation_id", conv.ID.String()).
				Str("line", event.Raw).
				Msg("unparsed agent output")

		case agent.EventTypeResult:
			seq++
			frame := NewTerminalFrame(root.UserID, conv.ID, seq)
			if err := w.WriteFrame(frame); err != nil {
				return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeInternal, "failed to flush terminal frame", err)
			}
			return nil

		case agent.EventTypeAssistant, agent.EventTypeUser:
			if event.Message == nil {
				continue
			}
			for i := range event.Message.Content {
				block := &event.Message.Content[i]
				seq++
				msg := &Message{
					ID:              uuid.New(),
					UserID:          root.UserID,
					ConversationID:  conv.ID,
					ParentMessageID: &root.ID,
					Role:            classifyBlock(event.Type, block),
					Content:         block.DisplayText(),
					Payload:         block.Raw(),
					Sequence:        seq,
					CreatedAt:       time.Now().UTC(),
				}
				if err := s.persistAndEmit(ctx, conv, msg, w); err != nil {
					return err
				}
			}
		}
	}

	// The event channel closed without a result sentinel: either the
	// process failed or it exited before completing the turn.
	if err := stream.Err(); err != nil {
		var procErr *agent.ProcessError
		if errors.As(err, &procErr) {
			_ = w.WriteError(procErr.Error())
			return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeProcessFailure, "agent session failed", err)
		}
		_ = w.WriteError("agent session interrupted")
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "agent session interrupted")
	}
	_ = w.WriteError("agent session ended without completing the turn")
	return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeProcessFailure, "agent session ended without a result event", nil)
}

// persistAndEmit writes the message, bumps the conversation and flushes the
// matching frame. A persistence failure aborts the turn with an error frame;
// rows already written stay written.
func (s *Service) persistAndEmit(ctx context.Context, conv *Conversation, msg *Message, w FrameWriter) error {
	if err := s.messages.Create(ctx, msg); err != nil {
		_ = w.WriteError("failed to persist message")
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to persist message")
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		_ = w.WriteError("failed to persist message")
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to touch conversation")
	}
	if err := w.WriteFrame(PersistedFrame{Message: msg}); err != nil {
		return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeInternal, "failed to flush frame", err)
	}
	return nil
}

// classifyBlock maps a content block to its message role. Blocks of an
// assistant event are tool invocations or plain assistant text; blocks of a
// user event carry tool results fed back into the session.
func classifyBlock(eventType agent.EventType, block *agent.ContentBlock) Role {
	switch eventType {
	case agent.EventTypeAssistant:
		if block.IsToolUse() {
			return RoleToolUse
		}
	case agent.EventTypeUser:
		if block.IsToolResult() {
			return RoleToolResult
		}
	}
	return RoleAssistant
}
