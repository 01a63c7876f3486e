package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// Service orchestrates conversations and drives live turn streams.
type Service struct {
	conversations Repository
	messages      MessageRepository
	runner        agent.Runner
	log           zerolog.Logger
}

func NewService(conversations Repository, messages MessageRepository, runner agent.Runner, log zerolog.Logger) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		runner:        runner,
		log:           log.With().Str("component", "conversation_service").Logger(),
	}
}

// List returns the user's visible conversations, optionally filtered by type.
func (s *Service) List(ctx context.Context, userID uint, convType string) ([]Conversation, error) {
	items, err := s.conversations.ListByUser(ctx, userID, convType)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list conversations")
	}
	return items, nil
}

// Get resolves one conversation owned by the user.
func (s *Service) Get(ctx context.Context, userID uint, id uuid.UUID) (*Conversation, error) {
	c, err := s.conversations.Find(ctx, userID, id)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load conversation")
	}
	return c, nil
}

// Update patches title, type or the pinned flag.
func (s *Service) Update(ctx context.Context, userID uint, id uuid.UUID, patch ConversationPatch) (*Conversation, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "title must not be blank", nil)
	}
	if patch.Type != nil && !ValidType(*patch.Type) {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "type must be chat or project", nil)
	}
	c, err := s.conversations.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to update conversation")
	}
	return c, nil
}

// Delete soft-deletes the conversation; its messages stay on disk.
func (s *Service) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	if err := s.conversations.SoftDelete(ctx, userID, id); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// Messages returns the full ordered log of a conversation.
func (s *Service) Messages(ctx context.Context, userID uint, conversationID uuid.UUID) ([]Message, error) {
	if _, err := s.conversations.Find(ctx, userID, conversationID); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load conversation")
	}
	items, err := s.messages.ListByConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list messages")
	}
	return items, nil
}

// Send runs one full turn: it resolves or creates the conversation, persists
// the root user message, then streams the agent session through w. The root
// message is durable before the agent starts, so a crash mid-stream never
// loses the user's input. Frames are written in adapter order. The id of the
// conversation the turn landed in is returned even when streaming fails.
func (s *Service) Send(ctx context.Context, userID uint, conversationID *uuid.UUID, prompt string, w FrameWriter) (uuid.UUID, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return uuid.Nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "prompt must not be empty", nil)
	}

	conv, err := s.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return uuid.Nil, err
	}

	root := &Message{
		ID:             uuid.New(),
		UserID:         userID,
		ConversationID: conv.ID,
		Role:           RoleUser,
		Content:        prompt,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, root); err != nil {
		return conv.ID, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to persist user message")
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		return conv.ID, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to touch conversation")
	}

	if err := s.streamTurn(ctx, conv, root, prompt, w); err != nil {
		apperrors.Log(s.log, err)
		return conv.ID, err
	}
	return conv.ID, nil
}

func (s *Service) resolveConversation(ctx context.Context, userID uint, conversationID *uuid.UUID) (*Conversation, error) {
	if conversationID != nil {
		conv, err := s.conversations.Find(ctx, userID, *conversationID)
		if err != nil {
			return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to resolve conversation")
		}
		return conv, nil
	}

	conv := &Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  DefaultTitle,
		Type:   DefaultType,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to create conversation")
	}
	s.log.Info().Str("conversation_id", conv.ID.String()).Uint("user_id", userID).Msg("conversation created")
	return conv, nil
}
