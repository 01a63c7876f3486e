package conversation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

func newCRUDService(convRepo *mockConvRepo, msgRepo *mockMessageRepo) *conversation.Service {
	return conversation.NewService(convRepo, msgRepo, &fakeRunner{}, zerolog.Nop())
}

func seedConversation(t *testing.T, repo *mockConvRepo, userID uint) *conversation.Conversation {
	t.Helper()
	c := &conversation.Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  conversation.DefaultTitle,
		Type:   conversation.DefaultType,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestSendCreatesConversationWhenIDAbsent(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil, mustEvent(t, `{"type":"result"}`))}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())

	_, err := svc.Send(context.Background(), 1, nil, "  hello  ", &recordingWriter{})
	require.NoError(t, err)

	require.Len(t, convRepo.byID, 1)
	for _, c := range convRepo.byID {
		assert.Equal(t, conversation.DefaultTitle, c.Title)
		assert.Equal(t, conversation.DefaultType, c.Type)
		assert.Equal(t, uint(1), c.UserID)
	}
	// Prompt is trimmed before it reaches the adapter.
	require.Len(t, runner.prompts, 1)
	assert.Equal(t, "hello", runner.prompts[0])
}

func TestSendForeignConversationReadsAsNotFound(t *testing.T) {
	convRepo := newMockConvRepo()
	owner := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})

	_, err := svc.Send(context.Background(), 2, &owner.ID, "hello", &recordingWriter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSendRejectsBlankPrompt(t *testing.T) {
	svc := newCRUDService(newMockConvRepo(), &mockMessageRepo{})

	_, err := svc.Send(context.Background(), 1, nil, "   ", &recordingWriter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUpdatePatchesFields(t *testing.T) {
	convRepo := newMockConvRepo()
	c := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})

	title := "Inbox triage"
	pinned := true
	updated, err := svc.Update(context.Background(), 1, c.ID, conversation.ConversationPatch{Title: &title, Pinned: &pinned})
	require.NoError(t, err)
	assert.Equal(t, "Inbox triage", updated.Title)
	assert.True(t, updated.Pinned)
	assert.Equal(t, conversation.DefaultType, updated.Type)
}

func TestUpdateRejectsBlankTitle(t *testing.T) {
	convRepo := newMockConvRepo()
	c := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})

	blank := "  "
	_, err := svc.Update(context.Background(), 1, c.ID, conversation.ConversationPatch{Title: &blank})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUpdateRejectsUnknownType(t *testing.T) {
	convRepo := newMockConvRepo()
	c := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})

	bad := "scratchpad"
	_, err := svc.Update(context.Background(), 1, c.ID, conversation.ConversationPatch{Type: &bad})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	project := conversation.TypeProject
	updated, err := svc.Update(context.Background(), 1, c.ID, conversation.ConversationPatch{Type: &project})
	require.NoError(t, err)
	assert.Equal(t, conversation.TypeProject, updated.Type)
}

func TestDeleteHidesConversation(t *testing.T) {
	convRepo := newMockConvRepo()
	c := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 1, c.ID))

	_, err := svc.Get(ctx, 1, c.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestMessagesRequiresVisibleConversation(t *testing.T) {
	convRepo := newMockConvRepo()
	owner := seedConversation(t, convRepo, 1)
	svc := newCRUDService(convRepo, &mockMessageRepo{})

	_, err := svc.Messages(context.Background(), 2, owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestMessagesReturnsOrderedLog(t *testing.T) {
	convRepo := newMockConvRepo()
	c := seedConversation(t, convRepo, 1)
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}`),
		mustEvent(t, `{"type":"result"}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	ctx := context.Background()

	convID, err := svc.Send(ctx, 1, &c.ID, "hello", &recordingWriter{})
	require.NoError(t, err)
	assert.Equal(t, c.ID, convID)

	first, err := svc.Messages(ctx, 1, c.ID)
	require.NoError(t, err)
	second, err := svc.Messages(ctx, 1, c.ID)
	require.NoError(t, err)
	// Reading the turn log has no side effects.
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, conversation.RoleUser, first[0].Role)
}
