package conversation_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// ---- shared fakes ----

type mockConvRepo struct {
	byID    map[uuid.UUID]*conversation.Conversation
	touches int
}

func newMockConvRepo() *mockConvRepo {
	return &mockConvRepo{byID: map[uuid.UUID]*conversation.Conversation{}}
}

func (m *mockConvRepo) Create(_ context.Context, c *conversation.Conversation) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.byID[c.ID] = c
	return nil
}

func (m *mockConvRepo) Find(ctx context.Context, userID uint, id uuid.UUID) (*conversation.Conversation, error) {
	c, ok := m.byID[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "conversation not found", nil)
	}
	return c, nil
}

func (m *mockConvRepo) ListByUser(_ context.Context, userID uint, convType string) ([]conversation.Conversation, error) {
	var out []conversation.Conversation
	for _, c := range m.byID {
		if c.UserID == userID && (convType == "" || c.Type == convType) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockConvRepo) Update(ctx context.Context, userID uint, id uuid.UUID, patch conversation.ConversationPatch) (*conversation.Conversation, error) {
	c, err := m.Find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Pinned != nil {
		c.Pinned = *patch.Pinned
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (m *mockConvRepo) Touch(_ context.Context, id uuid.UUID) error {
	if c, ok := m.byID[id]; ok {
		c.UpdatedAt = time.Now().UTC()
	}
	m.touches++
	return nil
}

func (m *mockConvRepo) SoftDelete(ctx context.Context, userID uint, id uuid.UUID) error {
	if _, err := m.Find(ctx, userID, id); err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

type mockMessageRepo struct {
	created   []*conversation.Message
	failAfter int // fail the nth create (1-based); 0 disables
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *conversation.Message) error {
	if m.failAfter > 0 && len(m.created)+1 == m.failAfter {
		return apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeDatabaseError, "insert failed", nil)
	}
	m.created = append(m.created, msg)
	return nil
}

func (m *mockMessageRepo) ListByConversation(_ context.Context, userID uint, conversationID uuid.UUID) ([]conversation.Message, error) {
	var out []conversation.Message
	for _, msg := range m.created {
		if msg.UserID == userID && msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

// fakeStream replays a fixed event sequence.
type fakeStream struct {
	events chan agent.Event
	err    error
}

func newFakeStream(err error, events ...agent.Event) *fakeStream {
	ch := make(chan agent.Event, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)
	return &fakeStream{events: ch, err: err}
}

func (f *fakeStream) Events() <-chan agent.Event { return f.events }
func (f *fakeStream) Err() error                 { return f.err }

type fakeRunner struct {
	stream  agent.Stream
	runErr  error
	prompts []string
}

func (f *fakeRunner) Run(_ context.Context, prompt string) (agent.Stream, error) {
	f.prompts = append(f.prompts, prompt)
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.stream, nil
}

// recordingWriter captures frames in flush order.
type recordingWriter struct {
	frames []conversation.Frame
	errs   []string
}

func (w *recordingWriter) WriteFrame(frame conversation.Frame) error {
	w.frames = append(w.frames, frame)
	return nil
}

func (w *recordingWriter) WriteError(message string) error {
	w.errs = append(w.errs, message)
	return nil
}

func mustEvent(t *testing.T, raw string) agent.Event {
	t.Helper()
	var event agent.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

// ---- tests ----

func TestSendToolTurnPersistsAndStreams(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"gmail_list"}]}}`),
		mustEvent(t, `{"type":"user","message":{"content":[{"type":"tool_result","text":"3 emails"}]}}`),
		mustEvent(t, `{"type":"result"}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "list my emails", w)
	require.NoError(t, err)

	// Root user message plus one message per content block.
	require.Len(t, msgRepo.created, 3)
	root := msgRepo.created[0]
	assert.Equal(t, conversation.RoleUser, root.Role)
	assert.Equal(t, "list my emails", root.Content)
	assert.Nil(t, root.ParentMessageID)

	assert.Equal(t, conversation.RoleToolUse, msgRepo.created[1].Role)
	assert.Equal(t, conversation.RoleToolResult, msgRepo.created[2].Role)
	for _, msg := range msgRepo.created[1:] {
		require.NotNil(t, msg.ParentMessageID)
		assert.Equal(t, root.ID, *msg.ParentMessageID)
		assert.Equal(t, root.ConversationID, msg.ConversationID)
	}

	// Two message frames then the terminal frame; sequence strictly rises.
	require.Len(t, w.frames, 3)
	assert.Equal(t, conversation.RoleToolUse, w.frames[0].Role())
	assert.Equal(t, conversation.RoleToolResult, w.frames[1].Role())
	assert.Equal(t, conversation.RoleResult, w.frames[2].Role())
	assert.Equal(t, 1, msgRepo.created[1].Sequence)
	assert.Equal(t, 2, msgRepo.created[2].Sequence)
	assert.Empty(t, w.errs)

	// The terminal frame's id backs no stored row.
	terminal, ok := w.frames[2].(conversation.TerminalFrame)
	require.True(t, ok)
	for _, msg := range msgRepo.created {
		assert.NotEqual(t, msg.ID, terminal.MessageID)
	}
}

func TestSendProcessFailureKeepsRootMessage(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(&agent.ProcessError{ExitCode: 1})}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "hello", w)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessFailure))

	// Zero message frames, exactly one error frame, root still stored.
	assert.Empty(t, w.frames)
	require.Len(t, w.errs, 1)
	require.Len(t, msgRepo.created, 1)
	assert.Equal(t, conversation.RoleUser, msgRepo.created[0].Role)
}

func TestSendIgnoresRawEvents(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}`),
		agent.Event{Type: agent.EventTypeRaw, Raw: "Loading model..."},
		mustEvent(t, `{"type":"result"}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "hello", w)
	require.NoError(t, err)

	// Raw line makes no row and no frame.
	require.Len(t, msgRepo.created, 2)
	require.Len(t, w.frames, 2)
	assert.Equal(t, conversation.RoleAssistant, w.frames[0].Role())
	assert.Equal(t, conversation.RoleResult, w.frames[1].Role())
}

func TestSendPersistenceFailureAbortsTurn(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{failAfter: 3}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"one"}]}}`),
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"two"}]}}`),
		mustEvent(t, `{"type":"result"}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "hello", w)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabaseError))

	// Earlier rows stay written; the failed block produced no frame.
	require.Len(t, msgRepo.created, 2)
	require.Len(t, w.frames, 1)
	require.Len(t, w.errs, 1)
}

func TestSendEndsWithErrorWhenNoResultSentinel(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "hello", w)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessFailure))
	require.Len(t, w.frames, 1)
	require.Len(t, w.errs, 1)
}

func TestSendRunStartFailureEmitsErrorFrame(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{runErr: errors.New("binary missing")}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())
	w := &recordingWriter{}

	_, err := svc.Send(context.Background(), 1, nil, "hello", w)
	require.Error(t, err)
	require.Len(t, w.errs, 1)
	require.Len(t, msgRepo.created, 1)
}

func TestSendTextBlockRoundTrip(t *testing.T) {
	convRepo := newMockConvRepo()
	msgRepo := &mockMessageRepo{}
	runner := &fakeRunner{stream: newFakeStream(nil,
		mustEvent(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"hello"}]}}`),
		mustEvent(t, `{"type":"result"}`),
	)}
	svc := conversation.NewService(convRepo, msgRepo, runner, zerolog.Nop())

	_, err := svc.Send(context.Background(), 1, nil, "hi", &recordingWriter{})
	require.NoError(t, err)

	require.Len(t, msgRepo.created, 2)
	stored := msgRepo.created[1]
	assert.Equal(t, "hello", stored.Content)
	assert.JSONEq(t, `{"type":"text","text":"hello"}`, string(stored.Payload))
}
