package responses_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
)

func turnFixture(base time.Time, offset time.Duration) (conversation.Message, conversation.Message) {
	rootID := uuid.New()
	root := conversation.Message{
		ID:        rootID,
		Role:      conversation.RoleUser,
		Content:   "prompt",
		CreatedAt: base.Add(offset),
	}
	reply := conversation.Message{
		ID:              uuid.New(),
		ParentMessageID: &rootID,
		Role:            conversation.RoleAssistant,
		Content:         "answer",
		CreatedAt:       base.Add(offset + time.Second),
	}
	return root, reply
}

func TestGroupTurnsNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r1, a1 := turnFixture(base, 0)
	r2, a2 := turnFixture(base, time.Minute)
	r3, a3 := turnFixture(base, 2*time.Minute)

	resp := responses.GroupTurns([]conversation.Message{r1, a1, r2, a2, r3, a3}, nil, 20)

	require.Len(t, resp.Turns, 3)
	assert.Equal(t, r3.ID, resp.Turns[0].Root.ID)
	assert.Equal(t, r2.ID, resp.Turns[1].Root.ID)
	assert.Equal(t, r1.ID, resp.Turns[2].Root.ID)
	require.Len(t, resp.Turns[0].Replies, 1)
	assert.Equal(t, a3.ID, resp.Turns[0].Replies[0].ID)
	assert.Nil(t, resp.NextCursor)
}

func TestGroupTurnsLimitSetsCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r1, a1 := turnFixture(base, 0)
	r2, a2 := turnFixture(base, time.Minute)
	r3, a3 := turnFixture(base, 2*time.Minute)

	resp := responses.GroupTurns([]conversation.Message{r1, a1, r2, a2, r3, a3}, nil, 2)

	require.Len(t, resp.Turns, 2)
	assert.Equal(t, r3.ID, resp.Turns[0].Root.ID)
	assert.Equal(t, r2.ID, resp.Turns[1].Root.ID)
	require.NotNil(t, resp.NextCursor)
	assert.True(t, resp.NextCursor.Equal(r2.CreatedAt))

	// Next page picks up where the cursor left off.
	next := responses.GroupTurns([]conversation.Message{r1, a1, r2, a2, r3, a3}, resp.NextCursor, 2)
	require.Len(t, next.Turns, 1)
	assert.Equal(t, r1.ID, next.Turns[0].Root.ID)
	assert.Nil(t, next.NextCursor)
}

func TestGroupTurnsMultipleReplies(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	root, reply := turnFixture(base, 0)
	tool := conversation.Message{
		ID:              uuid.New(),
		ParentMessageID: &root.ID,
		Role:            conversation.RoleToolResult,
		Content:         "tool output",
		CreatedAt:       base.Add(2 * time.Second),
	}

	resp := responses.GroupTurns([]conversation.Message{root, reply, tool}, nil, 0)

	require.Len(t, resp.Turns, 1)
	require.Len(t, resp.Turns[0].Replies, 2)
	assert.Equal(t, reply.ID, resp.Turns[0].Replies[0].ID)
	assert.Equal(t, tool.ID, resp.Turns[0].Replies[1].ID)
}

func TestGroupTurnsEmpty(t *testing.T) {
	resp := responses.GroupTurns(nil, nil, 20)
	assert.Empty(t, resp.Turns)
	assert.Nil(t, resp.NextCursor)
}
