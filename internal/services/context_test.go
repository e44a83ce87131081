package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

func TestAssemble_NoSummaries(t *testing.T) {
	messages := newFakeMessageRepo()
	summaries := newFakeSummaryRepo()
	messages.seed("s1", 8)

	svc := NewContextService(messages, summaries)

	out, err := svc.Assemble(context.Background(), "s1", 5, "")
	require.NoError(t, err)
	require.Len(t, out, 5)

	// Oldest-first tail of the last five messages.
	assert.Equal(t, "message 4", out[0].Content)
	assert.Equal(t, "message 8", out[4].Content)
	for _, m := range out {
		assert.NotEqual(t, "system", m.Role)
	}
}

func TestAssemble_SummariesComeFirst(t *testing.T) {
	messages := newFakeMessageRepo()
	summaries := newFakeSummaryRepo()
	messages.seed("s1", 60)
	summaries.Upsert(context.Background(), &repository.ConversationSummary{
		SessionID:   "s1",
		SummaryType: repository.SummaryTypeHighLevel,
		SummaryText: "the whole arc",
	})
	summaries.Upsert(context.Background(), &repository.ConversationSummary{
		SessionID:   "s1",
		SummaryType: repository.SummaryTypeDetailed,
		SummaryText: "the recent part",
	})

	svc := NewContextService(messages, summaries)

	out, err := svc.Assemble(context.Background(), "s1", 3, "")
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, "system", out[0].Role)
	assert.Contains(t, out[0].Content, "conversation so far")
	assert.Contains(t, out[0].Content, "the whole arc")

	assert.Equal(t, "system", out[1].Role)
	assert.Contains(t, out[1].Content, "recent conversation")
	assert.Contains(t, out[1].Content, "the recent part")

	assert.Equal(t, "message 58", out[2].Content)
	assert.Equal(t, "message 60", out[4].Content)
}

func TestAssemble_DetailedOnly(t *testing.T) {
	messages := newFakeMessageRepo()
	summaries := newFakeSummaryRepo()
	messages.seed("s1", 20)
	summaries.Upsert(context.Background(), &repository.ConversationSummary{
		SessionID:   "s1",
		SummaryType: repository.SummaryTypeDetailed,
		SummaryText: "what happened recently",
	})

	svc := NewContextService(messages, summaries)

	out, err := svc.Assemble(context.Background(), "s1", 5, "")
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "message 16", out[1].Content)
}

func TestAssemble_ExcludesJustPersistedMessage(t *testing.T) {
	messages := newFakeMessageRepo()
	summaries := newFakeSummaryRepo()
	messages.seed("s1", 6)

	newest := &repository.Message{SessionID: "s1", Role: repository.RoleUser, Content: "the new turn"}
	require.NoError(t, messages.Create(context.Background(), newest))

	svc := NewContextService(messages, summaries)

	out, err := svc.Assemble(context.Background(), "s1", 5, newest.ID)
	require.NoError(t, err)
	require.Len(t, out, 5)

	// The tail stays full despite the exclusion.
	assert.Equal(t, "message 2", out[0].Content)
	assert.Equal(t, "message 6", out[4].Content)
	for _, m := range out {
		assert.NotEqual(t, "the new turn", m.Content)
	}
}

func TestAssemble_ShortSession(t *testing.T) {
	messages := newFakeMessageRepo()
	summaries := newFakeSummaryRepo()
	messages.seed("s1", 2)

	svc := NewContextService(messages, summaries)

	out, err := svc.Assemble(context.Background(), "s1", 5, "")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "message 1", out[0].Content)
}
