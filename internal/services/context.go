package services

import (
	"context"
	"fmt"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

// ContextService assembles the bounded prompt context for a chat turn:
// stored rolling summaries first, then a short tail of raw messages. The
// result is transient and rebuilt on every request.
type ContextService struct {
	messages  repository.MessageRepository
	summaries repository.SummaryRepository
}

// NewContextService creates a new context assembler.
func NewContextService(messages repository.MessageRepository, summaries repository.SummaryRepository) *ContextService {
	return &ContextService{
		messages:  messages,
		summaries: summaries,
	}
}

// Assemble returns the ordered role/content sequence for a session: the
// high-level summary (if any), then the detailed summary (if any), then the
// last tailN raw messages oldest-first. excludeID skips the just-persisted
// user message, which the caller appends to the prompt itself. With no
// summaries the output degenerates to just the raw tail.
func (s *ContextService) Assemble(ctx context.Context, sessionID string, tailN int, excludeID string) ([]ollama.Message, error) {
	var out []ollama.Message

	highLevel, err := s.summaries.GetByType(ctx, sessionID, repository.SummaryTypeHighLevel)
	if err != nil {
		return nil, fmt.Errorf("loading high-level summary: %w", err)
	}
	if highLevel != nil {
		out = append(out, ollama.Message{
			Role:    "system",
			Content: "Summary of the conversation so far: " + highLevel.SummaryText,
		})
	}

	detailed, err := s.summaries.GetByType(ctx, sessionID, repository.SummaryTypeDetailed)
	if err != nil {
		return nil, fmt.Errorf("loading detailed summary: %w", err)
	}
	if detailed != nil {
		out = append(out, ollama.Message{
			Role:    "system",
			Content: "Summary of the recent conversation: " + detailed.SummaryText,
		})
	}

	// Fetch one extra so the tail stays full after excluding the new message.
	limit := tailN
	if excludeID != "" {
		limit++
	}
	recent, err := s.messages.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}

	tail := make([]ollama.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID == excludeID {
			continue
		}
		tail = append(tail, ollama.Message{Role: m.Role, Content: m.Content})
	}
	if len(tail) > tailN {
		tail = tail[len(tail)-tailN:]
	}

	return append(out, tail...), nil
}
