package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

const (
	// Summarization fires at positive multiples of the interval above the
	// first one: 20, 30, 40, ... Never at exactly 10.
	summarizeInterval = 10

	// Counts at or above this threshold produce high-level summaries.
	highLevelThreshold = 50

	detailedWindow  = 50
	highLevelWindow = 1000

	detailedWordLimit  = 150
	highLevelWordLimit = 100
)

// SummaryService compresses older messages into bounded rolling summaries so
// prompts stay small as conversations grow. It always runs as a detached
// background task; its errors are logged and swallowed.
type SummaryService struct {
	messages  repository.MessageRepository
	summaries repository.SummaryRepository
	gen       Generator
	logger    *logrus.Logger
}

// NewSummaryService creates a new summarization engine.
func NewSummaryService(
	messages repository.MessageRepository,
	summaries repository.SummaryRepository,
	gen Generator,
	logger *logrus.Logger,
) *SummaryService {
	return &SummaryService{
		messages:  messages,
		summaries: summaries,
		gen:       gen,
		logger:    logger,
	}
}

// MaybeSummarize checks the trigger rule for a session and, when it fires,
// generates and upserts exactly one summary chosen by the current message
// count: detailed below the high-level threshold, high-level at or above it.
func (s *SummaryService) MaybeSummarize(ctx context.Context, sessionID string) error {
	count, err := s.messages.CountBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("counting messages: %w", err)
	}

	if count <= summarizeInterval || count%summarizeInterval != 0 {
		return nil
	}

	summaryType := repository.SummaryTypeDetailed
	window := detailedWindow
	wordLimit := detailedWordLimit
	start := count - detailedWindow + 1
	if start < 1 {
		start = 1
	}
	if count >= highLevelThreshold {
		summaryType = repository.SummaryTypeHighLevel
		window = highLevelWindow
		wordLimit = highLevelWordLimit
		start = 1
	}

	msgs, err := s.messages.ListRecent(ctx, sessionID, window)
	if err != nil {
		return fmt.Errorf("loading messages to summarize: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	text, err := s.generate(ctx, msgs, wordLimit)
	if err != nil {
		return fmt.Errorf("generating %s summary: %w", summaryType, err)
	}

	summary := &repository.ConversationSummary{
		SessionID:   sessionID,
		SummaryType: summaryType,
		StartIndex:  start,
		EndIndex:    count,
		SummaryText: text,
		TokenCount:  EstimateTokens(text),
	}
	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("saving %s summary: %w", summaryType, err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"summary_type": summaryType,
		"range_start":  start,
		"range_end":    count,
		"tokens":       summary.TokenCount,
	}).Info("conversation summary updated")

	return nil
}

// generate streams a compaction completion and concatenates all fragments.
func (s *SummaryService) generate(ctx context.Context, msgs []repository.Message, wordLimit int) (string, error) {
	prompt := buildCompactionPrompt(msgs, wordLimit)

	fragments, err := s.gen.ChatStream(ctx, []ollama.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			return "", frag.Err
		}
		b.WriteString(frag.Content)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return text, nil
}

func buildCompactionPrompt(msgs []repository.Message, wordLimit int) string {
	var transcript strings.Builder
	for _, m := range msgs {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n\n")
	}

	return fmt.Sprintf(`Summarize this conversation in at most %d words.

Preserve facts, decisions, preferences, and identifiers (names, dates, numbers, URLs). Omit pleasantries and redundancy. Reply with the summary only.

Conversation:
%s`, wordLimit, transcript.String())
}

// EstimateTokens approximates the token count of a text as ceil(len/4).
// A heuristic for observability, never used for truncation decisions.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
