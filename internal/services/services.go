package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/search"
)

// Generator is the slice of the generation backend the services use.
// *ollama.Client satisfies it; tests substitute fakes.
type Generator interface {
	ChatStream(ctx context.Context, messages []ollama.Message) (<-chan ollama.Fragment, error)
	ChatVisionStream(ctx context.Context, messages []ollama.Message, images []string) (<-chan ollama.Fragment, error)
	Complete(ctx context.Context, messages []ollama.Message) (string, error)
}

// Searcher is the slice of the search backend the relay uses.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Services holds all initialized services
type Services struct {
	Context   *ContextService
	Summaries *SummaryService
	Chat      *ChatService

	Sessions repository.SessionRepository
	Messages repository.MessageRepository
}

// NewServices wires the service graph from its dependencies.
func NewServices(
	cfg *config.Config,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	summaries repository.SummaryRepository,
	gen Generator,
	searcher Searcher,
	logger *logrus.Logger,
) *Services {
	contextSvc := NewContextService(messages, summaries)
	summarySvc := NewSummaryService(messages, summaries, gen, logger)
	chatSvc := NewChatService(
		sessions,
		messages,
		contextSvc,
		summarySvc,
		gen,
		searcher,
		logger,
		cfg.Chat.ContextTail,
		cfg.Chat.BackgroundTimeoutDuration(),
	)

	return &Services{
		Context:   contextSvc,
		Summaries: summarySvc,
		Chat:      chatSvc,
		Sessions:  sessions,
		Messages:  messages,
	}
}
