package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/search"
)

// ErrSessionNotFound is returned when a session does not exist or belongs to
// a different user. Callers surface it as a 404.
var ErrSessionNotFound = errors.New("session not found")

// StreamEvent is one event on the downstream side of the relay. Handlers
// serialize it into the client-facing SSE/WebSocket contract.
type StreamEvent struct {
	Type    string // "meta", "content", "done", "error"
	Content string
	Query   string
	Err     error
}

// Event types emitted by StreamTurn.
const (
	EventMeta    = "meta"
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// Turn lifecycle states.
var (
	stateReceived   stateless.State = "Received"
	stateSearched   stateless.State = "Searched"
	stateStreaming  stateless.State = "Streaming"
	statePersisting stateless.State = "Persisting"
	stateDone       stateless.State = "Done"
	stateErrored    stateless.State = "Errored"
)

// Turn lifecycle triggers.
var (
	triggerSearch   stateless.Trigger = "Search"
	triggerStream   stateless.Trigger = "Stream"
	triggerPersist  stateless.Trigger = "Persist"
	triggerComplete stateless.Trigger = "Complete"
	triggerFail     stateless.Trigger = "Fail"
)

func newTurnMachine() *stateless.StateMachine {
	m := stateless.NewStateMachine(stateReceived)
	m.Configure(stateReceived).
		Permit(triggerSearch, stateSearched).
		Permit(triggerStream, stateStreaming).
		Permit(triggerFail, stateErrored)
	m.Configure(stateSearched).
		Permit(triggerStream, stateStreaming).
		Permit(triggerFail, stateErrored)
	m.Configure(stateStreaming).
		Permit(triggerPersist, statePersisting).
		Permit(triggerFail, stateErrored)
	m.Configure(statePersisting).
		Permit(triggerComplete, stateDone).
		Permit(triggerFail, stateErrored)
	return m
}

// ChatService orchestrates one chat turn: it persists the incoming message,
// assembles context, relays the model's token stream to the client while
// accumulating it, persists the result, and fires background maintenance
// (summarization, title generation) without blocking the live response.
type ChatService struct {
	sessions  repository.SessionRepository
	messages  repository.MessageRepository
	assembler *ContextService
	summaries *SummaryService
	gen       Generator
	searcher  Searcher
	logger    *logrus.Logger

	contextTail       int
	backgroundTimeout time.Duration
}

// NewChatService creates a new streaming relay. searcher may be nil, which
// disables retrieval augmentation.
func NewChatService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	assembler *ContextService,
	summaries *SummaryService,
	gen Generator,
	searcher Searcher,
	logger *logrus.Logger,
	contextTail int,
	backgroundTimeout time.Duration,
) *ChatService {
	if contextTail <= 0 {
		contextTail = 5
	}
	if backgroundTimeout <= 0 {
		backgroundTimeout = 2 * time.Minute
	}
	return &ChatService{
		sessions:          sessions,
		messages:          messages,
		assembler:         assembler,
		summaries:         summaries,
		gen:               gen,
		searcher:          searcher,
		logger:            logger,
		contextTail:       contextTail,
		backgroundTimeout: backgroundTimeout,
	}
}

// StreamTurn runs one chat turn and returns its event stream. The returned
// channel is closed when the turn reaches a terminal state. Cancelling ctx
// (client disconnect) aborts the upstream generation; partial text from an
// aborted or failed turn is never persisted.
func (s *ChatService) StreamTurn(ctx context.Context, userID uuid.UUID, sessionID, content string, images []string) (<-chan StreamEvent, error) {
	session, err := s.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// The user message must be durable before generation begins.
	userMsg := &repository.Message{
		SessionID: sessionID,
		Role:      repository.RoleUser,
		Content:   content,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	// Summarization trigger is detached: started, never awaited.
	s.detach("summarize", func(bctx context.Context) error {
		return s.summaries.MaybeSummarize(bctx, sessionID)
	})

	// Context is fetched before the new turn is appended; the new message is
	// added to the outgoing prompt directly, not re-read from storage.
	history, err := s.assembler.Assemble(ctx, sessionID, s.contextTail, userMsg.ID)
	if err != nil {
		return nil, fmt.Errorf("assembling context: %w", err)
	}
	firstExchange := len(history) <= 1

	events := make(chan StreamEvent)
	go s.run(ctx, events, sessionID, content, images, history, firstExchange)
	return events, nil
}

func (s *ChatService) run(ctx context.Context, events chan<- StreamEvent, sessionID, content string, images []string, history []ollama.Message, firstExchange bool) {
	defer close(events)

	machine := newTurnMachine()
	log := s.logger.WithField("session_id", sessionID)

	prompt := content
	if s.searcher != nil && search.ShouldSearchWeb(content) {
		results, err := s.searcher.Search(ctx, content)
		switch {
		case err != nil:
			// Degrade to no search context; the turn proceeds normally.
			log.WithError(err).Warn("web search failed, continuing without it")
		case len(results) > 0:
			s.fire(machine, triggerSearch)
			if !s.send(ctx, events, StreamEvent{Type: EventMeta, Query: content}) {
				return
			}
			prompt = content + "\n\nWeb search results:\n" + search.FormatResults(results)
		}
	}

	outgoing := append(history, ollama.Message{Role: repository.RoleUser, Content: prompt})

	var fragments <-chan ollama.Fragment
	var err error
	if len(images) > 0 {
		fragments, err = s.gen.ChatVisionStream(ctx, outgoing, images)
	} else {
		fragments, err = s.gen.ChatStream(ctx, outgoing)
	}
	if err != nil {
		s.fail(ctx, events, machine, log, err)
		return
	}
	s.fire(machine, triggerStream)

	var full strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			s.fail(ctx, events, machine, log, frag.Err)
			return
		}
		full.WriteString(frag.Content)
		if !s.send(ctx, events, StreamEvent{Type: EventContent, Content: frag.Content}) {
			s.fire(machine, triggerFail)
			return
		}
	}
	if ctx.Err() != nil {
		// Client went away mid-stream; the partial text is discarded.
		s.fail(ctx, events, machine, log, ctx.Err())
		return
	}

	s.fire(machine, triggerPersist)
	assistant := &repository.Message{
		SessionID: sessionID,
		Role:      repository.RoleAssistant,
		Content:   full.String(),
	}
	if err := s.messages.Create(ctx, assistant); err != nil {
		s.fail(ctx, events, machine, log, fmt.Errorf("saving assistant message: %w", err))
		return
	}
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		log.WithError(err).Warn("failed to bump session timestamp")
	}

	if firstExchange {
		s.detach("title", func(bctx context.Context) error {
			return s.generateTitle(bctx, sessionID, content)
		})
	}

	s.fire(machine, triggerComplete)
	s.send(ctx, events, StreamEvent{Type: EventDone})
}

// send delivers an event unless the turn has been cancelled. Reports
// whether the event was delivered.
func (s *ChatService) send(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *ChatService) fail(ctx context.Context, events chan<- StreamEvent, machine *stateless.StateMachine, log *logrus.Entry, err error) {
	s.fire(machine, triggerFail)
	log.WithError(err).Warn("chat turn failed")
	s.send(ctx, events, StreamEvent{Type: EventError, Err: err})
}

// fire advances the turn machine. Transitions are fixed at compile time, so
// a rejected trigger is a programming error worth logging loudly.
func (s *ChatService) fire(machine *stateless.StateMachine, trigger stateless.Trigger) {
	if err := machine.Fire(trigger); err != nil {
		s.logger.WithError(err).Error("invalid turn state transition")
	}
}

// detach runs fn as a fire-and-forget background task with its own deadline
// and error boundary. Failures are logged and swallowed; they never reach
// the client.
func (s *ChatService) detach(name string, fn func(context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("task", name).Errorf("background task panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.WithField("task", name).WithError(err).Warn("background task failed")
		}
	}()
}

// generateTitle asks the model for a short session title after the first
// exchange and stores it on the session record.
func (s *ChatService) generateTitle(ctx context.Context, sessionID, firstMessage string) error {
	prompt := fmt.Sprintf("Generate a 3-5 word title for a conversation that starts with the following message. Reply with the title only, no quotes.\n\nMessage: %s", firstMessage)

	text, err := s.gen.Complete(ctx, []ollama.Message{{Role: repository.RoleUser, Content: prompt}})
	if err != nil {
		return fmt.Errorf("generating title: %w", err)
	}

	title := cleanTitle(text)
	if title == "" {
		return nil
	}
	if err := s.sessions.UpdateTitle(ctx, sessionID, title); err != nil {
		return fmt.Errorf("saving title: %w", err)
	}
	return nil
}

func cleanTitle(text string) string {
	title := strings.TrimSpace(text)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.Trim(title, `"'`)
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}
