package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/search"
)

// In-memory repository fakes. Background tasks touch them from other
// goroutines, so every method locks.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*repository.Session
	touched  []string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*repository.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *repository.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Get(_ context.Context, userID uuid.UUID, id string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (r *fakeSessionRepo) List(_ context.Context, userID uuid.UUID) ([]*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) UpdateTitle(_ context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Title = title
	}
	return nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, userID uuid.UUID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) title(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s.Title
	}
	return ""
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []repository.Message
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *repository.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil && m.Role == repository.RoleAssistant {
		return r.createErr
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) ListBySession(_ context.Context, sessionID string, limit, offset int) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []repository.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			all = append(all, m)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMessageRepo) ListRecent(_ context.Context, sessionID string, limit int) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []repository.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			all = append(all, m)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) bySession(sessionID string) []repository.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeMessageRepo) seed(sessionID string, count int) {
	for i := 1; i <= count; i++ {
		role := repository.RoleUser
		if i%2 == 0 {
			role = repository.RoleAssistant
		}
		r.Create(context.Background(), &repository.Message{
			SessionID: sessionID,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		})
	}
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*repository.ConversationSummary
	upserts   int
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{summaries: make(map[string]*repository.ConversationSummary)}
}

func (r *fakeSummaryRepo) key(sessionID, summaryType string) string {
	return sessionID + "/" + summaryType
}

func (r *fakeSummaryRepo) Upsert(_ context.Context, s *repository.ConversationSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.summaries[r.key(s.SessionID, s.SummaryType)] = &copied
	r.upserts++
	return nil
}

func (r *fakeSummaryRepo) GetByType(_ context.Context, sessionID, summaryType string) (*repository.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[r.key(sessionID, summaryType)]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// fakeGenerator replays a scripted fragment sequence and records the request
// it was called with.
type fakeGenerator struct {
	mu          sync.Mutex
	fragments   []ollama.Fragment
	streamErr   error
	completions []string
	lastPrompt  []ollama.Message
	lastImages  []string
	calls       int
}

func (g *fakeGenerator) ChatStream(ctx context.Context, messages []ollama.Message) (<-chan ollama.Fragment, error) {
	return g.stream(ctx, messages, nil)
}

func (g *fakeGenerator) ChatVisionStream(ctx context.Context, messages []ollama.Message, images []string) (<-chan ollama.Fragment, error) {
	return g.stream(ctx, messages, images)
}

func (g *fakeGenerator) stream(ctx context.Context, messages []ollama.Message, images []string) (<-chan ollama.Fragment, error) {
	g.mu.Lock()
	g.lastPrompt = messages
	g.lastImages = images
	g.calls++
	fragments := make([]ollama.Fragment, len(g.fragments))
	copy(fragments, g.fragments)
	streamErr := g.streamErr
	g.mu.Unlock()

	if streamErr != nil {
		return nil, streamErr
	}

	out := make(chan ollama.Fragment)
	go func() {
		defer close(out)
		for _, frag := range fragments {
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (g *fakeGenerator) Complete(_ context.Context, messages []ollama.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.completions) == 0 {
		return "A Short Title", nil
	}
	next := g.completions[0]
	g.completions = g.completions[1:]
	return next, nil
}

func (g *fakeGenerator) prompt() []ollama.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastPrompt
}

type fakeSearcher struct {
	mu      sync.Mutex
	results []search.Result
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}
