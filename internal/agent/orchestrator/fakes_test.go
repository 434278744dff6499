package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/coverline/engine/internal/agent/model"
	errx "github.com/coverline/engine/internal/core/error"
)

// scriptedProvider lets each test control the three provider behaviors
// independently. Nil hooks mean "fail", which exercises the fallback paths.
type scriptedProvider struct {
	generate func(messages []*schema.Message, cfg model.GenerationConfig) (*model.GenerationResult, error)
	classify func(message string) (model.Intent, error)
	extract  func(message string, entityTypes []string) (map[string]string, error)

	generateCalls int
}

func (p *scriptedProvider) GenerateResponse(_ context.Context, messages []*schema.Message, cfg model.GenerationConfig) (*model.GenerationResult, error) {
	p.generateCalls++
	if p.generate == nil {
		return nil, errx.LLMService(errors.New("generation unavailable"))
	}
	return p.generate(messages, cfg)
}

func (p *scriptedProvider) ClassifyIntent(_ context.Context, message string) (model.Intent, error) {
	if p.classify == nil {
		return model.IntentUnknown, errx.LLMService(errors.New("classifier unavailable"))
	}
	return p.classify(message)
}

func (p *scriptedProvider) ExtractEntities(_ context.Context, message string, entityTypes []string) (map[string]string, error) {
	if p.extract == nil {
		return nil, errx.LLMService(errors.New("extractor unavailable"))
	}
	return p.extract(message, entityTypes)
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.SessionState
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]model.SessionState)}
}

func (s *memSessionStore) Create(_ context.Context, sessionID string) (*model.SessionState, error) {
	state := model.NewSessionState(sessionID)
	s.mu.Lock()
	s.sessions[sessionID] = *state
	s.mu.Unlock()
	return state, nil
}

func (s *memSessionStore) Get(_ context.Context, sessionID string) (*model.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, errx.SessionNotFound(sessionID)
	}
	copied := state
	return &copied, nil
}

func (s *memSessionStore) Save(_ context.Context, state *model.SessionState) error {
	s.mu.Lock()
	s.sessions[state.SessionID] = *state
	s.mu.Unlock()
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

type loggedMessage struct {
	role    string
	content string
}

type memConversationLog struct {
	mu            sync.Mutex
	conversations map[string][]loggedMessage
	stages        map[string]model.ConversationStage
}

func newMemConversationLog() *memConversationLog {
	return &memConversationLog{
		conversations: make(map[string][]loggedMessage),
		stages:        make(map[string]model.ConversationStage),
	}
}

func (l *memConversationLog) CreateConversation(_ context.Context, sessionID string) error {
	l.mu.Lock()
	l.conversations[sessionID] = nil
	l.stages[sessionID] = model.StageIntroduction
	l.mu.Unlock()
	return nil
}

func (l *memConversationLog) AppendMessage(_ context.Context, sessionID, role, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.conversations[sessionID]; !ok {
		return errx.SessionNotFound(sessionID)
	}
	l.conversations[sessionID] = append(l.conversations[sessionID], loggedMessage{role: role, content: content})
	return nil
}

func (l *memConversationLog) History(_ context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs, ok := l.conversations[sessionID]
	if !ok {
		return nil, errx.SessionNotFound(sessionID)
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.role == "assistant" {
			out = append(out, schema.AssistantMessage(m.content, nil))
		} else {
			out = append(out, schema.UserMessage(m.content))
		}
	}
	return out, nil
}

func (l *memConversationLog) UpdateConversation(_ context.Context, sessionID string, stage model.ConversationStage, _ int) error {
	l.mu.Lock()
	l.stages[sessionID] = stage
	l.mu.Unlock()
	return nil
}

func (l *memConversationLog) lastAssistant(sessionID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := l.conversations[sessionID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].role == "assistant" {
			return msgs[i].content
		}
	}
	return ""
}

type memLeadSink struct {
	mu    sync.Mutex
	leads []model.NewLead
	err   error
}

func (s *memLeadSink) CreateLead(_ context.Context, lead model.NewLead) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, existing := range s.leads {
		if existing.Phone == lead.Phone {
			return nil, errx.Duplicate("lead already exists")
		}
	}
	s.leads = append(s.leads, lead)
	return &model.Lead{
		ID:               uint(len(s.leads)),
		Name:             lead.Name,
		Phone:            lead.Phone,
		InterestedPolicy: lead.InterestedPolicy,
		Status:           model.LeadStatusNew,
		SessionID:        lead.SessionID,
	}, nil
}

type memCatalog struct {
	policies []model.Policy
	err      error
}

func (c *memCatalog) ListPolicies(context.Context) ([]model.Policy, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.policies, nil
}
