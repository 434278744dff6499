package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// GenerationConfig tunes a single generation call. Each conversation stage
// carries its own temperature/length settings.
type GenerationConfig struct {
	Temperature float32
	MaxTokens   int
}

// GenerationResult is the validated output of one generation call.
type GenerationResult struct {
	Content    string
	TokensUsed int
}

// Provider abstracts the LLM backend. Implementations may fail with timeouts
// or transport errors; they must never succeed with empty content.
type Provider interface {
	// GenerateResponse produces the assistant reply for the given messages.
	GenerateResponse(ctx context.Context, messages []*schema.Message, cfg GenerationConfig) (*GenerationResult, error)

	// ClassifyIntent labels a single customer utterance.
	ClassifyIntent(ctx context.Context, message string) (Intent, error)

	// ExtractEntities pulls the requested entity types out of free text.
	ExtractEntities(ctx context.Context, message string, entityTypes []string) (map[string]string, error)
}

// SessionStore is the ephemeral, TTL-keyed home of SessionState. Get returns
// an error satisfying errors.Is(err, errx.ErrSessionNotFound) when the session
// expired or never existed; that is a normal outcome, distinct from a
// transport error. Every Save resets the idle TTL.
type SessionStore interface {
	Create(ctx context.Context, sessionID string) (*SessionState, error)
	Get(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, state *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// ConversationLog is the durable, append-only record of a conversation. The
// session store holds the fast-path copy of stage/messageCount during an
// active conversation; this log is authoritative after expiry.
type ConversationLog interface {
	// CreateConversation registers a conversation for the session.
	CreateConversation(ctx context.Context, sessionID string) error

	// AppendMessage appends one message (role "user" or "assistant").
	AppendMessage(ctx context.Context, sessionID, role, content string) error

	// History returns up to limit most recent messages, oldest first.
	History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error)

	// UpdateConversation mirrors stage and message count from session state.
	UpdateConversation(ctx context.Context, sessionID string, stage ConversationStage, messageCount int) error
}

// PolicyCatalog supplies candidate policies for context assembly.
type PolicyCatalog interface {
	ListPolicies(ctx context.Context) ([]Policy, error)
}

// LeadSink durably creates lead records. A lead whose normalized phone
// already exists fails with errx.ErrDuplicate.
type LeadSink interface {
	CreateLead(ctx context.Context, lead NewLead) (*Lead, error)
}
