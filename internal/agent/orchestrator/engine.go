// Package orchestrator drives the sales dialogue state machine. Each customer
// turn flows through sanitization, ambiguity resolution, intent
// classification, entity extraction, stage determination, and generation,
// with retries on every external call and canned fallbacks when the
// generation path is down. The engine is the only writer of SessionState;
// callers must not run two turns for the same session concurrently.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/coverline/engine/internal/agent/ambiguity"
	"github.com/coverline/engine/internal/agent/contextbuild"
	"github.com/coverline/engine/internal/agent/extract"
	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/prompts"
	"github.com/coverline/engine/internal/agent/retry"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

// Reply is the customer-visible outcome of one turn.
type Reply struct {
	Message       string
	SessionID     string
	Stage         model.ConversationStage
	InterestLevel model.InterestLevel
	Metadata      map[string]any
}

// EndResult reports the outcome of gracefully closing a conversation.
type EndResult struct {
	SessionID       string
	Summary         string
	DurationSeconds int
}

// Config tunes one engine instance.
type Config struct {
	Retry   retry.Policy
	Context model.ContextConfig
	Prompt  model.PromptConfig
}

type Engine struct {
	provider  model.Provider
	sessions  model.SessionStore
	log       model.ConversationLog
	catalog   model.PolicyCatalog
	leads     model.LeadSink
	prompts   *prompts.Manager
	assembler *contextbuild.Assembler
	extractor *extract.Extractor
	resolver  *ambiguity.Resolver
	policy    retry.Policy
}

func NewEngine(
	provider model.Provider,
	sessions model.SessionStore,
	log model.ConversationLog,
	catalog model.PolicyCatalog,
	leads model.LeadSink,
	cfg Config,
) *Engine {
	return &Engine{
		provider:  provider,
		sessions:  sessions,
		log:       log,
		catalog:   catalog,
		leads:     leads,
		prompts:   prompts.NewManager(cfg.Prompt),
		assembler: contextbuild.NewAssembler(cfg.Context),
		extractor: extract.NewExtractor(provider),
		resolver:  ambiguity.NewResolver(provider),
		policy:    cfg.Retry,
	}
}

// StartConversation opens a new session and returns the welcome message.
func (e *Engine) StartConversation(ctx context.Context) (*Reply, error) {
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")

	_, err := retry.Do(ctx, "create conversation", e.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.log.CreateConversation(ctx, sessionID)
	}, errx.Retryable)
	if err != nil {
		return nil, err
	}

	state, err := e.sessions.Create(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	welcome := e.prompts.WelcomeMessage()
	e.appendAssistantMessage(ctx, sessionID, welcome)

	state.MessageCount = 1
	if err := e.sessions.Save(ctx, state); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to save fresh session")
	}

	logx.Info().Str("session_id", sessionID).Msg("conversation started")
	return &Reply{
		Message:       welcome,
		SessionID:     sessionID,
		Stage:         model.StageIntroduction,
		InterestLevel: model.InterestNone,
		Metadata:      map[string]any{"message_count": state.MessageCount},
	}, nil
}

// EndConversation marks the session Ended and returns a best-effort summary.
func (e *Engine) EndConversation(ctx context.Context, sessionID, reason string) (*EndResult, error) {
	state, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := e.GenerateSummary(ctx, sessionID)

	state.Stage = model.StageEnded
	state.LastActivity = time.Now().UTC()
	if err := e.sessions.Save(ctx, state); err != nil {
		return nil, err
	}
	e.mirrorConversation(ctx, state)

	duration := 0
	if !state.CreatedAt.IsZero() {
		duration = int(time.Since(state.CreatedAt).Seconds())
	}

	logx.Info().Str("session_id", sessionID).Str("reason", reason).Msg("conversation ended")
	return &EndResult{
		SessionID:       sessionID,
		Summary:         summary,
		DurationSeconds: duration,
	}, nil
}

// GenerateSummary condenses the transcript into 2-3 sentences. Any failure
// yields the static fallback; a summary is never the reason a caller errors.
func (e *Engine) GenerateSummary(ctx context.Context, sessionID string) string {
	const staticSummary = "Conversation completed."

	history, err := e.log.History(ctx, sessionID, 50)
	if err != nil || len(history) == 0 {
		return staticSummary
	}

	var lines []string
	for _, msg := range history {
		prefix := "Agent"
		if msg.Role == schema.User {
			prefix = "Customer"
		}
		lines = append(lines, prefix+": "+msg.Content)
	}

	prompt := "Summarize this life insurance sales conversation in 2-3 sentences, " +
		"covering customer's needs, policies discussed, interest level, and outcome.\n\n" +
		strings.Join(lines, "\n")

	result, err := e.provider.GenerateResponse(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.GenerationConfig{Temperature: 0.3, MaxTokens: 200})
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("summary generation failed")
		return staticSummary
	}
	return result.Content
}

// loadOrRecreateSession resurrects working memory for a session whose Redis
// copy expired but whose conversation row still exists.
func (e *Engine) loadOrRecreateSession(ctx context.Context, sessionID string) (*model.SessionState, error) {
	state, err := e.sessions.Get(ctx, sessionID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, errx.ErrSessionNotFound) {
		return nil, err
	}

	if _, histErr := e.log.History(ctx, sessionID, 1); histErr != nil {
		return nil, errx.SessionNotFound(sessionID)
	}
	logx.Info().Str("session_id", sessionID).Msg("recreating expired session from conversation log")
	return e.sessions.Create(ctx, sessionID)
}

func (e *Engine) appendAssistantMessage(ctx context.Context, sessionID, content string) {
	_, err := retry.Do(ctx, "append assistant message", e.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.log.AppendMessage(ctx, sessionID, "assistant", content)
	}, errx.Retryable)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to log assistant message")
	}
}

func (e *Engine) appendUserMessage(ctx context.Context, sessionID, content string) {
	_, err := retry.Do(ctx, "append user message", e.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.log.AppendMessage(ctx, sessionID, "user", content)
	}, errx.Retryable)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to log user message")
	}
}

// mirrorConversation copies stage and message count into the durable record.
func (e *Engine) mirrorConversation(ctx context.Context, state *model.SessionState) {
	if err := e.log.UpdateConversation(ctx, state.SessionID, state.Stage, state.MessageCount); err != nil {
		logx.Warn().Err(err).Str("session_id", state.SessionID).Msg("failed to mirror conversation state")
	}
}

func (e *Engine) candidatePolicies(ctx context.Context) []model.Policy {
	policies, err := e.catalog.ListPolicies(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("policy catalog unavailable for this turn")
		return nil
	}
	if len(policies) > 5 {
		policies = policies[:5]
	}
	return policies
}

func (e *Engine) finishTurn(ctx context.Context, state *model.SessionState, stage model.ConversationStage, reply string) {
	e.appendAssistantMessage(ctx, state.SessionID, reply)
	state.Stage = stage
	state.MessageCount++
	state.LastActivity = time.Now().UTC()
	if err := e.sessions.Save(ctx, state); err != nil {
		logx.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to save session state")
	}
	e.mirrorConversation(ctx, state)
}

func (e *Engine) reply(state *model.SessionState, message string, extra map[string]any) *Reply {
	metadata := map[string]any{"message_count": state.MessageCount}
	for k, v := range extra {
		metadata[k] = v
	}
	return &Reply{
		Message:       message,
		SessionID:     state.SessionID,
		Stage:         state.Stage,
		InterestLevel: state.InterestLevel,
		Metadata:      metadata,
	}
}

func fieldLabel(f model.LeadField) string {
	switch f {
	case model.FieldFullName:
		return "full name"
	case model.FieldPhoneNumber:
		return "phone number"
	case model.FieldNID:
		return "national ID"
	case model.FieldAddress:
		return "address"
	case model.FieldPolicyOfInterest:
		return "policy of interest"
	}
	return string(f)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
