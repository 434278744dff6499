package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/coverline/engine/internal/agent/ambiguity"
	"github.com/coverline/engine/internal/agent/extract"
	"github.com/coverline/engine/internal/agent/fallback"
	"github.com/coverline/engine/internal/agent/filter"
	"github.com/coverline/engine/internal/agent/llm"
	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/prompts"
	"github.com/coverline/engine/internal/agent/retry"
	"github.com/coverline/engine/internal/agent/validate"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

// ProcessMessage runs one customer turn end to end. LLM failures degrade to
// canned replies; the only errors surfaced to the caller are an unknown
// session and an unrecoverable session-store failure.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, rawMessage string) (*Reply, error) {
	state, err := e.loadOrRecreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	message := extract.Sanitize(rawMessage)
	if message == "" {
		return nil, errx.Validation(nil, "message must not be empty")
	}
	e.appendUserMessage(ctx, sessionID, message)
	state.MessageCount++

	// Confirmation turns bypass the general pipeline: a bare "yes" would
	// otherwise trip the short-message ambiguity check.
	if state.AwaitingConfirmation {
		return e.handleConfirmation(ctx, state, message)
	}

	convCtx, recentUserMessages := e.conversationContext(ctx, state)

	result := e.resolver.Detect(ctx, message, convCtx, recentUserMessages)
	if e.resolver.NeedsClarification(result, convCtx) {
		clarification := e.resolver.GenerateClarification(ctx, result, message, convCtx)
		clarification = filter.Scrub(clarification)
		e.finishTurn(ctx, state, state.Stage, clarification)
		return e.reply(state, clarification, map[string]any{"clarification": true, "ambiguity_type": string(result.Type)}), nil
	}

	intent := e.classifyIntent(ctx, message)

	if isExitSignal(message, intent) {
		return e.handleExit(ctx, state)
	}

	entities := e.extractor.Extract(ctx, message, nil)
	if len(entities) > 0 {
		mergeEntities(state, entities)
		if err := e.sessions.Save(ctx, state); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to persist extracted entities")
		}
	}

	state.InterestLevel = scoreInterest(state)
	stage := determineStage(state, intent)

	switch stage {
	case model.StageInformationCollection:
		return e.handleCollection(ctx, state, message)
	case model.StageObjectionHandling:
		return e.handleObjection(ctx, state, message)
	}

	reply := e.generateReply(ctx, state, stage, intent)

	state.InterestLevel = interestFromReply(reply, state)
	e.finishTurn(ctx, state, stage, reply)
	return e.reply(state, reply, map[string]any{"extracted_entities": entities, "intent": string(intent)}), nil
}

// generateReply assembles context and calls the LLM under retry; on
// exhaustion or an unacceptable response it substitutes a canned reply. The
// customer always gets text.
func (e *Engine) generateReply(ctx context.Context, state *model.SessionState, stage model.ConversationStage, intent model.Intent) string {
	policies := e.candidatePolicies(ctx)

	history, err := e.log.History(ctx, state.SessionID, 50)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", state.SessionID).Msg("history unavailable for this turn")
	}

	systemPrompt, err := e.prompts.SystemPrompt(ctx, stage)
	if err != nil {
		logx.Error().Err(err).Msg("system prompt render failed")
	}

	messages := e.assembler.Build(systemPrompt, state, policies, history)
	cfg := llm.ConfigForStage(stage)

	result, err := retry.Do(ctx, "generate reply", e.policy, func(ctx context.Context) (*model.GenerationResult, error) {
		return e.provider.GenerateResponse(ctx, messages, cfg)
	}, errx.Retryable)
	if err != nil {
		logx.Error().Err(err).Str("stage", stage.String()).Msg("generation failed, serving fallback")
		return fallback.Response(stage, intent, state.InterestLevel)
	}

	if !filter.Validate(result.Content) {
		logx.Warn().Str("stage", stage.String()).Msg("generated reply rejected by validation, serving fallback")
		return fallback.Response(stage, intent, state.InterestLevel)
	}
	return filter.Scrub(result.Content)
}

func (e *Engine) handleExit(ctx context.Context, state *model.SessionState) (*Reply, error) {
	exitMessage := e.prompts.ExitMessage()
	e.finishTurn(ctx, state, model.StageEnded, exitMessage)
	return e.reply(state, exitMessage, map[string]any{"reason": "customer_requested"}), nil
}

func (e *Engine) handleObjection(ctx context.Context, state *model.SessionState, message string) (*Reply, error) {
	objectionType := classifyObjection(message)

	var reply string
	if objectionType != model.ObjectionUnrecognized {
		reply = e.prompts.ObjectionResponse(objectionType, e.objectionContext(ctx, state))
	} else {
		prompt := fmt.Sprintf(`A customer raised an objection: %q
Customer profile: age %d, purpose %q

Respond empathetically, address their concern with facts, and try to overcome the objection naturally.`,
			message, state.Profile.Age, state.Profile.Purpose)

		result, err := retry.Do(ctx, "objection reply", e.policy, func(ctx context.Context) (*model.GenerationResult, error) {
			return e.provider.GenerateResponse(ctx,
				[]*schema.Message{schema.UserMessage(prompt)},
				llm.ConfigForStage(model.StageObjectionHandling))
		}, errx.Retryable)
		if err != nil {
			logx.Error().Err(err).Msg("objection generation failed, serving fallback")
			reply = fallback.Response(model.StageObjectionHandling, model.IntentObjection, state.InterestLevel)
		} else {
			reply = result.Content
		}
	}

	reply = filter.Scrub(reply)
	e.finishTurn(ctx, state, model.StageObjectionHandling, reply)
	return e.reply(state, reply, map[string]any{"objection_type": string(objectionType)}), nil
}

// objectionContext fills rebuttal templates from the profile and the
// cheapest catalog entries when available.
func (e *Engine) objectionContext(ctx context.Context, state *model.SessionState) prompts.ObjectionContext {
	octx := prompts.ObjectionContext{Age: state.Profile.Age}
	if policies := e.candidatePolicies(ctx); len(policies) > 0 {
		octx.MinCoverage = policies[0].CoverageAmount
		mid := policies[len(policies)/2]
		octx.CoverageAmount = mid.CoverageAmount
		octx.MonthlyPremium = mid.MonthlyPremium
	}
	return octx
}

// conversationContext derives what the ambiguity resolver needs from recent
// history: which catalog policies the agent mentioned in its last two turns,
// the last agent message, and the customer's recent utterances.
func (e *Engine) conversationContext(ctx context.Context, state *model.SessionState) (ambiguity.Context, []string) {
	convCtx := ambiguity.Context{Stage: state.Stage}

	history, err := e.log.History(ctx, state.SessionID, 12)
	if err != nil {
		return convCtx, nil
	}

	var assistantMessages, userMessages []string
	for _, msg := range history {
		switch msg.Role {
		case schema.Assistant:
			assistantMessages = append(assistantMessages, msg.Content)
		case schema.User:
			userMessages = append(userMessages, msg.Content)
		}
	}

	if len(assistantMessages) > 0 {
		convCtx.LastAssistantMessage = assistantMessages[len(assistantMessages)-1]
	}

	recentAssistant := assistantMessages
	if len(recentAssistant) > 2 {
		recentAssistant = recentAssistant[len(recentAssistant)-2:]
	}
	recentText := strings.ToLower(strings.Join(recentAssistant, " "))
	for _, policy := range e.candidatePolicies(ctx) {
		if strings.Contains(recentText, strings.ToLower(policy.Name)) {
			convCtx.PoliciesDiscussed = append(convCtx.PoliciesDiscussed, policy.Name)
		}
	}

	if len(userMessages) > 3 {
		userMessages = userMessages[len(userMessages)-3:]
	}
	return convCtx, userMessages
}

// mergeEntities folds extracted facts into the profile and, where they map
// onto lead fields, into the capture record.
func mergeEntities(state *model.SessionState, entities map[string]string) {
	if v := entities["age"]; v != "" {
		if age := atoi(v); age > 0 {
			state.Profile.Age = age
		}
	}
	if v := entities["name"]; v != "" {
		state.Profile.Name = v
		state.Collected.FullName = v
	}
	if v := entities["phone"]; v != "" {
		state.Profile.Phone = v
		// Only a normalizable number goes into the capture record.
		if normalized, err := validate.Phone(v); err == nil {
			state.Collected.PhoneNumber = normalized
		}
	}
	if v := entities["email"]; v != "" {
		state.Profile.Email = v
		state.Collected.Email = v
	}
	if v := entities["address"]; v != "" {
		state.Profile.Address = v
		state.Collected.Address = v
	}
	if v := entities["purpose"]; v != "" {
		state.Profile.Purpose = v
	}
}
