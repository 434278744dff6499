package orchestrator

import (
	"context"
	"strings"

	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/retry"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

var exitPhrases = []string{
	"not interested", "no thanks", "i'll pass",
	"i don't want", "maybe later", "i have to go",
	"thanks but no", "not for me",
}

// determineStage applies the transition rules in priority order. Ended is
// terminal. A ready-to-convert customer with incomplete capture data is
// always funneled into collection before anything else.
func determineStage(state *model.SessionState, intent model.Intent) model.ConversationStage {
	if state.Stage == model.StageEnded {
		return model.StageEnded
	}

	if state.InterestLevel.Rank() >= model.InterestMedium.Rank() && !state.Collected.IsComplete() {
		return model.StageInformationCollection
	}

	if intent == model.IntentObjection {
		return model.StageObjectionHandling
	}

	if state.Stage == model.StageIntroduction {
		if state.Profile.CompleteEnough() {
			return model.StageInformation
		}
		return model.StageQualification
	}

	return state.Stage
}

// classifyIntent prefers the LLM classifier and degrades to keyword matching
// when it is unavailable.
func (e *Engine) classifyIntent(ctx context.Context, message string) model.Intent {
	intent, err := retry.Do(ctx, "classify intent", e.policy, func(ctx context.Context) (model.Intent, error) {
		return e.provider.ClassifyIntent(ctx, message)
	}, errx.Retryable)
	if err == nil {
		return intent
	}

	logx.Warn().Err(err).Msg("intent classification failed, using keyword fallback")
	return keywordIntent(message)
}

func keywordIntent(message string) model.Intent {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, "hello", "hi", "hey", "greetings"):
		return model.IntentGreeting
	case containsAny(lower, "not interested", "no thanks", "no", "stop"):
		return model.IntentExit
	case containsAny(lower, "expensive", "cost", "too much", "afford"):
		return model.IntentObjection
	case containsAny(lower, "interested", "want", "apply", "sign up"):
		return model.IntentInterest
	case strings.Contains(message, "?"):
		return model.IntentQuestion
	}
	return model.IntentUnknown
}

// isExitSignal is independent of stage: a fixed phrase set or a classified
// exit intent terminates the conversation immediately.
func isExitSignal(message string, intent model.Intent) bool {
	lower := strings.ToLower(message)
	for _, phrase := range exitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return intent == model.IntentExit
}

// scoreInterest derives buying interest from how far the customer has
// committed: naming a policy and sharing contact details weigh most.
func scoreInterest(state *model.SessionState) model.InterestLevel {
	if state.InterestLevel != model.InterestNone {
		return state.InterestLevel
	}

	score := 0
	if state.Collected.PolicyOfInterest != "" {
		score += 5
	}
	if state.Collected.FullName != "" || state.Collected.PhoneNumber != "" {
		score += 3
	}
	switch state.Stage {
	case model.StageInformationCollection:
		score += 2
	case model.StageClosing:
		score += 5
	}

	switch {
	case score >= 8:
		return model.InterestHigh
	case score >= 5:
		return model.InterestMedium
	case score >= 2:
		return model.InterestLow
	}
	return model.InterestNone
}

// interestFromReply spots commitment language in the exchange once no
// stronger signal exists.
func interestFromReply(reply string, state *model.SessionState) model.InterestLevel {
	if state.InterestLevel != model.InterestNone {
		return state.InterestLevel
	}
	if containsAny(strings.ToLower(reply), "interested", "want", "apply", "sign up", "next step") {
		return model.InterestMedium
	}
	return model.InterestNone
}

// classifyObjection maps an utterance onto the six recognized objection
// categories, first match wins.
func classifyObjection(message string) model.ObjectionType {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, "expensive", "cost", "price", "afford", "cheap", "too much"):
		return model.ObjectionCost
	case containsAny(lower, "don't need", "not necessary", "don't want", "not for me"):
		return model.ObjectionNecessity
	case containsAny(lower, "complicated", "confusing", "complex", "don't understand", "too hard"):
		return model.ObjectionComplexity
	case containsAny(lower, "trust", "scam", "legit", "real", "believe", "skeptical"):
		return model.ObjectionTrust
	case containsAny(lower, "later", "think about it", "not now", "maybe later", "wait"):
		return model.ObjectionTiming
	case containsAny(lower, "other company", "competitor", "better deal", "cheaper elsewhere"):
		return model.ObjectionComparison
	}
	return model.ObjectionUnrecognized
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
