// Package ambiguity decides whether a customer message can be acted on or
// needs a clarifying question first. Detection is layered: regex heuristics
// for pronouns, vagueness and contradiction, plus a best-effort LLM check for
// multiple interpretations. Pronoun and vague ambiguity can be auto-resolved
// when recent context narrows the referent; contradiction and multiple
// interpretations always require clarification.
package ambiguity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/coverline/engine/internal/agent/model"
	logx "github.com/coverline/engine/pkg/logger"
)

var pronounPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:that|this|one|it|them|those|these)\b`),
	regexp.MustCompile(`\b(?:the|a)\s+one\b`),
	regexp.MustCompile(`\b(?:which|what|who)\s+(?:one|policy|option)\b`),
}

var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btell\s+me\s+more\b`),
	regexp.MustCompile(`\bwhat\s+about\s+(?:that|this|it)\b`),
	regexp.MustCompile(`\b(?:more|else)\s+(?:information|details|about)\b`),
	regexp.MustCompile(`\b(?:explain|describe|tell)\s+(?:more|about|it)\b`),
	regexp.MustCompile(`\b(?:can\s+you\s+)?(?:elaborate|expand)\b`),
}

var contradictionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:but|however|although|though)\b`),
	regexp.MustCompile(`\b(?:on\s+the\s+other\s+hand|conversely)\b`),
	regexp.MustCompile(`\b(?:actually|wait|hang\s+on)\b`),
}

var (
	negativeWords = []string{"no", "not", "don't", "won't", "can't", "shouldn't", "never", "none"}
	positiveWords = []string{"yes", "interested", "want", "need", "like", "good", "great"}
	topicWords    = []string{"policy", "coverage", "premium", "term life", "whole life", "universal life", "insurance plan"}
)

// Context carries the conversational surroundings detection and clarification
// draw on. All fields are optional.
type Context struct {
	Stage                model.ConversationStage
	RecentTopics         []string
	PoliciesDiscussed    []string
	LastAssistantMessage string
}

type Resolver struct {
	provider model.Provider
}

// NewResolver accepts a nil provider; detection then runs on heuristics only.
func NewResolver(provider model.Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Detect analyzes one customer message. recentUserMessages are the customer's
// prior utterances, newest last, used for contradiction detection.
func (r *Resolver) Detect(ctx context.Context, message string, convCtx Context, recentUserMessages []string) model.AmbiguityResult {
	lower := strings.ToLower(message)

	pronounPhrases := findMatches(pronounPatterns, lower)
	vaguePhrases := findMatches(vaguePatterns, lower)
	contradictory := detectContradiction(lower, recentUserMessages)

	var interpretations []string
	var contextNeeded string
	multiple := false

	// The LLM check is expensive; only short or already-suspect messages
	// warrant it, and its failure never blocks the turn.
	if r.provider != nil && (len(pronounPhrases) > 0 || len(vaguePhrases) > 0 || len(strings.TrimSpace(message)) < 10) {
		multiple, interpretations, contextNeeded = r.checkInterpretations(ctx, message, convCtx)
	}

	isAmbiguous := len(pronounPhrases) > 0 || len(vaguePhrases) > 0 || contradictory || multiple
	if !isAmbiguous {
		return model.AmbiguityResult{}
	}

	result := model.AmbiguityResult{
		IsAmbiguous:     true,
		Interpretations: interpretations,
		ContextNeeded:   contextNeeded,
	}
	switch {
	case len(pronounPhrases) > 0:
		result.Type = model.AmbiguityPronoun
		result.Phrases = append(pronounPhrases, vaguePhrases...)
	case len(vaguePhrases) > 0:
		result.Type = model.AmbiguityVague
		result.Phrases = vaguePhrases
	case contradictory:
		result.Type = model.AmbiguityContradictory
	case multiple:
		result.Type = model.AmbiguityMultipleInterpretations
	default:
		result.Type = model.AmbiguityMissingContext
	}
	return result
}

// NeedsClarification applies the resolution policy: contradiction and
// multiple interpretations always need a question; pronoun references resolve
// when one or two candidate policies were recently discussed; vague requests
// resolve when the preceding agent message was itself topically specific.
func (r *Resolver) NeedsClarification(result model.AmbiguityResult, convCtx Context) bool {
	if !result.IsAmbiguous {
		return false
	}

	switch result.Type {
	case model.AmbiguityContradictory, model.AmbiguityMultipleInterpretations:
		return true
	case model.AmbiguityPronoun:
		n := len(convCtx.PoliciesDiscussed)
		return n == 0 || n > 2
	case model.AmbiguityVague:
		return !topicallySpecific(convCtx.LastAssistantMessage)
	case model.AmbiguityMissingContext:
		return true
	}
	return true
}

// GenerateClarification builds the question from a per-type template, then
// asks the LLM to polish it. Polish failures fall back to the template.
func (r *Resolver) GenerateClarification(ctx context.Context, result model.AmbiguityResult, message string, convCtx Context) string {
	if !result.IsAmbiguous {
		return ""
	}

	clarification := r.templateFor(result, convCtx)

	if r.provider != nil {
		prompt := fmt.Sprintf(`Make this clarification request more natural and helpful. Keep it friendly and concise:

Original: %q

Context:
- User message: %q
- Conversation stage: %s

Generate a natural, helpful clarification question (max 2 sentences):`, clarification, message, convCtx.Stage)

		resp, err := r.provider.GenerateResponse(ctx,
			[]*schema.Message{schema.UserMessage(prompt)},
			model.GenerationConfig{Temperature: 0.7, MaxTokens: 150})
		if err == nil {
			refined := strings.TrimSpace(resp.Content)
			if len(refined) > 10 {
				return refined
			}
		} else {
			logx.Debug().Err(err).Msg("clarification polish failed, using template")
		}
	}
	return clarification
}

func (r *Resolver) templateFor(result model.AmbiguityResult, convCtx Context) string {
	contextText := contextSummary(convCtx)

	switch result.Type {
	case model.AmbiguityPronoun:
		if len(convCtx.PoliciesDiscussed) > 0 {
			options := strings.Join(head(convCtx.PoliciesDiscussed, 3), ", ")
			return fmt.Sprintf("I'd be happy to help! Which policy are you referring to? We discussed %s.", options)
		}
		if contextText != "" {
			return fmt.Sprintf("I want to make sure I understand. %s Could you please clarify what specifically you're referring to?", contextText)
		}
		return "I'd be happy to help! Could you please clarify what you're referring to? For example, are you asking about a specific policy, coverage details, or something else?"

	case model.AmbiguityVague:
		if contextText != "" {
			return fmt.Sprintf("Of course! %s Would you like more details about what we just discussed, or something else?", contextText)
		}
		return "I'd be happy to provide more information! What specifically would you like to know more about?"

	case model.AmbiguityContradictory:
		return "I understand you might have mixed feelings about this. Could you help me understand what concerns you most about life insurance, and what aspects might interest you?"

	case model.AmbiguityMultipleInterpretations:
		if len(result.Interpretations) > 0 {
			var b strings.Builder
			b.WriteString("I want to make sure I understand correctly. Are you asking about:\n")
			for _, interp := range head(result.Interpretations, 3) {
				b.WriteString("- " + interp + "\n")
			}
			b.WriteString("\nPlease let me know which one, or clarify what you mean.")
			return b.String()
		}
		return "I want to make sure I understand correctly. Could you please clarify what you mean?"

	case model.AmbiguityMissingContext:
		if result.ContextNeeded != "" {
			return "To help you better, I need a bit more information: " + result.ContextNeeded
		}
		return "I want to make sure I understand correctly. Could you please provide a bit more detail?"
	}
	return "Could you please clarify what you mean?"
}

func (r *Resolver) checkInterpretations(ctx context.Context, message string, convCtx Context) (bool, []string, string) {
	prompt := fmt.Sprintf(`Analyze this message for ambiguity in the context of a life insurance sales conversation:

Message: %q

Context:
- Conversation stage: %s
- Recent topics: %s
- Policies discussed: %s

Does this message have multiple possible interpretations? If yes, list 2-3 possible meanings. If not, respond with "none".

Respond in this format:
AMBIGUITY: yes/no
MEANINGS: [list of possible meanings, or "none"]
CONTEXT_NEEDED: [what context is missing, or "none"]`,
		message, convCtx.Stage, listOrNone(convCtx.RecentTopics), listOrNone(convCtx.PoliciesDiscussed))

	resp, err := r.provider.GenerateResponse(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.GenerationConfig{Temperature: 0.3, MaxTokens: 200})
	if err != nil {
		logx.Debug().Err(err).Msg("interpretation check failed, treating as unambiguous")
		return false, nil, ""
	}

	text := strings.ToLower(resp.Content)
	if !strings.Contains(text, "ambiguity: yes") && !strings.Contains(text, "has multiple") {
		return false, nil, ""
	}

	var interpretations []string
	if idx := strings.Index(text, "meanings:"); idx >= 0 {
		section := text[idx+len("meanings:"):]
		if end := strings.Index(section, "context_needed:"); end >= 0 {
			section = section[:end]
		}
		for _, line := range strings.Split(section, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "- "))
			if line != "" && !strings.Contains(line, "none") {
				interpretations = append(interpretations, line)
			}
		}
		interpretations = head(interpretations, 3)
	}

	var contextNeeded string
	if idx := strings.Index(text, "context_needed:"); idx >= 0 {
		contextNeeded = strings.TrimSpace(strings.SplitN(text[idx+len("context_needed:"):], "\n", 2)[0])
		if strings.Contains(contextNeeded, "none") {
			contextNeeded = ""
		}
	}
	return true, interpretations, contextNeeded
}

func detectContradiction(lower string, recentUserMessages []string) bool {
	indicated := false
	for _, re := range contradictionPatterns {
		if re.MatchString(lower) {
			indicated = true
			break
		}
	}
	if !indicated || len(recentUserMessages) == 0 {
		return false
	}

	start := len(recentUserMessages) - 3
	if start < 0 {
		start = 0
	}
	recent := strings.ToLower(strings.Join(recentUserMessages[start:], " "))

	recentNeg := containsAny(recent, negativeWords)
	recentPos := containsAny(recent, positiveWords)
	currentNeg := containsAny(lower, negativeWords)
	currentPos := containsAny(lower, positiveWords)

	return (recentNeg && currentPos) || (recentPos && currentNeg)
}

func topicallySpecific(assistantMessage string) bool {
	return containsAny(strings.ToLower(assistantMessage), topicWords)
}

func findMatches(patterns []*regexp.Regexp, lower string) []string {
	var phrases []string
	for _, re := range patterns {
		phrases = append(phrases, re.FindAllString(lower, -1)...)
	}
	return phrases
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func contextSummary(convCtx Context) string {
	var parts []string
	if len(convCtx.PoliciesDiscussed) > 0 {
		parts = append(parts, "Policies we discussed: "+strings.Join(head(convCtx.PoliciesDiscussed, 3), ", ")+".")
	}
	if len(convCtx.RecentTopics) > 0 {
		parts = append(parts, "Recent topics: "+strings.Join(head(convCtx.RecentTopics, 2), ", ")+".")
	}
	return strings.Join(parts, " ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
