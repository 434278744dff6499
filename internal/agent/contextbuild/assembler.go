// Package contextbuild assembles the bounded message list sent to the LLM:
// stage instructions, an optional summary of discarded history, the customer
// profile, candidate policies, and recent conversation messages. When the
// estimated token count exceeds the budget the conversational tail is
// compressed.
package contextbuild

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/coverline/engine/internal/agent/model"
	logx "github.com/coverline/engine/pkg/logger"
)

const maxCandidatePolicies = 5

type Assembler struct {
	cfg model.ContextConfig
}

func NewAssembler(cfg model.ContextConfig) *Assembler {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 50
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 30
	}
	return &Assembler{cfg: cfg}
}

// Build produces the LLM input for one generation call. systemPrompt carries
// the stage instructions and leads the list when non-empty. history must be
// ordered oldest first.
func (a *Assembler) Build(systemPrompt string, state *model.SessionState, policies []model.Policy, history []*schema.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+4)

	if systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	if state.ContextSummary != "" {
		messages = append(messages, schema.SystemMessage("Earlier conversation summary: "+state.ContextSummary))
	}
	if profile := formatProfile(state.Profile); profile != "" {
		messages = append(messages, schema.SystemMessage("Customer profile: "+profile))
	}
	if len(policies) > 0 {
		messages = append(messages, schema.SystemMessage("Available policies: "+formatPolicies(policies)))
	}

	if len(history) > a.cfg.MaxMessages {
		history = history[len(history)-a.cfg.MaxMessages:]
	}
	messages = append(messages, history...)

	if estimateTokens(messages) > a.cfg.MaxTokens {
		messages = a.compress(messages)
	}
	return messages
}

// compress keeps every system message and the most recent conversational
// messages, summarizing the discarded middle into one synthetic system
// message.
func (a *Assembler) compress(messages []*schema.Message) []*schema.Message {
	var system, conversational []*schema.Message
	for _, m := range messages {
		if m.Role == schema.System {
			system = append(system, m)
		} else {
			conversational = append(conversational, m)
		}
	}

	if len(conversational) <= a.cfg.KeepRecent {
		return messages
	}

	dropped := conversational[:len(conversational)-a.cfg.KeepRecent]
	recent := conversational[len(conversational)-a.cfg.KeepRecent:]

	summary := fmt.Sprintf("Previous conversation (%d messages): %s... %s",
		len(dropped), truncate(dropped[0].Content, 100), truncate(dropped[len(dropped)-1].Content, 100))
	system = append(system, schema.SystemMessage("Conversation summary: "+summary))

	logx.Debug().
		Int("dropped", len(dropped)).
		Int("kept", len(recent)).
		Msg("compressed conversation context")

	return append(system, recent...)
}

func formatProfile(p model.CustomerProfile) string {
	var parts []string
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if p.Purpose != "" {
		parts = append(parts, "Purpose: "+p.Purpose)
	}
	if p.Dependents != "" {
		parts = append(parts, "Dependents: "+p.Dependents)
	}
	if p.CoverageAmountInterest != "" {
		parts = append(parts, "Coverage interest: "+p.CoverageAmountInterest)
	}
	return strings.Join(parts, ", ")
}

func formatPolicies(policies []model.Policy) string {
	if len(policies) > maxCandidatePolicies {
		policies = policies[:maxCandidatePolicies]
	}
	lines := make([]string, 0, len(policies))
	for _, p := range policies {
		lines = append(lines, fmt.Sprintf("- %s: Coverage: %d, Premium: $%.2f/month, Term: %d years",
			p.Name, p.CoverageAmount, p.MonthlyPremium, p.TermYears))
	}
	return strings.Join(lines, "\n")
}

// estimateTokens approximates one token per four characters of content.
func estimateTokens(messages []*schema.Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
