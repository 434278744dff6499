// Package prompts renders the system prompts and canned message templates
// that shape the sales agent's voice. Long-form stage prompts live in
// embedded template files; short templates (welcome, exit, objection
// rebuttals) are defined inline.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/coverline/engine/internal/agent/model"
)

//go:embed template/base_system.txt
var baseSystemPrompt string

//go:embed template/stage_introduction.txt
var introductionAddendum string

//go:embed template/stage_qualification.txt
var qualificationAddendum string

//go:embed template/stage_information.txt
var informationAddendum string

//go:embed template/stage_persuasion.txt
var persuasionAddendum string

//go:embed template/stage_collection.txt
var collectionAddendum string

type Manager struct {
	companyName string
	agentName   string
}

func NewManager(cfg model.PromptConfig) *Manager {
	return &Manager{companyName: cfg.CompanyName, agentName: cfg.AgentName}
}

// SystemPrompt renders the stage-appropriate system prompt. Stages without a
// dedicated addendum fall back to the base prompt alone.
func (m *Manager) SystemPrompt(ctx context.Context, stage model.ConversationStage) (string, error) {
	raw := baseSystemPrompt
	if addendum := stageAddendum(stage); addendum != "" {
		raw += "\n" + addendum
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(raw),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"CompanyName": m.companyName,
		"AgentName":   m.agentName,
	})
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

func stageAddendum(stage model.ConversationStage) string {
	switch stage {
	case model.StageIntroduction:
		return introductionAddendum
	case model.StageQualification:
		return qualificationAddendum
	case model.StageInformation:
		return informationAddendum
	case model.StagePersuasion, model.StageObjectionHandling:
		return persuasionAddendum
	case model.StageInformationCollection:
		return collectionAddendum
	case model.StageClosing, model.StageEnded:
		return ""
	}
	return ""
}

var welcomeTemplates = map[string][]string{
	"morning": {
		"Good morning! I'm %s, your AI life insurance advisor. I'm here to help you understand your coverage options. How can I assist you today?",
		"Hello! Good morning. I'm %s, an AI assistant specializing in life insurance. I'd love to help you explore your options. What brings you here today?",
	},
	"afternoon": {
		"Good afternoon! I'm %s, your AI life insurance advisor. How can I help you find the right coverage today?",
		"Hello! I'm %s. I'm here as your AI life insurance assistant to answer questions and help you find suitable policies. What would you like to know?",
	},
	"evening": {
		"Good evening! I'm %s, your AI life insurance advisor. Even though it's evening, I'm here to help. What can I assist you with?",
		"Hello! I'm %s. I understand you're looking into life insurance - I'm here to help make that process easier for you. How can I assist?",
	},
	"generic": {
		"Hello! I'm %s, your AI life insurance advisor. I'm here to help you understand your coverage options and find the right policy for your needs. How can I help you today?",
		"Hi there! I'm %s, an AI assistant specializing in life insurance. My goal is to help you make an informed decision about coverage. What questions can I answer for you?",
	},
}

// WelcomeMessage returns a greeting appropriate to the local time of day.
func (m *Manager) WelcomeMessage() string {
	hour := time.Now().Hour()

	var key string
	switch {
	case hour >= 5 && hour < 12:
		key = "morning"
	case hour >= 12 && hour < 17:
		key = "afternoon"
	case hour >= 17 && hour < 22:
		key = "evening"
	default:
		key = "generic"
	}

	templates := welcomeTemplates[key]
	return fmt.Sprintf(templates[rand.Intn(len(templates))], m.agentName)
}

// ExitMessage is the graceful close when a customer signals exit.
func (m *Manager) ExitMessage() string {
	return "Thank you for your time. Feel free to reach out if you have questions in the future."
}

// ObjectionContext supplies the numbers substituted into rebuttal templates.
// Zero values get sensible defaults.
type ObjectionContext struct {
	Age            int
	CoverageAmount int64
	MonthlyPremium float64
	MinCoverage    int64
}

func (c ObjectionContext) withDefaults() ObjectionContext {
	if c.CoverageAmount == 0 {
		c.CoverageAmount = 500000
	}
	if c.MonthlyPremium == 0 {
		c.MonthlyPremium = 50
	}
	if c.MinCoverage == 0 {
		c.MinCoverage = 100000
	}
	return c
}

func (c ObjectionContext) ageText() string {
	if c.Age > 0 {
		return fmt.Sprintf("%d", c.Age)
	}
	return "your current age"
}

// ObjectionResponse returns the parameterized rebuttal for a recognized
// objection category, or a short acknowledgment for unrecognized ones.
func (m *Manager) ObjectionResponse(objectionType model.ObjectionType, octx ObjectionContext) string {
	octx = octx.withDefaults()
	dailyCost := octx.MonthlyPremium / 30

	switch objectionType {
	case model.ObjectionCost:
		return fmt.Sprintf(`I completely understand that cost is important to you. Let me help put this in perspective:

- For $%d in coverage, that's about $%.2f per day - less than a cup of coffee
- Think of it as protecting your family's financial security
- We also offer coverage starting at $%d if you'd like to start smaller
- Many of our customers find that the peace of mind is well worth the cost

What coverage amount would fit your budget better?`, octx.CoverageAmount, dailyCost, octx.MinCoverage)

	case model.ObjectionNecessity:
		return fmt.Sprintf(`I appreciate that perspective. Many people feel that way initially. However, consider:

- Life insurance isn't for you - it's for the people who depend on you
- Unexpected events can happen to anyone
- Getting coverage while you're %s and healthy locks in lower rates
- Premiums increase with age each year
- It's one of the few financial decisions that gets more expensive the longer you wait

What concerns you most about not having coverage?`, octx.ageText())

	case model.ObjectionComplexity:
		return `I totally get that - insurance can seem complicated at first! But it's actually simpler than most people think:

Think of it this way: You're choosing how much protection your family gets, for how long, and how much you want to pay. That's really it.

I'll guide you through every step, and our application process is straightforward. Most customers find it much simpler than they expected.

What specific part feels confusing? I'm happy to clarify.`

	case model.ObjectionTrust:
		return `That's a very valid concern, and I'm glad you're asking. Let me address that:

- We're a licensed and regulated insurance company
- Your information is encrypted and secure
- If you prefer, I can connect you with one of our human agents
- We have many satisfied customers

Would you like me to share more about our company's credentials, or would you prefer to speak with a human agent?`

	case model.ObjectionTiming:
		return fmt.Sprintf(`I understand wanting to think it over - that's a smart approach to any important decision.

However, there are a few timing considerations:
- Premiums increase each year as you get older
- Health conditions can develop that affect rates
- Life changes (like getting a mortgage or having children) make coverage more important
- You can lock in today's rates while you're %s and healthy

Would you like me to send you a summary of what we discussed so you can review it? Or are there specific questions I can answer to help with your decision?`, octx.ageText())

	case model.ObjectionComparison:
		return `I appreciate you doing your research - that's exactly the right approach. Let me address your comparison:

- We understand other companies offer competitive rates
- However, we offer excellent customer service and reliability
- Our claims process is efficient, and we pay out a high percentage of claims
- Many customers find our overall value proposition makes us the better choice

What specifically are you seeing from other companies that interests you? I'd be happy to compare apples to apples.`

	case model.ObjectionUnrecognized:
		return "I understand your concern. Let me help address that."
	}
	return "I understand your concern. Let me help address that."
}

// CollectionPrompt asks for one missing lead field.
func (m *Manager) CollectionPrompt(field model.LeadField) string {
	switch field {
	case model.FieldFullName:
		return "Great! To get started with your application, could you please share your full name?"
	case model.FieldPhoneNumber:
		return "Thank you! What's the best phone number for our team to reach you?"
	case model.FieldNID:
		return "Thanks! Could you please provide your national ID number? We need it for the application, and it's kept secure and encrypted."
	case model.FieldAddress:
		return "Almost there! What's your current address?"
	case model.FieldPolicyOfInterest:
		return "Last question: which policy are you most interested in?"
	}
	return "Could you share the next piece of information for your application?"
}

// ConfirmationSummary presents everything collected and asks for a yes/no.
func (m *Manager) ConfirmationSummary(data model.CollectedData) string {
	var b strings.Builder
	b.WriteString("Perfect, I have everything I need! Let me confirm your details:\n\n")
	b.WriteString("- Full name: " + data.FullName + "\n")
	b.WriteString("- Phone number: " + data.PhoneNumber + "\n")
	b.WriteString("- National ID: " + data.NID + "\n")
	b.WriteString("- Address: " + data.Address + "\n")
	b.WriteString("- Policy of interest: " + data.PolicyOfInterest + "\n")
	if data.Email != "" {
		b.WriteString("- Email: " + data.Email + "\n")
	}
	b.WriteString("\nIs everything correct? (yes/no)")
	return b.String()
}
