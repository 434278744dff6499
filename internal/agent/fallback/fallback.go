// Package fallback produces deterministic canned replies for turns where the
// generation path is unavailable. The conversation must never go silent, so
// selection always lands on a non-empty message.
package fallback

import (
	"fmt"
	"math/rand"

	"github.com/coverline/engine/internal/agent/model"
)

var genericPool = []string{
	"I'm having a technical issue right now, but I'd still like to help. Could you rephrase your question or let me know what you'd like to know about life insurance?",
	"I'm experiencing a temporary technical problem. Please try asking your question again, or let me know if there's something specific about life insurance you'd like to learn about.",
	"I apologize for the technical issue. To better assist you, could you tell me what you're looking for? For example, are you interested in learning about our policies, getting a quote, or have specific questions?",
}

// Response picks a canned reply. Selection priority: stage-specific message,
// then intent-specific, then interest-tiered, then a random generic. Pass the
// zero value ("") for any dimension that is unknown.
func Response(stage model.ConversationStage, intent model.Intent, interest model.InterestLevel) string {
	if msg := stageMessage(stage); msg != "" {
		return msg
	}
	if msg := intentMessage(intent); msg != "" {
		return msg
	}
	if msg := interestMessage(interest); msg != "" {
		return msg
	}
	return genericPool[rand.Intn(len(genericPool))]
}

func stageMessage(stage model.ConversationStage) string {
	switch stage {
	case model.StageIntroduction:
		return "Hello! I'm here to help you learn about life insurance. How can I assist you today?"
	case model.StageQualification:
		return "I'd like to understand your needs better. Could you tell me a bit about your situation? For example, are you looking to protect your family, plan for retirement, or something else?"
	case model.StageInformation:
		return "I can help you learn more about our life insurance options. Would you like information about term life, whole life, or universal life insurance?"
	case model.StagePersuasion:
		return "Life insurance is an important way to protect your loved ones and provide financial security. Would you like to explore coverage options that fit your needs?"
	case model.StageObjectionHandling:
		return "I understand your concerns. Life insurance can seem complex, but I'm here to help answer any questions you have. What would you like to know more about?"
	case model.StageInformationCollection:
		return "To help you get the best coverage, I'll need some basic information. This includes your name, contact information, and some details about your insurance needs. Shall we continue?"
	case model.StageClosing:
		return "Based on what you've told me, I believe we can find a policy that meets your needs. Would you like to proceed with getting a quote?"
	case model.StageEnded:
		return "Thank you for your time. If you have any questions in the future, please feel free to reach out. Have a great day!"
	}
	return ""
}

func intentMessage(intent model.Intent) string {
	switch intent {
	case model.IntentGreeting:
		return "Hello! I'm here to help you with life insurance. How can I assist you today?"
	case model.IntentQuestion:
		return "I'd be happy to answer your question. Could you please provide a bit more detail?"
	case model.IntentInterest:
		return "That's great to hear! I'd love to help you find the right life insurance policy. What would you like to know more about?"
	case model.IntentObjection:
		return "I understand your concerns. Let me try to address them. Could you tell me what specifically concerns you about life insurance?"
	case model.IntentInformationRequest:
		return "I can provide information about our life insurance options. Are you interested in term life, whole life, or universal life insurance?"
	case model.IntentExit, model.IntentPolicyComparison, model.IntentUnknown:
		return ""
	}
	return ""
}

func interestMessage(interest model.InterestLevel) string {
	switch interest {
	case model.InterestHigh:
		return "I'm currently experiencing a technical issue, but I'm very interested in helping you find the right life insurance policy. Could you please try asking your question again, or let me know what specific coverage you're looking for?"
	case model.InterestMedium:
		return "I apologize for the technical difficulty. I'd still like to help you explore life insurance options. What would you like to know more about?"
	case model.InterestLow:
		return "I'm having a temporary technical issue. If you're curious about life insurance, I'd be happy to answer any questions once the issue is resolved. Please try again in a moment."
	case model.InterestNone:
		return ""
	}
	return ""
}

// LLMErrorMessage is shown when generation is down and a retry hint is known.
func LLMErrorMessage(retryAfterSeconds int) string {
	if retryAfterSeconds > 0 {
		return fmt.Sprintf("I'm experiencing a temporary technical issue. Please try again in about %d seconds, or rephrase your question.", retryAfterSeconds)
	}
	return "I'm experiencing a temporary technical issue. Please try again in a moment, or rephrase your question."
}

// SaveErrorMessage is shown when a persistence write failed after retries.
func SaveErrorMessage() string {
	return "I'm experiencing a temporary issue saving your information. Please try again in a moment, and your information will be saved."
}

// NetworkErrorMessage is shown on connectivity failures.
func NetworkErrorMessage() string {
	return "I'm experiencing a temporary connectivity issue. Please try again in a moment."
}
