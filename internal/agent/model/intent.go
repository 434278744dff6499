package model

import "strings"

// Intent is the classified purpose of a customer utterance.
type Intent string

const (
	IntentGreeting           Intent = "greeting"
	IntentQuestion           Intent = "question"
	IntentObjection          Intent = "objection"
	IntentInterest           Intent = "interest"
	IntentExit               Intent = "exit"
	IntentInformationRequest Intent = "information_request"
	IntentPolicyComparison   Intent = "policy_comparison"
	IntentUnknown            Intent = "unknown"
)

// ParseIntent maps a classifier label to an Intent, defaulting to Unknown.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentGreeting:
		return IntentGreeting
	case IntentQuestion:
		return IntentQuestion
	case IntentObjection:
		return IntentObjection
	case IntentInterest:
		return IntentInterest
	case IntentExit:
		return IntentExit
	case IntentInformationRequest:
		return IntentInformationRequest
	case IntentPolicyComparison:
		return IntentPolicyComparison
	default:
		return IntentUnknown
	}
}

func (i Intent) String() string {
	return string(i)
}
