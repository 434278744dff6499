// Package filter scrubs generated replies for compliance before they reach
// the customer. Blocked phrases are stripped, prohibited topics cause a full
// replacement, and claims of being human are corrected.
package filter

import (
	"regexp"
	"strings"

	logx "github.com/coverline/engine/pkg/logger"
)

var blockedPhrases = []string{
	// False promises
	"guaranteed approval",
	"guaranteed coverage",
	"no questions asked",
	"instant approval",

	// Aggressive sales
	"must buy now",
	"limited time only",
	"act immediately",
	"don't miss out",
	"must buy",
	"act now or lose",

	// Medical claims
	"will cure",
	"medical advice",
	"diagnose",

	// Financial guarantees
	"guaranteed returns",
	"risk-free",
	"no risk",
}

var prohibitedContent = []string{
	"discrimination",
	"illegal advice",
	"false claims",
	"misleading information",
}

const safeRefusal = "I apologize, but I can't provide that type of information. Let me help you with something else."

var (
	blockedRe = compilePhrases(blockedPhrases)
	humanRe   = regexp.MustCompile(`(?i)\bI am human\b`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

func compilePhrases(phrases []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		res = append(res, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return res
}

// Scrub returns the compliance-filtered form of a generated reply. A reply
// touching prohibited topics is replaced wholesale rather than edited.
func Scrub(response string) string {
	filtered := response

	for i, re := range blockedRe {
		if re.MatchString(filtered) {
			logx.Debug().Str("phrase", blockedPhrases[i]).Msg("removed blocked phrase from response")
			filtered = re.ReplaceAllString(filtered, "")
		}
	}

	lower := strings.ToLower(filtered)
	for _, content := range prohibitedContent {
		if strings.Contains(lower, content) {
			logx.Warn().Str("content", content).Msg("prohibited content in response, replacing")
			return safeRefusal
		}
	}

	filtered = humanRe.ReplaceAllString(filtered, "I am an AI assistant")

	return strings.TrimSpace(spaceRe.ReplaceAllString(filtered, " "))
}

// Validate reports whether a reply meets the minimum quality bar: at least
// five characters and free of blocked phrases and prohibited content.
func Validate(response string) bool {
	if len(strings.TrimSpace(response)) < 5 {
		return false
	}
	for _, re := range blockedRe {
		if re.MatchString(response) {
			return false
		}
	}
	lower := strings.ToLower(response)
	for _, content := range prohibitedContent {
		if strings.Contains(lower, content) {
			return false
		}
	}
	return true
}
