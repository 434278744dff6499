// Package extract pulls structured entities (name, phone, email, age,
// address) out of free-text customer input. The LLM does the extraction when
// it is reachable; regex patterns cover the fallback path so a provider
// outage never loses an obviously stated fact.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/coverline/engine/internal/agent/model"
	logx "github.com/coverline/engine/pkg/logger"
)

// DefaultEntityTypes are requested when the caller has no stage-specific
// preference.
var DefaultEntityTypes = []string{"age", "phone", "name", "address", "email", "purpose"}

const maxInputLength = 2000

var (
	ageRe   = regexp.MustCompile(`\b(\d{2})\s*(?:years?\s*old|age|aged)|\b(?:age|aged)\s*(\d{2})\b`)
	phoneRe = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	nameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:i'?m|my name is|call me|i am)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)(?:\s+here|\s+speaking)`),
	}
	spaceRe = regexp.MustCompile(`\s+`)
)

type Extractor struct {
	provider model.Provider
}

func NewExtractor(provider model.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract returns the entities found in the message, keyed by entity type.
// A provider failure degrades to regex extraction rather than surfacing.
func (e *Extractor) Extract(ctx context.Context, message string, entityTypes []string) map[string]string {
	if len(entityTypes) == 0 {
		entityTypes = DefaultEntityTypes
	}

	if e.provider != nil {
		entities, err := e.provider.ExtractEntities(ctx, message, entityTypes)
		if err == nil {
			return entities
		}
		logx.Warn().Err(err).Msg("entity extraction via provider failed, using regex fallback")
	}
	return RegexExtract(message, entityTypes)
}

// RegexExtract is the deterministic extraction path. Ages outside 18..100 are
// discarded as unlikely to refer to the customer.
func RegexExtract(message string, entityTypes []string) map[string]string {
	extracted := make(map[string]string)

	for _, entity := range entityTypes {
		switch entity {
		case "age":
			if m := ageRe.FindStringSubmatch(strings.ToLower(message)); m != nil {
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				if age, err := strconv.Atoi(raw); err == nil && age >= 18 && age <= 100 {
					extracted["age"] = raw
				}
			}
		case "phone":
			if m := phoneRe.FindString(message); m != "" {
				extracted["phone"] = m
			}
		case "email":
			if m := emailRe.FindString(message); m != "" {
				extracted["email"] = m
			}
		case "name":
			for _, re := range nameRes {
				if m := re.FindStringSubmatch(message); m != nil {
					extracted["name"] = m[1]
					break
				}
			}
		}
	}
	return extracted
}

// Sanitize trims, collapses whitespace, and bounds the length of raw
// customer input before any other processing sees it. The bound counts
// runes, so truncation never produces invalid UTF-8.
func Sanitize(message string) string {
	sanitized := spaceRe.ReplaceAllString(strings.TrimSpace(message), " ")
	if utf8.RuneCountInString(sanitized) > maxInputLength {
		runes := []rune(sanitized)
		sanitized = string(runes[:maxInputLength])
	}
	return sanitized
}
