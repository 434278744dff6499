// Package validate checks and normalizes lead fields before they are
// persisted. Phone numbers normalize to E.164-ish +digits form; everything
// else is format-checked only.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	errx "github.com/coverline/engine/internal/core/error"
)

var (
	separatorRe  = regexp.MustCompile(`[\s\-()]`)
	intlPhoneRe  = regexp.MustCompile(`^\+\d{1,15}$`)
	localPhoneRe = regexp.MustCompile(`^\d{10,15}$`)
	emailRe      = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	alnumRe      = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Phone strips separators and normalizes to a leading-plus digit string.
func Phone(phone string) (string, error) {
	cleaned := separatorRe.ReplaceAllString(strings.TrimSpace(phone), "")

	if strings.HasPrefix(cleaned, "+") {
		if intlPhoneRe.MatchString(cleaned) {
			return cleaned, nil
		}
		return "", errx.Validation(nil, "phone number must be in international format: +1234567890")
	}
	if localPhoneRe.MatchString(cleaned) {
		return "+" + cleaned, nil
	}
	return "", errx.Validation(nil, "phone number must be 10-15 digits, include country code: +1234567890")
}

// MaskPhone hides all but the last four digits for log output.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// NID accepts 8-20 alphanumeric characters after stripping spaces and
// hyphens. Country-specific formats are out of scope here.
func NID(nid string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(nid))
	if len(cleaned) >= 8 && len(cleaned) <= 20 && alnumRe.MatchString(cleaned) {
		return cleaned, nil
	}
	return "", errx.Validation(nil, "invalid NID format, must be 8-20 alphanumeric characters")
}

// Email lowercases a syntactically valid address.
func Email(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if emailRe.MatchString(trimmed) {
		return strings.ToLower(trimmed), nil
	}
	return "", errx.Validation(nil, "invalid email format")
}

// Lead validates the full capture record in one pass and reports every
// problem at once.
func Lead(name, phone, nid, address, email string) error {
	var problems []string

	if len(strings.TrimSpace(name)) < 2 {
		problems = append(problems, "name must be at least 2 characters")
	}
	if _, err := Phone(phone); err != nil {
		problems = append(problems, "invalid phone number")
	}
	if nid != "" {
		if _, err := NID(nid); err != nil {
			problems = append(problems, "invalid NID")
		}
	}
	if address != "" && len(strings.TrimSpace(address)) < 5 {
		problems = append(problems, "address must be at least 5 characters")
	}
	if email != "" {
		if _, err := Email(email); err != nil {
			problems = append(problems, "invalid email")
		}
	}

	if len(problems) > 0 {
		return errx.Validation(nil, fmt.Sprintf("lead validation failed: %s", strings.Join(problems, "; ")))
	}
	return nil
}
