package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coverline/engine/internal/agent/extract"
	"github.com/coverline/engine/internal/agent/fallback"
	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/retry"
	"github.com/coverline/engine/internal/agent/validate"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

// handleCollection walks the customer through lead capture one field at a
// time, in a fixed order. Once all five mandatory fields are present it
// switches to the confirmation sub-protocol instead of saving immediately.
func (e *Engine) handleCollection(ctx context.Context, state *model.SessionState, message string) (*Reply, error) {
	// A message sent while a field is pending answers that field. The
	// first collection turn only asks; entity extraction may already have
	// filled the pending field from the same message.
	var hint string
	if state.PendingField != "" && state.Collected.Field(state.PendingField) == "" {
		hint = captureField(&state.Collected, state.PendingField, message)
	}

	var reply string
	missing := state.Collected.MissingFields()
	switch {
	case len(missing) == 0:
		state.AwaitingConfirmation = true
		state.ConfirmationAttempts = 1
		state.PendingField = ""
		reply = e.prompts.ConfirmationSummary(state.Collected)
	case hint != "":
		state.PendingField = missing[0]
		reply = hint + " " + e.prompts.CollectionPrompt(missing[0])
	default:
		state.PendingField = missing[0]
		reply = e.prompts.CollectionPrompt(missing[0])
	}

	e.finishTurn(ctx, state, model.StageInformationCollection, reply)
	return e.reply(state, reply, map[string]any{"missing_fields": len(missing)}), nil
}

// handleConfirmation resolves a turn while awaitingConfirmation is set:
// yes saves the lead, no corrects a field, anything else re-asks.
func (e *Engine) handleConfirmation(ctx context.Context, state *model.SessionState, message string) (*Reply, error) {
	switch {
	case isAffirmative(message):
		return e.confirmAndSaveLead(ctx, state)
	case isNegative(message):
		return e.correctField(ctx, state, message)
	}

	// Unclear answer: re-ask, more directly after the second attempt.
	state.ConfirmationAttempts++
	var reply string
	if state.ConfirmationAttempts > 2 {
		reply = "Please reply \"yes\" to confirm, or tell me which detail to fix: name, phone, ID, address, or policy.\n\n" +
			e.prompts.ConfirmationSummary(state.Collected)
	} else {
		reply = "Sorry, I didn't catch that. " + e.prompts.ConfirmationSummary(state.Collected)
	}
	e.finishTurn(ctx, state, model.StageInformationCollection, reply)
	return e.reply(state, reply, map[string]any{"confirmation_attempts": state.ConfirmationAttempts}), nil
}

// confirmAndSaveLead durably creates the lead under retry. Failure keeps the
// collected data and the confirmation flag so the next "yes" can retry
// without re-collecting anything.
func (e *Engine) confirmAndSaveLead(ctx context.Context, state *model.SessionState) (*Reply, error) {
	newLead := model.NewLead{
		Name:             state.Collected.FullName,
		Phone:            state.Collected.PhoneNumber,
		NID:              state.Collected.NID,
		Address:          state.Collected.Address,
		InterestedPolicy: state.Collected.PolicyOfInterest,
		Email:            state.Collected.Email,
		Notes:            state.Collected.Notes,
		SessionID:        state.SessionID,
	}

	lead, err := retry.Do(ctx, "create lead", e.policy, func(ctx context.Context) (*model.Lead, error) {
		return e.leads.CreateLead(ctx, newLead)
	}, errx.Retryable)

	switch {
	case err == nil:
		state.AwaitingConfirmation = false
		state.ConfirmationAttempts = 0
		state.InterestLevel = model.InterestHigh
		reply := fmt.Sprintf("Thank you, %s! Your information has been submitted and our team will contact you shortly about the %s policy. Is there anything else I can help you with?",
			lead.Name, lead.InterestedPolicy)
		e.finishTurn(ctx, state, model.StageClosing, reply)
		return e.reply(state, reply, map[string]any{"lead_id": lead.ID}), nil

	case errors.Is(err, errx.ErrDuplicate):
		// Already on file: report it and move on, never retry the save.
		state.AwaitingConfirmation = false
		state.ConfirmationAttempts = 0
		reply := "It looks like we already have your information on file. Our team will be in touch shortly. Is there anything else I can help you with?"
		e.finishTurn(ctx, state, model.StageClosing, reply)
		return e.reply(state, reply, map[string]any{"duplicate": true}), nil

	case errors.Is(err, errx.ErrValidation):
		// One of the captured values is unusable; clear the likely culprit
		// and loop back into collection rather than dead-ending.
		logx.Warn().Err(err).Str("session_id", state.SessionID).Msg("confirmed lead failed validation")
		field := invalidField(state.Collected)
		state.Collected.SetField(field, "")
		state.AwaitingConfirmation = false
		state.PendingField = field
		reply := fmt.Sprintf("It seems the %s I have isn't valid. %s", fieldLabel(field), e.prompts.CollectionPrompt(field))
		e.finishTurn(ctx, state, model.StageInformationCollection, reply)
		return e.reply(state, reply, map[string]any{"invalid_field": string(field)}), nil

	default:
		logx.Error().Err(err).Str("session_id", state.SessionID).Msg("lead creation failed, data preserved")
		reply := fallback.SaveErrorMessage()
		e.finishTurn(ctx, state, model.StageInformationCollection, reply)
		return e.reply(state, reply, map[string]any{"save_failed": true}), nil
	}
}

// correctField figures out which captured value the customer rejected,
// keyword match first, extraction second. An inline replacement value is
// applied directly; otherwise the field is cleared and re-asked.
func (e *Engine) correctField(ctx context.Context, state *model.SessionState, message string) (*Reply, error) {
	field := fieldFromKeywords(message)

	entities := e.extractor.Extract(ctx, message, nil)
	if field == "" {
		field = fieldFromEntities(entities)
	}

	if field == "" {
		state.ConfirmationAttempts++
		reply := "No problem, let's fix that. Which detail is wrong: name, phone, ID, address, or policy?"
		e.finishTurn(ctx, state, model.StageInformationCollection, reply)
		return e.reply(state, reply, nil), nil
	}

	if value := entityForField(entities, field); value != "" {
		state.Collected.SetField(field, value)
		state.ConfirmationAttempts = 1
		reply := "Got it, I've updated your " + fieldLabel(field) + ". " + e.prompts.ConfirmationSummary(state.Collected)
		e.finishTurn(ctx, state, model.StageInformationCollection, reply)
		return e.reply(state, reply, map[string]any{"corrected_field": string(field)}), nil
	}

	// No replacement embedded: clear and loop back into collection.
	state.Collected.SetField(field, "")
	state.AwaitingConfirmation = false
	state.PendingField = field
	reply := "No problem. " + e.prompts.CollectionPrompt(field)
	e.finishTurn(ctx, state, model.StageInformationCollection, reply)
	return e.reply(state, reply, map[string]any{"cleared_field": string(field)}), nil
}

// captureField validates and stores one answered field. It returns a
// customer-facing hint when the answer is unusable, empty on success.
func captureField(data *model.CollectedData, field model.LeadField, message string) string {
	message = strings.TrimSpace(message)

	switch field {
	case model.FieldFullName:
		if extracted := extract.RegexExtract(message, []string{"name"}); extracted["name"] != "" {
			data.FullName = extracted["name"]
			return ""
		}
		if len(message) >= 2 && len(strings.Fields(message)) <= 5 {
			data.FullName = message
			return ""
		}
		return "I didn't quite catch your name."

	case model.FieldPhoneNumber:
		if extracted := extract.RegexExtract(message, []string{"phone"}); extracted["phone"] != "" {
			if normalized, err := validate.Phone(extracted["phone"]); err == nil {
				data.PhoneNumber = normalized
				return ""
			}
		}
		return "That doesn't look like a phone number I can use (10-15 digits, country code welcome)."

	case model.FieldNID:
		for _, token := range strings.Fields(message) {
			if normalized, err := validate.NID(token); err == nil {
				data.NID = normalized
				return ""
			}
		}
		return "That doesn't look like a valid ID (8-20 letters and digits)."

	case model.FieldAddress:
		if len(message) >= 5 {
			data.Address = message
			return ""
		}
		return "That address looks too short."

	case model.FieldPolicyOfInterest:
		if message != "" {
			data.PolicyOfInterest = message
			return ""
		}
		return "I didn't catch which policy you meant."
	}
	return ""
}

func isAffirmative(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, word := range []string{"yes", "yep", "yeah", "correct", "right", "confirm", "confirmed", "that's right", "looks good", "ok", "okay", "sure"} {
		if lower == word || strings.HasPrefix(lower, word+" ") || strings.HasPrefix(lower, word+",") || strings.HasPrefix(lower, word+".") || strings.HasPrefix(lower, word+"!") {
			return true
		}
	}
	return false
}

func isNegative(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	if containsAny(lower, "wrong", "incorrect", "not right", "mistake", "change", "fix", "actually") {
		return true
	}
	for _, word := range []string{"no", "nope", "nah"} {
		if lower == word || strings.HasPrefix(lower, word+" ") || strings.HasPrefix(lower, word+",") || strings.HasPrefix(lower, word+".") {
			return true
		}
	}
	return false
}

func fieldFromKeywords(message string) model.LeadField {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "name"):
		return model.FieldFullName
	case containsAny(lower, "phone", "number"):
		return model.FieldPhoneNumber
	case containsAny(lower, "nid", " id", "national"):
		return model.FieldNID
	case containsAny(lower, "address"):
		return model.FieldAddress
	case containsAny(lower, "policy", "plan"):
		return model.FieldPolicyOfInterest
	}
	return ""
}

func fieldFromEntities(entities map[string]string) model.LeadField {
	switch {
	case entities["name"] != "":
		return model.FieldFullName
	case entities["phone"] != "":
		return model.FieldPhoneNumber
	case entities["address"] != "":
		return model.FieldAddress
	}
	return ""
}

func entityForField(entities map[string]string, field model.LeadField) string {
	switch field {
	case model.FieldFullName:
		return entities["name"]
	case model.FieldPhoneNumber:
		if entities["phone"] != "" {
			if normalized, err := validate.Phone(entities["phone"]); err == nil {
				return normalized
			}
		}
	case model.FieldAddress:
		return entities["address"]
	}
	return ""
}

// invalidField picks the first captured value that fails validation, so a
// rejected save can be repaired with one targeted re-prompt.
func invalidField(data model.CollectedData) model.LeadField {
	if _, err := validate.Phone(data.PhoneNumber); err != nil {
		return model.FieldPhoneNumber
	}
	if _, err := validate.NID(data.NID); err != nil {
		return model.FieldNID
	}
	if len(strings.TrimSpace(data.FullName)) < 2 {
		return model.FieldFullName
	}
	if len(strings.TrimSpace(data.Address)) < 5 {
		return model.FieldAddress
	}
	return model.FieldPolicyOfInterest
}
