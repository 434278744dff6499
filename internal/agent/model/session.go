package model

import "time"

// CustomerProfile holds attributes gathered opportunistically during the
// conversation. Everything is optional; empty means unknown.
type CustomerProfile struct {
	Age                    int    `json:"age,omitempty"`
	Name                   string `json:"name,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	Email                  string `json:"email,omitempty"`
	Address                string `json:"address,omitempty"`
	Purpose                string `json:"purpose,omitempty"`
	CurrentCoverage        string `json:"current_coverage,omitempty"`
	Dependents             string `json:"dependents,omitempty"`
	CoverageAmountInterest string `json:"coverage_amount_interest,omitempty"`
}

// CompleteEnough reports whether the profile can carry the conversation past
// qualification: age and purpose are the two facts the agent must know.
func (p CustomerProfile) CompleteEnough() bool {
	return p.Age > 0 && p.Purpose != ""
}

// LeadField identifies one mandatory or optional field of CollectedData.
type LeadField string

const (
	FieldFullName         LeadField = "full_name"
	FieldPhoneNumber      LeadField = "phone_number"
	FieldNID              LeadField = "nid"
	FieldAddress          LeadField = "address"
	FieldPolicyOfInterest LeadField = "policy_of_interest"
)

// MandatoryFields is the capture order used by the collection stage: one
// field per turn, in this sequence.
var MandatoryFields = []LeadField{
	FieldFullName,
	FieldPhoneNumber,
	FieldNID,
	FieldAddress,
	FieldPolicyOfInterest,
}

// CollectedData is the lead-capture record built up during the
// InformationCollection stage.
type CollectedData struct {
	FullName             string `json:"full_name,omitempty"`
	PhoneNumber          string `json:"phone_number,omitempty"`
	NID                  string `json:"nid,omitempty"`
	Address              string `json:"address,omitempty"`
	PolicyOfInterest     string `json:"policy_of_interest,omitempty"`
	Email                string `json:"email,omitempty"`
	PreferredContactTime string `json:"preferred_contact_time,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// IsComplete reports whether all five mandatory fields are non-empty.
func (d CollectedData) IsComplete() bool {
	return d.FullName != "" &&
		d.PhoneNumber != "" &&
		d.NID != "" &&
		d.Address != "" &&
		d.PolicyOfInterest != ""
}

// Field returns the current value of the named mandatory field.
func (d CollectedData) Field(f LeadField) string {
	switch f {
	case FieldFullName:
		return d.FullName
	case FieldPhoneNumber:
		return d.PhoneNumber
	case FieldNID:
		return d.NID
	case FieldAddress:
		return d.Address
	case FieldPolicyOfInterest:
		return d.PolicyOfInterest
	}
	return ""
}

// SetField assigns the named mandatory field.
func (d *CollectedData) SetField(f LeadField, value string) {
	switch f {
	case FieldFullName:
		d.FullName = value
	case FieldPhoneNumber:
		d.PhoneNumber = value
	case FieldNID:
		d.NID = value
	case FieldAddress:
		d.Address = value
	case FieldPolicyOfInterest:
		d.PolicyOfInterest = value
	}
}

// MissingFields lists the mandatory fields still empty, in capture order.
func (d CollectedData) MissingFields() []LeadField {
	var missing []LeadField
	for _, f := range MandatoryFields {
		if d.Field(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// SessionState is the ephemeral working memory of one conversation. It lives
// in the session store under an idle TTL; durable facts (messages, leads) are
// persisted elsewhere. The orchestrator is the only writer: it loads the state
// at the start of a turn, mutates it in memory, and saves it at the end.
// Callers must not run two turns for the same session concurrently.
type SessionState struct {
	SessionID            string            `json:"session_id"`
	Stage                ConversationStage `json:"conversation_stage"`
	Profile              CustomerProfile   `json:"customer_profile"`
	Collected            CollectedData     `json:"collected_data"`
	InterestLevel        InterestLevel     `json:"interest_level"`
	MessageCount         int               `json:"message_count"`
	ContextSummary       string            `json:"context_summary"`
	AwaitingConfirmation bool              `json:"awaiting_confirmation"`
	ConfirmationAttempts int               `json:"confirmation_attempts"`
	PendingField         LeadField         `json:"pending_field,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	LastActivity         time.Time         `json:"last_activity"`
}

// NewSessionState returns a fresh session in the Introduction stage.
func NewSessionState(sessionID string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		SessionID:     sessionID,
		Stage:         StageIntroduction,
		InterestLevel: InterestNone,
		CreatedAt:     now,
		LastActivity:  now,
	}
}
