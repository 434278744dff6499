package model

// ConversationStage is a phase of the sales dialogue state machine.
// Ended is terminal: no transition leaves it.
type ConversationStage string

const (
	StageIntroduction          ConversationStage = "introduction"
	StageQualification         ConversationStage = "qualification"
	StageInformation           ConversationStage = "information"
	StagePersuasion            ConversationStage = "persuasion"
	StageObjectionHandling     ConversationStage = "objection_handling"
	StageInformationCollection ConversationStage = "information_collection"
	StageClosing               ConversationStage = "closing"
	StageEnded                 ConversationStage = "ended"
)

// Valid reports whether s is one of the eight known stages.
func (s ConversationStage) Valid() bool {
	switch s {
	case StageIntroduction, StageQualification, StageInformation, StagePersuasion,
		StageObjectionHandling, StageInformationCollection, StageClosing, StageEnded:
		return true
	}
	return false
}

func (s ConversationStage) String() string {
	return string(s)
}

// InterestLevel is the customer's detected buying interest.
type InterestLevel string

const (
	InterestNone   InterestLevel = "none"
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

// Rank orders interest levels so callers can compare them.
func (l InterestLevel) Rank() int {
	switch l {
	case InterestLow:
		return 1
	case InterestMedium:
		return 2
	case InterestHigh:
		return 3
	default:
		return 0
	}
}

func (l InterestLevel) String() string {
	return string(l)
}

// MaxInterest returns the higher of the two levels. Interest is treated as
// non-decreasing in practice, though that is not enforced by the state.
func MaxInterest(a, b InterestLevel) InterestLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
