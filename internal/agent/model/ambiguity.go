package model

// AmbiguityType classifies why a customer message is unclear.
type AmbiguityType string

const (
	AmbiguityPronoun                 AmbiguityType = "pronoun"
	AmbiguityVague                   AmbiguityType = "vague"
	AmbiguityContradictory           AmbiguityType = "contradictory"
	AmbiguityMultipleInterpretations AmbiguityType = "multiple_interpretations"
	AmbiguityMissingContext          AmbiguityType = "missing_context"
)

// AmbiguityResult is produced and consumed within a single turn; it is never
// persisted.
type AmbiguityResult struct {
	IsAmbiguous     bool
	Type            AmbiguityType
	Phrases         []string
	Interpretations []string
	ContextNeeded   string
}
