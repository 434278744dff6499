package model

// ObjectionType is a recognized category of sales objection.
type ObjectionType string

const (
	ObjectionCost       ObjectionType = "cost"
	ObjectionNecessity  ObjectionType = "necessity"
	ObjectionComplexity ObjectionType = "complexity"
	ObjectionTrust      ObjectionType = "trust"
	ObjectionTiming     ObjectionType = "timing"
	ObjectionComparison ObjectionType = "comparison"

	// ObjectionUnrecognized routes to a free-form empathetic reply.
	ObjectionUnrecognized ObjectionType = ""
)
