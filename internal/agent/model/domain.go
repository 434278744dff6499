package model

import "time"

// Policy is one entry of the read-only policy catalog.
type Policy struct {
	ID                  uint    `json:"id"`
	Name                string  `json:"name"`
	Provider            string  `json:"provider"`
	CoverageAmount      int64   `json:"coverage_amount"`
	MonthlyPremium      float64 `json:"monthly_premium"`
	TermYears           int     `json:"term_years"`
	MedicalExamRequired bool    `json:"medical_exam_required"`
}

// LeadStatus tracks a lead through the sales pipeline.
type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusContacted     LeadStatus = "contacted"
	LeadStatusConverted     LeadStatus = "converted"
	LeadStatusNotInterested LeadStatus = "not_interested"
)

// NewLead carries the confirmed capture record into the lead sink.
type NewLead struct {
	Name                 string
	Phone                string
	NID                  string
	Address              string
	InterestedPolicy     string
	Email                string
	PreferredContactTime string
	Notes                string
	SessionID            string
}

// Lead is a durably persisted prospect record.
type Lead struct {
	ID                   uint
	Name                 string
	Phone                string
	NID                  string
	Address              string
	Email                string
	InterestedPolicy     string
	PreferredContactTime string
	Notes                string
	Status               LeadStatus
	SessionID            string
	CreatedAt            time.Time
}
