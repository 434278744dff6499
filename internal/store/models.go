// Package store is the durable persistence layer: conversations, messages,
// leads, and the read-only policy catalog. The session store holds the
// fast-path copy of stage and message count during an active conversation;
// the rows here are authoritative after the session expires.
package store

import (
	"time"

	"github.com/coverline/engine/internal/agent/model"
)

type Conversation struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"uniqueIndex;size:64"`
	Stage        string `gorm:"size:32"`
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	ID             uint `gorm:"primaryKey"`
	ConversationID uint `gorm:"index"`
	Role           string `gorm:"size:16"`
	Content        string
	CreatedAt      time.Time
}

type Lead struct {
	ID                   uint   `gorm:"primaryKey"`
	Name                 string `gorm:"size:128"`
	Phone                string `gorm:"uniqueIndex;size:20"`
	NID                  string `gorm:"size:32"`
	Address              string
	Email                string `gorm:"size:128"`
	InterestedPolicy     string `gorm:"size:128"`
	PreferredContactTime string `gorm:"size:64"`
	Notes                string
	Status               string `gorm:"size:20"`
	SessionID            string `gorm:"size:64"`
	CreatedAt            time.Time
}

type Policy struct {
	ID                  uint   `gorm:"primaryKey"`
	Name                string `gorm:"uniqueIndex;size:128"`
	Provider            string `gorm:"size:128"`
	CoverageAmount      int64
	MonthlyPremium      float64
	TermYears           int
	MedicalExamRequired bool
	CreatedAt           time.Time
}

func (p Policy) toDomain() model.Policy {
	return model.Policy{
		ID:                  p.ID,
		Name:                p.Name,
		Provider:            p.Provider,
		CoverageAmount:      p.CoverageAmount,
		MonthlyPremium:      p.MonthlyPremium,
		TermYears:           p.TermYears,
		MedicalExamRequired: p.MedicalExamRequired,
	}
}

func (l Lead) toDomain() *model.Lead {
	return &model.Lead{
		ID:                   l.ID,
		Name:                 l.Name,
		Phone:                l.Phone,
		NID:                  l.NID,
		Address:              l.Address,
		Email:                l.Email,
		InterestedPolicy:     l.InterestedPolicy,
		PreferredContactTime: l.PreferredContactTime,
		Notes:                l.Notes,
		Status:               model.LeadStatus(l.Status),
		SessionID:            l.SessionID,
		CreatedAt:            l.CreatedAt,
	}
}
