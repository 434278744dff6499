package store

import (
	"fmt"

	"gorm.io/gorm"
)

// SeedPolicies loads the starter catalog when the policies table is empty.
func SeedPolicies(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Policy{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count policies: %w", err)
	}
	if count > 0 {
		return nil
	}

	policies := []Policy{
		{Name: "Term Shield 20", Provider: "Coverline Insurance", CoverageAmount: 500000, MonthlyPremium: 29.50, TermYears: 20, MedicalExamRequired: false},
		{Name: "Term Shield 30", Provider: "Coverline Insurance", CoverageAmount: 750000, MonthlyPremium: 42.00, TermYears: 30, MedicalExamRequired: true},
		{Name: "Family Protect Plus", Provider: "Coverline Insurance", CoverageAmount: 1000000, MonthlyPremium: 68.75, TermYears: 25, MedicalExamRequired: true},
		{Name: "Whole Life Secure", Provider: "Coverline Insurance", CoverageAmount: 250000, MonthlyPremium: 85.00, TermYears: 0, MedicalExamRequired: true},
		{Name: "Starter Coverage", Provider: "Coverline Insurance", CoverageAmount: 100000, MonthlyPremium: 12.25, TermYears: 10, MedicalExamRequired: false},
		{Name: "Universal Flex", Provider: "Coverline Insurance", CoverageAmount: 400000, MonthlyPremium: 55.40, TermYears: 0, MedicalExamRequired: true},
	}
	if err := db.Create(&policies).Error; err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}
	return nil
}
