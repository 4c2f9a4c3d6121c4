package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFreeDemoDuration is used when a teacher offers a demo without configuring its length.
const DefaultFreeDemoDuration = 30

// DiscountTiers are monthly subscription discounts in percent, keyed by classes per month.
type DiscountTiers struct {
	Monthly4  decimal.Decimal `json:"monthly4"`
	Monthly8  decimal.Decimal `json:"monthly8"`
	Monthly12 decimal.Decimal `json:"monthly12"`
}

// ForClasses returns the discount for an exact classes-per-month match, or zero.
func (d DiscountTiers) ForClasses(classesPerMonth int) decimal.Decimal {
	switch classesPerMonth {
	case 4:
		return d.Monthly4
	case 8:
		return d.Monthly8
	case 12:
		return d.Monthly12
	default:
		return decimal.Zero
	}
}

// TeacherRateCard is a teacher's pricing configuration.
type TeacherRateCard struct {
	TeacherID           string          `json:"teacherId"`
	HourlyRate          decimal.Decimal `json:"hourlyRate"`
	Discounts           DiscountTiers   `json:"discounts"`
	TrialClassAvailable bool            `json:"trialClassAvailable"`
	TrialClassPrice     decimal.Decimal `json:"trialClassPrice"`
	FreeDemoAvailable   bool            `json:"freeDemoAvailable"`
	FreeDemoDuration    int             `json:"freeDemoDuration"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// DemoDuration returns the configured demo length, falling back to the default.
func (r TeacherRateCard) DemoDuration() int {
	if r.FreeDemoDuration <= 0 {
		return DefaultFreeDemoDuration
	}
	return r.FreeDemoDuration
}
