package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// DiscountTiersRequest carries monthly discount percentages.
type DiscountTiersRequest struct {
	Monthly4  decimal.Decimal `json:"monthly4"`
	Monthly8  decimal.Decimal `json:"monthly8"`
	Monthly12 decimal.Decimal `json:"monthly12"`
}

// UpdateRateCardRequest replaces the authenticated teacher's rate card.
type UpdateRateCardRequest struct {
	HourlyRate          decimal.Decimal      `json:"hourlyRate"`
	Discounts           DiscountTiersRequest `json:"discounts"`
	TrialClassAvailable bool                 `json:"trialClassAvailable"`
	TrialClassPrice     decimal.Decimal      `json:"trialClassPrice"`
	FreeDemoAvailable   bool                 `json:"freeDemoAvailable"`
	FreeDemoDuration    int                  `json:"freeDemoDuration" validate:"omitempty,min=0,max=240"`
}

// ReplaceAvailabilityRequest replaces the authenticated teacher's weekly availability.
type ReplaceAvailabilityRequest struct {
	Availability map[string][]string `json:"availability" validate:"required"`
}

// AvailabilityResponse lists bookable dates, or the slots of one date when requested.
type AvailabilityResponse struct {
	TeacherID   string                `json:"teacherId"`
	Timezone    string                `json:"timezone"`
	HorizonDays int                   `json:"horizonDays"`
	Dates       []models.BookableDate `json:"dates"`
	Date        string                `json:"date,omitempty"`
	Slots       []string              `json:"slots,omitempty"`
}
