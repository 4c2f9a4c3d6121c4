package service

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

var (
	hundred        = decimal.NewFromInt(100)
	minutesPerHour = decimal.NewFromInt(60)
)

// PricingParams carries the lesson-type specific inputs of a quote.
type PricingParams struct {
	DurationMinutes      int
	ClassesPerMonth      int
	SubscriptionDuration int
}

// PricingPolicy prices booking requests against a teacher rate card. Quotes carry the configured
// currency code but never convert between currencies.
type PricingPolicy struct {
	currency string
}

// NewPricingPolicy constructs a pricing policy quoting in the given currency.
func NewPricingPolicy(currency string) *PricingPolicy {
	return &PricingPolicy{currency: currency}
}

// Currency returns the currency code attached to quotes.
func (p *PricingPolicy) Currency() string {
	return p.currency
}

// Quote prices a lesson. Lesson types are mutually exclusive and evaluated in the order
// free-demo, trial, single, monthly.
func (p *PricingPolicy) Quote(lessonType models.LessonType, card models.TeacherRateCard, params PricingParams) (models.PriceQuote, error) {
	var (
		quote models.PriceQuote
		err   error
	)
	switch lessonType {
	case models.LessonFreeDemo:
		quote, err = freeDemoQuote(card)
	case models.LessonTrial:
		quote, err = trialQuote(card)
	case models.LessonSingle:
		quote, err = singleQuote(card, params.DurationMinutes)
	case models.LessonMonthly:
		quote, err = monthlyQuote(card, params.ClassesPerMonth, params.SubscriptionDuration)
	default:
		return models.PriceQuote{}, appErrors.Invalid("lessonType", "lessonType must be one of single, monthly, trial, free-demo")
	}
	if err != nil {
		return models.PriceQuote{}, err
	}
	quote.Currency = p.currency
	return quote, nil
}

// EffectiveDuration returns the lesson length recorded on the booking. Demo and trial lengths are
// owned by the teacher and the platform, not by the student's selection.
func EffectiveDuration(lessonType models.LessonType, card models.TeacherRateCard, requested int) int {
	switch lessonType {
	case models.LessonFreeDemo:
		return card.DemoDuration()
	case models.LessonTrial:
		return models.TrialLessonDuration
	default:
		return requested
	}
}

func freeDemoQuote(card models.TeacherRateCard) (models.PriceQuote, error) {
	if !card.FreeDemoAvailable {
		return models.PriceQuote{}, appErrors.Invalid("lessonType", "this teacher does not offer a free demo")
	}
	return models.PriceQuote{
		Original:   decimal.Zero,
		Discounted: decimal.Zero,
		Discount:   hundred,
		Total:      decimal.Zero,
	}, nil
}

func trialQuote(card models.TeacherRateCard) (models.PriceQuote, error) {
	if !card.TrialClassAvailable {
		return models.PriceQuote{}, appErrors.Invalid("lessonType", "this teacher does not offer a trial class")
	}
	price := card.TrialClassPrice.Round(2)
	return models.PriceQuote{
		Original:   price,
		Discounted: price,
		Discount:   decimal.Zero,
		Total:      price,
	}, nil
}

func singleQuote(card models.TeacherRateCard, durationMinutes int) (models.PriceQuote, error) {
	if durationMinutes <= 0 {
		return models.PriceQuote{}, appErrors.Invalid("lessonDuration", "lessonDuration must be a positive number of minutes")
	}
	total := card.HourlyRate.
		Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(minutesPerHour).
		Round(2)
	return models.PriceQuote{
		Original:   total,
		Discounted: total,
		Discount:   decimal.Zero,
		Total:      total,
	}, nil
}

func monthlyQuote(card models.TeacherRateCard, classesPerMonth, months int) (models.PriceQuote, error) {
	if classesPerMonth <= 0 {
		return models.PriceQuote{}, appErrors.Invalid("classesPerMonth", "classesPerMonth must be a positive number")
	}
	if months <= 0 {
		return models.PriceQuote{}, appErrors.Invalid("subscriptionDuration", "subscriptionDuration must be a positive number of months")
	}

	base := card.HourlyRate.
		Mul(decimal.NewFromInt(int64(classesPerMonth))).
		Mul(decimal.NewFromInt(int64(months)))
	percent := card.Discounts.ForClasses(classesPerMonth)
	discounted := base.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred))).Round(2)

	return models.PriceQuote{
		Original:   base.Round(2),
		Discounted: discounted,
		Discount:   percent,
		Total:      discounted,
	}, nil
}
