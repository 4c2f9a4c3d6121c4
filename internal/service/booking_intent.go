package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

var allowedClassesPerMonth = map[int]struct{}{4: {}, 8: {}, 12: {}}

// BookingIntentBuilder validates a student's selections and resolves them into a priced intent.
type BookingIntentBuilder struct {
	pricing *PricingPolicy
	loc     *time.Location
	now     func() time.Time
}

// NewBookingIntentBuilder constructs a builder. The clock is read at Build time, so a selection that
// was in the future when made can still be rejected at submission.
func NewBookingIntentBuilder(pricing *PricingPolicy, loc *time.Location, now func() time.Time) *BookingIntentBuilder {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &BookingIntentBuilder{pricing: pricing, loc: loc, now: now}
}

// Build validates the request against the teacher profile and prices it.
func (b *BookingIntentBuilder) Build(req models.BookingRequest, profile models.TeacherProfile) (*models.BookingIntent, error) {
	if err := validateRequiredFields(req); err != nil {
		return nil, err
	}

	index := NewAvailabilityIndex(profile.Availability, b.loc)
	now := b.now()

	intent := &models.BookingIntent{
		TeacherID:   profile.TeacherID,
		LessonType:  req.LessonType,
		LessonFocus: strings.TrimSpace(req.LessonFocus),
		Notes:       strings.TrimSpace(req.Notes),
	}
	params := PricingParams{DurationMinutes: req.LessonDuration}

	if req.LessonType == models.LessonMonthly {
		classes, days, err := monthlySelection(req)
		if err != nil {
			return nil, err
		}
		lessonDate, err := b.firstMonthlyLesson(index, now, days, req.PreferredTimeSlot)
		if err != nil {
			return nil, err
		}
		intent.LessonDate = lessonDate
		intent.ClassesPerMonth = classes
		intent.SubscriptionDuration = req.SubscriptionDuration
		intent.SelectedDays = days
		intent.LessonDuration = req.LessonDuration
		if intent.LessonDuration <= 0 {
			intent.LessonDuration = 60
		}
		params.ClassesPerMonth = classes
		params.SubscriptionDuration = req.SubscriptionDuration
	} else {
		lessonDate, err := b.singleLesson(index, now, req.SelectedDate, req.SelectedTimeSlot)
		if err != nil {
			return nil, err
		}
		intent.LessonDate = lessonDate
		intent.LessonDuration = EffectiveDuration(req.LessonType, profile.RateCard, req.LessonDuration)
	}

	quote, err := b.pricing.Quote(req.LessonType, profile.RateCard, params)
	if err != nil {
		return nil, err
	}
	intent.Quote = quote
	intent.Amount = quote.Total
	return intent, nil
}

func validateRequiredFields(req models.BookingRequest) error {
	if !req.LessonType.Valid() {
		return appErrors.Invalid("lessonType", "lessonType must be one of single, monthly, trial, free-demo")
	}

	switch req.LessonType {
	case models.LessonMonthly:
		if strings.TrimSpace(req.ClassesPerMonth) == "" {
			return missing("classesPerMonth")
		}
		if req.SubscriptionDuration <= 0 {
			return missing("subscriptionDuration")
		}
		if len(req.SelectedDays) == 0 {
			return missing("selectedDays")
		}
		if strings.TrimSpace(req.PreferredTimeSlot) == "" {
			return missing("preferredTimeSlot")
		}
	default:
		if strings.TrimSpace(req.SelectedDate) == "" {
			return missing("selectedDate")
		}
		if strings.TrimSpace(req.SelectedTimeSlot) == "" {
			return missing("selectedTimeSlot")
		}
		if req.LessonDuration <= 0 {
			return missing("lessonDuration")
		}
	}

	if strings.TrimSpace(req.LessonFocus) == "" {
		return missing("lessonFocus")
	}
	return nil
}

func monthlySelection(req models.BookingRequest) (int, []models.Weekday, error) {
	classes, err := strconv.Atoi(strings.TrimSpace(req.ClassesPerMonth))
	if err != nil {
		return 0, nil, appErrors.Invalid("classesPerMonth", "classesPerMonth must be 4, 8 or 12")
	}
	if _, ok := allowedClassesPerMonth[classes]; !ok {
		return 0, nil, appErrors.Invalid("classesPerMonth", "classesPerMonth must be 4, 8 or 12")
	}
	if len(req.SelectedDays) > classes {
		return 0, nil, appErrors.Invalid("selectedDays",
			fmt.Sprintf("at most %d days can be selected for a %d classes per month plan", classes, classes))
	}

	seen := make(map[models.Weekday]struct{}, len(req.SelectedDays))
	days := make([]models.Weekday, 0, len(req.SelectedDays))
	for _, raw := range req.SelectedDays {
		day, ok := models.ParseWeekday(string(raw))
		if !ok {
			return 0, nil, appErrors.Invalid("selectedDays", fmt.Sprintf("%q is not a weekday", raw))
		}
		if _, dup := seen[day]; dup {
			return 0, nil, appErrors.Invalid("selectedDays", fmt.Sprintf("%s is selected more than once", day))
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return classes, days, nil
}

func (b *BookingIntentBuilder) singleLesson(index *AvailabilityIndex, now time.Time, rawDate, slot string) (time.Time, error) {
	date, err := index.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return time.Time{}, err
	}
	instant, err := index.At(date, slot)
	if err != nil {
		return time.Time{}, appErrors.Invalid("selectedTimeSlot", err.Error())
	}
	if !instant.After(now) {
		return time.Time{}, appErrors.ErrPastTime
	}
	if !index.IsBookable(now, date) {
		return time.Time{}, appErrors.Invalid("selectedDate", "the teacher is not available on the selected date")
	}
	if !profileHasSlot(index, date, slot) {
		return time.Time{}, appErrors.Invalid("selectedTimeSlot", "the selected time slot is not open on that day")
	}
	return instant, nil
}

// firstMonthlyLesson returns the first future occurrence of the preferred slot on one of the
// selected days.
func (b *BookingIntentBuilder) firstMonthlyLesson(index *AvailabilityIndex, now time.Time, days []models.Weekday, slot string) (time.Time, error) {
	if _, _, err := models.SlotStart(slot); err != nil {
		return time.Time{}, appErrors.Invalid("preferredTimeSlot", err.Error())
	}
	for _, day := range days {
		if !index.window.Has(day, slot) {
			return time.Time{}, appErrors.Invalid("preferredTimeSlot",
				fmt.Sprintf("the preferred time slot is not open on %s", day))
		}
	}

	wanted := make(map[models.Weekday]struct{}, len(days))
	for _, day := range days {
		wanted[day] = struct{}{}
	}
	for _, candidate := range index.UpcomingDates(now) {
		if _, ok := wanted[candidate.Weekday]; !ok {
			continue
		}
		date, err := index.ParseDate(candidate.Date)
		if err != nil {
			return time.Time{}, err
		}
		instant, err := index.At(date, slot)
		if err != nil {
			return time.Time{}, appErrors.Invalid("preferredTimeSlot", err.Error())
		}
		if instant.After(now) {
			return instant, nil
		}
	}
	return time.Time{}, appErrors.ErrPastTime
}

func profileHasSlot(index *AvailabilityIndex, date time.Time, slot string) bool {
	for _, s := range index.SlotsOn(date) {
		if s == slot {
			return true
		}
	}
	return false
}

func missing(field string) error {
	return appErrors.Invalid(field, field+" is required")
}
