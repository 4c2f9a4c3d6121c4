package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sampleProfile() models.TeacherProfile {
	return models.TeacherProfile{
		TeacherID:    "teacher-1",
		RateCard:     sampleRateCard(),
		Availability: mondayWednesdayWindow(),
	}
}

func newTestIntentBuilder(clock *mockClock) *BookingIntentBuilder {
	return NewBookingIntentBuilder(NewPricingPolicy("IDR"), time.UTC, clock.Now)
}

func singleRequest() models.BookingRequest {
	return models.BookingRequest{
		LessonType:       models.LessonSingle,
		SelectedDate:     "2026-10-19",
		SelectedTimeSlot: "09:00",
		LessonDuration:   30,
		LessonFocus:      "Conversation",
	}
}

func TestBookingIntentBuilderSingleLesson(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)}
	builder := newTestIntentBuilder(clock)

	intent, err := builder.Build(singleRequest(), sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), intent.LessonDate)
	assert.Equal(t, 30, intent.LessonDuration)
	assert.Equal(t, "15.00", intent.Amount.StringFixed(2))
	assert.Equal(t, "teacher-1", intent.TeacherID)
}

func TestBookingIntentBuilderRejectsTimeThatPassedBeforeSubmission(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	builder := newTestIntentBuilder(clock)

	_, err := builder.Build(singleRequest(), sampleProfile())
	require.NoError(t, err)

	clock.Advance(90 * time.Minute)
	_, err = builder.Build(singleRequest(), sampleProfile())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastTime.Code, appErrors.FromError(err).Code)
}

func TestBookingIntentBuilderPastDateOutsideWindowIsPastTime(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)}
	builder := newTestIntentBuilder(clock)

	for _, date := range []string{"2026-10-12", "2026-10-13", "2026-09-14"} {
		req := singleRequest()
		req.SelectedDate = date
		_, err := builder.Build(req, sampleProfile())
		require.Error(t, err, date)
		assert.Equal(t, appErrors.ErrPastTime.Code, appErrors.FromError(err).Code, date)
	}
}

func TestBookingIntentBuilderRequiredFields(t *testing.T) {
	builder := newTestIntentBuilder(&mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)})

	cases := []struct {
		name   string
		mutate func(*models.BookingRequest)
		field  string
	}{
		{"lesson type", func(r *models.BookingRequest) { r.LessonType = "" }, "lessonType"},
		{"date", func(r *models.BookingRequest) { r.SelectedDate = "" }, "selectedDate"},
		{"slot", func(r *models.BookingRequest) { r.SelectedTimeSlot = " " }, "selectedTimeSlot"},
		{"duration", func(r *models.BookingRequest) { r.LessonDuration = 0 }, "lessonDuration"},
		{"focus", func(r *models.BookingRequest) { r.LessonFocus = "" }, "lessonFocus"},
		{"slot not offered", func(r *models.BookingRequest) { r.SelectedTimeSlot = "11:00" }, "selectedTimeSlot"},
		{"day not offered", func(r *models.BookingRequest) { r.SelectedDate = "2026-10-20" }, "selectedDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := singleRequest()
			tc.mutate(&req)
			_, err := builder.Build(req, sampleProfile())
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}
}

func TestBookingIntentBuilderFreeDemoUsesTeacherDuration(t *testing.T) {
	builder := newTestIntentBuilder(&mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)})
	req := singleRequest()
	req.LessonType = models.LessonFreeDemo
	req.LessonDuration = 60

	intent, err := builder.Build(req, sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, 20, intent.LessonDuration)
	assert.True(t, intent.Amount.IsZero())
}

func monthlyRequest(days ...models.Weekday) models.BookingRequest {
	return models.BookingRequest{
		LessonType:           models.LessonMonthly,
		ClassesPerMonth:      "4",
		SubscriptionDuration: 2,
		SelectedDays:         days,
		PreferredTimeSlot:    "09:00",
		LessonFocus:          "Grammar",
	}
}

func TestBookingIntentBuilderMonthlyDayCap(t *testing.T) {
	builder := newTestIntentBuilder(&mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)})
	req := monthlyRequest(models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday)

	_, err := builder.Build(req, sampleProfile())
	require.Error(t, err)
	assert.Equal(t, "selectedDays", appErrors.FromError(err).Field)
}

func TestBookingIntentBuilderMonthly(t *testing.T) {
	builder := newTestIntentBuilder(&mockClock{now: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)})
	profile := sampleProfile()
	profile.Availability[models.Wednesday] = []string{"09:00"}

	intent, err := builder.Build(monthlyRequest(models.Monday, models.Wednesday), profile)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC), intent.LessonDate)
	assert.Equal(t, 4, intent.ClassesPerMonth)
	assert.Equal(t, "216.00", intent.Amount.StringFixed(2))
	assert.True(t, intent.Quote.Discount.Equal(dec("10")))
}

func TestBookingIntentBuilderMonthlyValidation(t *testing.T) {
	builder := newTestIntentBuilder(&mockClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)})

	req := monthlyRequest(models.Monday)
	req.ClassesPerMonth = "6"
	_, err := builder.Build(req, sampleProfile())
	assert.Equal(t, "classesPerMonth", appErrors.FromError(err).Field)

	req = monthlyRequest(models.Monday, models.Monday)
	_, err = builder.Build(req, sampleProfile())
	assert.Equal(t, "selectedDays", appErrors.FromError(err).Field)

	req = monthlyRequest(models.Monday, models.Wednesday)
	_, err = builder.Build(req, sampleProfile())
	assert.Equal(t, "preferredTimeSlot", appErrors.FromError(err).Field)

	req = monthlyRequest()
	_, err = builder.Build(req, sampleProfile())
	assert.Equal(t, "selectedDays", appErrors.FromError(err).Field)
}
