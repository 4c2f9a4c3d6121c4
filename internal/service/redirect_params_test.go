package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestRedirectParamsRoundTripMonthly(t *testing.T) {
	classes, months := 8, 3
	req := createRequest()
	req.LessonType = models.LessonMonthly
	req.ClassesPerMonth = &classes
	req.SubscriptionDuration = &months

	values := EncodeRedirectParams(req)
	assert.Equal(t, "true", values.Get("success"))
	assert.Equal(t, "15.00", values.Get("amount"))

	decoded, err := DecodeRedirectParams(values)
	require.NoError(t, err)
	require.NotNil(t, decoded.ClassesPerMonth)
	assert.Equal(t, 8, *decoded.ClassesPerMonth)
	assert.Equal(t, 3, *decoded.SubscriptionDuration)
	assert.True(t, decoded.Amount.Equal(req.Amount))
	assert.Nil(t, decoded.Notes)
}

func TestCleanRedirectURL(t *testing.T) {
	u, err := url.Parse("/bookings/checkout/success?success=true&teacherId=t&studentId=s&lessonType=single&lessonDate=x&lessonDuration=30&amount=1&currency=IDR&exp=1&sig=abc&utm_source=mail")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/checkout/success?utm_source=mail", CleanRedirectURL(u))

	u, err = url.Parse("/bookings/checkout/success?success=true&teacherId=t&exp=1&keys=exp%2CteacherId&sig=abc&order_id=o-1&status_code=200&transaction_status=settlement")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/checkout/success", CleanRedirectURL(u))

	u, err = url.Parse("/bookings/checkout/cancel?canceled=true&teacherId=t")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/checkout/cancel", CleanRedirectURL(u))
}
