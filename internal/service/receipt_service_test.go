package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
)

type failingRenderer struct{}

func (failingRenderer) RenderReceipt(export.Receipt) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestReceiptServiceRender(t *testing.T) {
	store := newMemoryBookingStore()
	bookings := newTestBookingService(store, nil, nil)
	created, err := bookings.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)

	svc := NewReceiptService(bookings, nil, time.UTC, nil)
	doc, name, err := svc.Render(context.Background(), studentSession, created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	assert.Equal(t, "receipt-"+created.Booking.ID+".pdf", name)

	_, _, err = NewReceiptService(bookings, failingRenderer{}, time.UTC, nil).Render(context.Background(), studentSession, created.Booking.ID)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Render(context.Background(), &models.Session{UserID: "student-2", Role: models.RoleStudent}, created.Booking.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
