package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestTeacherProfileRepositoryRateCard(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewTeacherProfileRepository(db)

	mock.ExpectExec("INSERT INTO teacher_rate_cards").
		WithArgs("teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), false, 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpsertRateCard(context.Background(), &models.TeacherRateCard{
		TeacherID:           "teacher-1",
		HourlyRate:          decimal.NewFromInt(30),
		TrialClassAvailable: true,
		TrialClassPrice:     decimal.NewFromInt(5),
		FreeDemoDuration:    30,
	})
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"teacher_id", "hourly_rate", "discount_monthly_4", "discount_monthly_8", "discount_monthly_12", "trial_class_available", "trial_class_price", "free_demo_available", "free_demo_duration", "updated_at"}).
		AddRow("teacher-1", "30.00", "10", "15", "20", true, "5.00", false, 30, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_rate_cards WHERE teacher_id = $1")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	card, err := repo.GetRateCard(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.True(t, card.HourlyRate.Equal(decimal.NewFromInt(30)))
	assert.True(t, card.Discounts.Monthly8.Equal(decimal.NewFromInt(15)))
	assert.True(t, card.TrialClassAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherProfileRepositoryAvailability(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewTeacherProfileRepository(db)

	mock.ExpectExec("INSERT INTO teacher_availability").
		WithArgs("teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.ReplaceAvailability(context.Background(), &models.TeacherAvailability{
		TeacherID: "teacher-1",
		Window:    models.AvailabilityWindow{models.Monday: {"09:00"}},
	})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"teacher_id", "slots", "updated_at"}).
		AddRow("teacher-1", []byte(`{"Monday":["09:00","10:00"],"Wednesday":["14:00"]}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availability WHERE teacher_id = $1")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	availability, err := repo.GetAvailability(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, availability.Window.Slots(models.Monday))
	assert.Equal(t, []string{"14:00"}, availability.Window.Slots(models.Wednesday))
	assert.NoError(t, mock.ExpectationsWereMet())
}
