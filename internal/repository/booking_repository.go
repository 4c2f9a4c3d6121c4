package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ErrDuplicateBooking is returned by Insert when the natural-key unique constraint rejects the row.
var ErrDuplicateBooking = errors.New("booking already exists for teacher, student, lesson type and date")

const (
	bookingNaturalKeyConstraint = "bookings_natural_key"
	uniqueViolationCode         = pq.ErrorCode("23505")

	bookingColumns = `id, teacher_id, student_id, lesson_type, lesson_date, lesson_duration, amount, currency, notes, lesson_focus, classes_per_month, subscription_duration, payment_reference, status, created_at, updated_at`
)

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByNaturalKey returns the booking matching the key or sql.ErrNoRows.
func (r *BookingRepository) FindByNaturalKey(ctx context.Context, key models.BookingKey) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE teacher_id = $1 AND student_id = $2 AND lesson_type = $3 AND lesson_date = $4 LIMIT 1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, key.TeacherID, key.StudentID, key.LessonType, models.NormalizeLessonDate(key.LessonDate)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking by natural key: %w", err)
	}
	return &booking, nil
}

// FindByID returns a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking by id: %w", err)
	}
	return &booking, nil
}

// Insert stores a new booking. A natural-key collision yields ErrDuplicateBooking.
func (r *BookingRepository) Insert(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	booking.LessonDate = models.NormalizeLessonDate(booking.LessonDate)
	if booking.Status == "" {
		booking.Status = models.BookingConfirmed
	}

	const query = `INSERT INTO bookings (id, teacher_id, student_id, lesson_type, lesson_date, lesson_duration, amount, currency, notes, lesson_focus, classes_per_month, subscription_duration, payment_reference, status, created_at, updated_at)
		VALUES (:id, :teacher_id, :student_id, :lesson_type, :lesson_date, :lesson_duration, :amount, :currency, :notes, :lesson_focus, :classes_per_month, :subscription_duration, :payment_reference, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		if isNaturalKeyViolation(err) {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func isNaturalKeyViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolationCode {
		return false
	}
	return pqErr.Constraint == "" || pqErr.Constraint == bookingNaturalKeyConstraint
}
