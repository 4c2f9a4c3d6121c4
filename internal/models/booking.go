package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LessonType selects the pricing and validation branch of a booking.
type LessonType string

const (
	LessonSingle   LessonType = "single"
	LessonMonthly  LessonType = "monthly"
	LessonTrial    LessonType = "trial"
	LessonFreeDemo LessonType = "free-demo"
)

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	switch t {
	case LessonSingle, LessonMonthly, LessonTrial, LessonFreeDemo:
		return true
	}
	return false
}

// TrialLessonDuration is fixed regardless of the teacher's hourly pricing.
const TrialLessonDuration = 30

// BookingStatus tracks a persisted booking. The engine only ever writes confirmed.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCanceled  BookingStatus = "canceled"
)

// Booking outcomes reported to clients.
const (
	ResultConfirmed     = "confirmed"
	ResultAlreadyExists = "already_exists"
	ResultCanceled      = "canceled"
)

// Booking is a persisted lesson booking.
type Booking struct {
	ID                   string          `db:"id" json:"id"`
	TeacherID            string          `db:"teacher_id" json:"teacherId"`
	StudentID            string          `db:"student_id" json:"studentId"`
	LessonType           LessonType      `db:"lesson_type" json:"lessonType"`
	LessonDate           time.Time       `db:"lesson_date" json:"lessonDate"`
	LessonDuration       int             `db:"lesson_duration" json:"lessonDuration"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	Currency             string          `db:"currency" json:"currency"`
	Notes                *string         `db:"notes" json:"notes,omitempty"`
	LessonFocus          *string         `db:"lesson_focus" json:"lessonFocus,omitempty"`
	ClassesPerMonth      *int            `db:"classes_per_month" json:"classesPerMonth,omitempty"`
	SubscriptionDuration *int            `db:"subscription_duration" json:"subscriptionDuration,omitempty"`
	PaymentReference     *string         `db:"payment_reference" json:"paymentReference,omitempty"`
	Status               BookingStatus   `db:"status" json:"status"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updatedAt"`
}

// BookingKey is the natural key used to detect duplicate bookings.
type BookingKey struct {
	TeacherID  string
	StudentID  string
	LessonType LessonType
	LessonDate time.Time
}

// NormalizeLessonDate returns the canonical form of a lesson instant used in natural keys.
func NormalizeLessonDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Key returns the natural key of the booking.
func (b *Booking) Key() BookingKey {
	return BookingKey{
		TeacherID:  b.TeacherID,
		StudentID:  b.StudentID,
		LessonType: b.LessonType,
		LessonDate: NormalizeLessonDate(b.LessonDate),
	}
}

// BookingRequest is a student's in-progress selection before submission.
type BookingRequest struct {
	LessonType LessonType `json:"lessonType"`

	SelectedDate     string `json:"selectedDate,omitempty"`
	SelectedTimeSlot string `json:"selectedTimeSlot,omitempty"`
	LessonDuration   int    `json:"lessonDuration,omitempty"`

	ClassesPerMonth      string    `json:"classesPerMonth,omitempty"`
	SubscriptionDuration int       `json:"subscriptionDuration,omitempty"`
	SelectedDays         []Weekday `json:"selectedDays,omitempty"`
	PreferredTimeSlot    string    `json:"preferredTimeSlot,omitempty"`

	LessonFocus string `json:"lessonFocus"`
	Notes       string `json:"notes,omitempty"`
}

// PriceQuote is the derived price of a booking request.
type PriceQuote struct {
	Original   decimal.Decimal `json:"original"`
	Discounted decimal.Decimal `json:"discounted"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency,omitempty"`
}

// BookingIntent is a validated request resolved to a lesson instant and price.
type BookingIntent struct {
	TeacherID            string          `json:"teacherId"`
	LessonType           LessonType      `json:"lessonType"`
	LessonDate           time.Time       `json:"lessonDate"`
	LessonDuration       int             `json:"lessonDuration"`
	ClassesPerMonth      int             `json:"classesPerMonth,omitempty"`
	SubscriptionDuration int             `json:"subscriptionDuration,omitempty"`
	SelectedDays         []Weekday       `json:"selectedDays,omitempty"`
	LessonFocus          string          `json:"lessonFocus"`
	Notes                string          `json:"notes,omitempty"`
	Quote                PriceQuote      `json:"quote"`
	Amount               decimal.Decimal `json:"amount"`
}

// CreateBookingRequest is the payload of POST /bookings/create.
type CreateBookingRequest struct {
	TeacherID            string          `json:"teacherId" validate:"required"`
	StudentID            string          `json:"studentId" validate:"required"`
	LessonType           LessonType      `json:"lessonType" validate:"required,oneof=single monthly trial free-demo"`
	LessonDate           string          `json:"lessonDate" validate:"required"`
	LessonDuration       int             `json:"lessonDuration" validate:"required,gt=0"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency" validate:"required,len=3"`
	Notes                *string         `json:"notes,omitempty"`
	LessonFocus          *string         `json:"lessonFocus,omitempty"`
	ClassesPerMonth      *int            `json:"classesPerMonth,omitempty" validate:"omitempty,oneof=4 8 12"`
	SubscriptionDuration *int            `json:"subscriptionDuration,omitempty" validate:"omitempty,gt=0"`
	PaymentReference     *string         `json:"paymentReference,omitempty"`
}

// BookingResult is returned by the booking creation endpoint.
type BookingResult struct {
	Status  string   `json:"status"`
	Booking *Booking `json:"booking"`
}

// CheckoutState is a step of the checkout orchestration.
type CheckoutState string

const (
	CheckoutIdle          CheckoutState = "idle"
	CheckoutPricing       CheckoutState = "pricing"
	CheckoutDirectBooking CheckoutState = "direct_booking"
	CheckoutRedirect      CheckoutState = "checkout_redirect"
	CheckoutConfirmed     CheckoutState = "confirmed"
	CheckoutAlreadyExists CheckoutState = "already_exists"
	CheckoutFailed        CheckoutState = "failed"
)

// CheckoutOutcome reports where a checkout ended: a booking for free demos, or the hosted
// checkout page the browser must be sent to.
type CheckoutOutcome struct {
	State       CheckoutState  `json:"state"`
	Intent      *BookingIntent `json:"intent,omitempty"`
	CheckoutURL string         `json:"checkoutUrl,omitempty"`
	SessionID   string         `json:"sessionId,omitempty"`
	OrderID     string         `json:"orderId,omitempty"`
	Result      *BookingResult `json:"result,omitempty"`
}
