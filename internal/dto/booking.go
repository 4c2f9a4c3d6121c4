package dto

import "github.com/noah-isme/tutor-booking-api/internal/models"

// BookingSelectionRequest is the body of the quote and checkout endpoints.
type BookingSelectionRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
	models.BookingRequest
}

// QuoteResponse returns the priced intent for a selection.
type QuoteResponse struct {
	TeacherID      string            `json:"teacherId"`
	LessonType     models.LessonType `json:"lessonType"`
	LessonDate     string            `json:"lessonDate"`
	LessonDuration int               `json:"lessonDuration"`
	Quote          models.PriceQuote `json:"quote"`
}
