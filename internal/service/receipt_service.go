package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
)

type bookingReader interface {
	Get(ctx context.Context, session *models.Session, id string) (*models.Booking, error)
}

type receiptRenderer interface {
	RenderReceipt(receipt export.Receipt) ([]byte, error)
}

// ReceiptService renders PDF receipts for bookings the session can see.
type ReceiptService struct {
	bookings bookingReader
	renderer receiptRenderer
	loc      *time.Location
	logger   *zap.Logger
}

// NewReceiptService constructs the service.
func NewReceiptService(bookings bookingReader, renderer receiptRenderer, loc *time.Location, logger *zap.Logger) *ReceiptService {
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{bookings: bookings, renderer: renderer, loc: loc, logger: logger}
}

// Render returns the receipt document and a download file name.
func (s *ReceiptService) Render(ctx context.Context, session *models.Session, bookingID string) ([]byte, string, error) {
	booking, err := s.bookings.Get(ctx, session, bookingID)
	if err != nil {
		return nil, "", err
	}

	receipt := export.Receipt{
		Title:  "Lesson booking receipt",
		Number: booking.ID,
		Lines:  receiptLines(*booking, s.loc),
		Total:  booking.Amount.StringFixed(2) + " " + booking.Currency,
		Footer: "Status: " + string(booking.Status),
	}
	doc, err := s.renderer.RenderReceipt(receipt)
	if err != nil {
		s.logger.Error("receipt rendering failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return doc, fmt.Sprintf("receipt-%s.pdf", booking.ID), nil
}

func receiptLines(b models.Booking, loc *time.Location) []export.ReceiptLine {
	lines := []export.ReceiptLine{
		{Label: "Teacher", Value: b.TeacherID},
		{Label: "Student", Value: b.StudentID},
		{Label: "Lesson type", Value: string(b.LessonType)},
		{Label: "Lesson date", Value: b.LessonDate.In(loc).Format("Mon, 02 Jan 2006 15:04 MST")},
		{Label: "Duration", Value: strconv.Itoa(b.LessonDuration) + " minutes"},
	}
	if b.ClassesPerMonth != nil {
		lines = append(lines, export.ReceiptLine{Label: "Classes per month", Value: strconv.Itoa(*b.ClassesPerMonth)})
	}
	if b.SubscriptionDuration != nil {
		lines = append(lines, export.ReceiptLine{Label: "Subscription", Value: strconv.Itoa(*b.SubscriptionDuration) + " months"})
	}
	if b.LessonFocus != nil {
		lines = append(lines, export.ReceiptLine{Label: "Focus", Value: *b.LessonFocus})
	}
	if b.PaymentReference != nil {
		lines = append(lines, export.ReceiptLine{Label: "Payment reference", Value: *b.PaymentReference})
	}
	return lines
}
