package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/storage"
)

type bookingStore interface {
	FindByNaturalKey(ctx context.Context, key models.BookingKey) (*models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	Insert(ctx context.Context, booking *models.Booking) error
}

type redirectReplayStore interface {
	MarkProcessed(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, fingerprint string) error
}

type redirectVerifier interface {
	Verify(values url.Values, allowExpired bool) (time.Time, error)
}

// BookingServiceConfig tunes redirect reconciliation.
type BookingServiceConfig struct {
	ReplayTTL time.Duration
}

// BookingService creates bookings at most once per natural key
// (teacher, student, lesson type, lesson date) and reconciles payment redirects into bookings.
type BookingService struct {
	store     bookingStore
	profiles  teacherProfileProvider
	pricing   *PricingPolicy
	replays   redirectReplayStore
	verifier  redirectVerifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BookingServiceConfig
}

// NewBookingService constructs the service. replays may be nil.
func NewBookingService(store bookingStore, profiles teacherProfileProvider, pricing *PricingPolicy, replays redirectReplayStore, verifier redirectVerifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg BookingServiceConfig) *BookingService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = 24 * time.Hour
	}
	return &BookingService{
		store:     store,
		profiles:  profiles,
		pricing:   pricing,
		replays:   replays,
		verifier:  verifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create stores the booking unless one with the same natural key exists, in which case the
// existing booking is returned with status already_exists. The amount must match the teacher's
// current price. Lookup-then-insert races are settled by the store's unique constraint.
func (s *BookingService) Create(ctx context.Context, session *models.Session, req models.CreateBookingRequest) (*models.BookingResult, error) {
	booking, err := s.prepare(session, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrice(ctx, booking); err != nil {
		return nil, err
	}
	return s.insert(ctx, booking)
}

func (s *BookingService) prepare(session *models.Session, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	booking, err := s.bookingFromRequest(req)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "bookings can only be created for the signed-in student")
	}
	return booking, nil
}

// checkPrice re-derives the amount from the teacher's rate card.
func (s *BookingService) checkPrice(ctx context.Context, booking *models.Booking) error {
	profile, err := s.profiles.Profile(ctx, booking.TeacherID)
	if err != nil {
		return err
	}
	if currency := strings.ToUpper(s.pricing.Currency()); booking.Currency != currency {
		return appErrors.Invalid("currency", "currency must be "+currency)
	}
	if want := EffectiveDuration(booking.LessonType, profile.RateCard, booking.LessonDuration); booking.LessonDuration != want {
		return appErrors.Invalid("lessonDuration", "lessonDuration must be "+strconv.Itoa(want)+" minutes for this lesson type")
	}

	params := PricingParams{DurationMinutes: booking.LessonDuration}
	if booking.ClassesPerMonth != nil {
		params.ClassesPerMonth = *booking.ClassesPerMonth
	}
	if booking.SubscriptionDuration != nil {
		params.SubscriptionDuration = *booking.SubscriptionDuration
	}
	quote, err := s.pricing.Quote(booking.LessonType, profile.RateCard, params)
	if err != nil {
		return err
	}
	if !booking.Amount.Round(2).Equal(quote.Total) {
		s.logger.Warn("booking amount rejected",
			zap.String("teacher_id", booking.TeacherID),
			zap.String("amount", booking.Amount.String()),
			zap.String("expected", quote.Total.StringFixed(2)),
		)
		return appErrors.Invalid("amount", "amount does not match the teacher's price of "+quote.Total.StringFixed(2))
	}
	return nil
}

func (s *BookingService) insert(ctx context.Context, booking *models.Booking) (*models.BookingResult, error) {
	key := booking.Key()
	existing, err := s.store.FindByNaturalKey(ctx, key)
	switch {
	case err == nil:
		return s.alreadyExists(existing), nil
	case !errors.Is(err, sql.ErrNoRows):
		s.metrics.RecordBooking(string(booking.LessonType), "failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up booking")
	}

	if err := s.store.Insert(ctx, booking); err != nil {
		if !errors.Is(err, repository.ErrDuplicateBooking) {
			s.metrics.RecordBooking(string(booking.LessonType), "failed")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
		}
		existing, findErr := s.store.FindByNaturalKey(ctx, key)
		if findErr != nil {
			s.metrics.RecordBooking(string(booking.LessonType), "failed")
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing booking")
		}
		return s.alreadyExists(existing), nil
	}

	s.metrics.RecordBooking(string(booking.LessonType), models.ResultConfirmed)
	s.logger.Info("booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("teacher_id", booking.TeacherID),
		zap.String("student_id", booking.StudentID),
		zap.String("lesson_type", string(booking.LessonType)),
		zap.Time("lesson_date", booking.LessonDate),
	)
	return &models.BookingResult{Status: models.ResultConfirmed, Booking: booking}, nil
}

// Get returns a booking visible to the session: its student, its teacher or an admin.
func (s *BookingService) Get(ctx context.Context, session *models.Session, id string) (*models.Booking, error) {
	if session == nil || session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if session.Role != models.RoleAdmin && booking.StudentID != session.UserID && booking.TeacherID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return booking, nil
}

// ReconcileRedirect turns a signed success redirect from the checkout provider into a booking.
// Replayed redirects resolve to the existing booking.
func (s *BookingService) ReconcileRedirect(ctx context.Context, session *models.Session, query url.Values) (*models.BookingResult, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	if query.Get(redirectSuccessParam) != "true" {
		err := appErrors.Clone(appErrors.ErrMissingRedirectParameter, "payment redirect is missing: success")
		err.Field = redirectSuccessParam
		return nil, err
	}
	req, err := DecodeRedirectParams(query)
	if err != nil {
		s.metrics.RecordRedirect("rejected")
		return nil, err
	}
	if err := s.verify(query); err != nil {
		s.metrics.RecordRedirect("rejected")
		s.logger.Warn("payment redirect rejected", zap.String("student_id", session.UserID), zap.Error(err))
		return nil, err
	}

	booking, err := s.prepare(session, req)
	if err != nil {
		return nil, err
	}

	fingerprint := redirectFingerprint(query)
	marked := false
	if s.replays != nil {
		first, err := s.replays.MarkProcessed(ctx, fingerprint, s.cfg.ReplayTTL)
		switch {
		case err != nil:
			s.logger.Warn("redirect replay guard unavailable", zap.Error(err))
		case first:
			marked = true
		default:
			// A replay only reads; the first redirect may still be inserting.
			if existing, findErr := s.store.FindByNaturalKey(ctx, booking.Key()); findErr == nil {
				s.metrics.RecordRedirect("replayed")
				return s.alreadyExists(existing), nil
			}
		}
	}

	// The signature already covers the amount quoted at checkout.
	if s.verifier == nil {
		err = s.checkPrice(ctx, booking)
	}
	var result *models.BookingResult
	if err == nil {
		result, err = s.insert(ctx, booking)
	}
	if err != nil {
		if marked {
			if forgetErr := s.replays.Forget(ctx, fingerprint); forgetErr != nil {
				s.logger.Warn("failed to release redirect fingerprint", zap.Error(forgetErr))
			}
		}
		return nil, err
	}
	s.metrics.RecordRedirect(result.Status)
	return result, nil
}

// CancelRedirect acknowledges a canceled checkout. Nothing is stored.
func (s *BookingService) CancelRedirect(query url.Values) (*models.BookingResult, error) {
	if query.Get(redirectCanceledParam) != "true" {
		err := appErrors.Clone(appErrors.ErrMissingRedirectParameter, "payment redirect is missing: canceled")
		err.Field = redirectCanceledParam
		return nil, err
	}
	s.metrics.RecordRedirect(models.ResultCanceled)
	return &models.BookingResult{Status: models.ResultCanceled}, nil
}

func (s *BookingService) verify(query url.Values) error {
	if s.verifier == nil {
		return nil
	}
	if _, err := s.verifier.Verify(query, false); err != nil {
		appErr := appErrors.Clone(appErrors.ErrMissingRedirectParameter, "payment redirect could not be verified")
		switch {
		case errors.Is(err, storage.ErrMissingSignature):
			appErr.Message = "payment redirect is missing: " + storage.ParamSignature
			appErr.Field = storage.ParamSignature
		case errors.Is(err, storage.ErrExpired):
			appErr.Message = "payment redirect has expired, please contact support"
		case errors.Is(err, storage.ErrInvalidSignature):
			appErr.Message = "payment redirect was modified after checkout"
		}
		appErr.Err = err
		return appErr
	}
	return nil
}

func (s *BookingService) bookingFromRequest(req models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid booking payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Invalid("amount", "amount must not be negative")
	}
	lessonDate, err := time.Parse(time.RFC3339, strings.TrimSpace(req.LessonDate))
	if err != nil {
		return nil, appErrors.Invalid("lessonDate", "lessonDate must be an RFC 3339 timestamp")
	}
	if req.LessonType == models.LessonMonthly && (req.ClassesPerMonth == nil || req.SubscriptionDuration == nil) {
		field := "classesPerMonth"
		if req.ClassesPerMonth != nil {
			field = "subscriptionDuration"
		}
		return nil, appErrors.Invalid(field, field+" is required for monthly bookings")
	}

	return &models.Booking{
		TeacherID:            strings.TrimSpace(req.TeacherID),
		StudentID:            strings.TrimSpace(req.StudentID),
		LessonType:           req.LessonType,
		LessonDate:           models.NormalizeLessonDate(lessonDate),
		LessonDuration:       req.LessonDuration,
		Amount:               req.Amount,
		Currency:             strings.ToUpper(req.Currency),
		Notes:                req.Notes,
		LessonFocus:          req.LessonFocus,
		ClassesPerMonth:      req.ClassesPerMonth,
		SubscriptionDuration: req.SubscriptionDuration,
		PaymentReference:     req.PaymentReference,
		Status:               models.BookingConfirmed,
	}, nil
}

func (s *BookingService) alreadyExists(existing *models.Booking) *models.BookingResult {
	s.metrics.RecordBooking(string(existing.LessonType), models.ResultAlreadyExists)
	s.logger.Info("booking already exists", zap.String("booking_id", existing.ID))
	return &models.BookingResult{Status: models.ResultAlreadyExists, Booking: existing}
}

func redirectFingerprint(query url.Values) string {
	sum := sha256.Sum256([]byte(query.Get(storage.ParamSignature)))
	return hex.EncodeToString(sum[:])
}

func requireStudent(session *models.Session) error {
	if session == nil || session.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !session.IsStudent() {
		return appErrors.Clone(appErrors.ErrForbidden, "only students can book lessons")
	}
	return nil
}
