package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/checkout"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type teacherProfileProvider interface {
	Profile(ctx context.Context, teacherID string) (*models.TeacherProfile, error)
}

type bookingCreator interface {
	Create(ctx context.Context, session *models.Session, req models.CreateBookingRequest) (*models.BookingResult, error)
}

type redirectSigner interface {
	Sign(values url.Values) (url.Values, time.Time, error)
}

// CheckoutConfig configures the redirect targets handed to the checkout provider.
type CheckoutConfig struct {
	FrontendBaseURL string
}

// CheckoutService prices a selection and either books it directly (free demos) or opens a hosted
// checkout whose success redirect carries the signed booking details.
type CheckoutService struct {
	profiles teacherProfileProvider
	intents  *BookingIntentBuilder
	bookings bookingCreator
	gateway  checkout.Gateway
	signer   redirectSigner
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      CheckoutConfig
}

// NewCheckoutService constructs the orchestrator.
func NewCheckoutService(profiles teacherProfileProvider, intents *BookingIntentBuilder, bookings bookingCreator, gateway checkout.Gateway, signer redirectSigner, metrics *MetricsService, logger *zap.Logger, cfg CheckoutConfig) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gateway == nil {
		gateway = checkout.DisabledGateway{}
	}
	cfg.FrontendBaseURL = strings.TrimRight(cfg.FrontendBaseURL, "/")
	return &CheckoutService{
		profiles: profiles,
		intents:  intents,
		bookings: bookings,
		gateway:  gateway,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Quote validates and prices a selection without side effects.
func (s *CheckoutService) Quote(ctx context.Context, session *models.Session, teacherID string, req models.BookingRequest) (*models.BookingIntent, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	intent, err := s.price(ctx, teacherID, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordQuote(string(intent.LessonType))
	return intent, nil
}

// Checkout runs idle → pricing → direct_booking | checkout_redirect and reports the final state.
// Provider failures surface as transport errors and are not retried.
func (s *CheckoutService) Checkout(ctx context.Context, session *models.Session, teacherID string, req models.BookingRequest) (*models.CheckoutOutcome, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	outcome := &models.CheckoutOutcome{State: models.CheckoutIdle}

	s.transition(outcome, models.CheckoutPricing)
	intent, err := s.price(ctx, teacherID, req)
	if err != nil {
		return nil, s.fail(outcome, err)
	}
	outcome.Intent = intent

	if intent.LessonType == models.LessonFreeDemo && intent.Quote.Total.IsZero() {
		s.transition(outcome, models.CheckoutDirectBooking)
		result, err := s.bookings.Create(ctx, session, s.createRequest(session, intent, nil))
		if err != nil {
			return nil, s.fail(outcome, err)
		}
		outcome.Result = result
		if result.Status == models.ResultAlreadyExists {
			s.transition(outcome, models.CheckoutAlreadyExists)
		} else {
			s.transition(outcome, models.CheckoutConfirmed)
		}
		s.metrics.RecordCheckout(string(outcome.State))
		return outcome, nil
	}

	s.transition(outcome, models.CheckoutRedirect)
	orderID := uuid.NewString()
	successURL, err := s.successURL(s.createRequest(session, intent, &orderID))
	if err != nil {
		return nil, s.fail(outcome, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign checkout redirect"))
	}
	checkoutSession, err := s.gateway.CreateSession(ctx, checkout.SessionRequest{
		OrderID:     orderID,
		Amount:      intent.Amount,
		Currency:    intent.Quote.Currency,
		Description: describeIntent(intent),
		SuccessURL:  successURL,
		CancelURL:   s.cancelURL(intent.TeacherID),
		Customer:    checkout.Customer{ID: session.UserID, Email: session.Email, FullName: session.FullName},
		Metadata: map[string]string{
			"teacherId":  intent.TeacherID,
			"studentId":  session.UserID,
			"lessonType": string(intent.LessonType),
		},
	})
	if err != nil {
		s.logger.Error("checkout provider call failed",
			zap.String("teacher_id", intent.TeacherID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		transportErr := appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status,
			"unable to reach checkout provider, please try again or contact support")
		if errors.Is(err, checkout.ErrDisabled) {
			transportErr.Message = "paid bookings are not available right now, please contact support"
		}
		return nil, s.fail(outcome, transportErr)
	}

	outcome.CheckoutURL = checkoutSession.RedirectURL
	outcome.SessionID = checkoutSession.ID
	outcome.OrderID = orderID
	s.metrics.RecordCheckout(string(outcome.State))
	return outcome, nil
}

func (s *CheckoutService) price(ctx context.Context, teacherID string, req models.BookingRequest) (*models.BookingIntent, error) {
	profile, err := s.profiles.Profile(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return s.intents.Build(req, *profile)
}

func (s *CheckoutService) createRequest(session *models.Session, intent *models.BookingIntent, orderID *string) models.CreateBookingRequest {
	req := models.CreateBookingRequest{
		TeacherID:        intent.TeacherID,
		StudentID:        session.UserID,
		LessonType:       intent.LessonType,
		LessonDate:       models.NormalizeLessonDate(intent.LessonDate).Format(time.RFC3339),
		LessonDuration:   intent.LessonDuration,
		Amount:           intent.Amount,
		Currency:         intent.Quote.Currency,
		PaymentReference: orderID,
	}
	if intent.LessonFocus != "" {
		focus := intent.LessonFocus
		req.LessonFocus = &focus
	}
	if intent.Notes != "" {
		notes := intent.Notes
		req.Notes = &notes
	}
	if intent.LessonType == models.LessonMonthly {
		classes, months := intent.ClassesPerMonth, intent.SubscriptionDuration
		req.ClassesPerMonth = &classes
		req.SubscriptionDuration = &months
	}
	return req
}

func (s *CheckoutService) successURL(req models.CreateBookingRequest) (string, error) {
	values := EncodeRedirectParams(req)
	if s.signer != nil {
		signed, _, err := s.signer.Sign(values)
		if err != nil {
			return "", err
		}
		values = signed
	}
	return s.cfg.FrontendBaseURL + "/bookings/checkout/success?" + values.Encode(), nil
}

func (s *CheckoutService) cancelURL(teacherID string) string {
	values := url.Values{}
	values.Set(redirectCanceledParam, "true")
	values.Set("teacherId", teacherID)
	return s.cfg.FrontendBaseURL + "/bookings/checkout/cancel?" + values.Encode()
}

func (s *CheckoutService) transition(outcome *models.CheckoutOutcome, next models.CheckoutState) {
	s.logger.Debug("checkout state", zap.String("from", string(outcome.State)), zap.String("to", string(next)))
	outcome.State = next
}

func (s *CheckoutService) fail(outcome *models.CheckoutOutcome, err error) error {
	s.transition(outcome, models.CheckoutFailed)
	s.metrics.RecordCheckout(string(models.CheckoutFailed))
	return err
}

func describeIntent(intent *models.BookingIntent) string {
	switch intent.LessonType {
	case models.LessonMonthly:
		return "Monthly lessons subscription"
	case models.LessonTrial:
		return "Trial lesson"
	case models.LessonFreeDemo:
		return "Free demo lesson"
	default:
		return "Single lesson"
	}
}
