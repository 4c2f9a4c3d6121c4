package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/cache"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type teacherProfileRepository interface {
	GetRateCard(ctx context.Context, teacherID string) (*models.TeacherRateCard, error)
	UpsertRateCard(ctx context.Context, card *models.TeacherRateCard) error
	GetAvailability(ctx context.Context, teacherID string) (*models.TeacherAvailability, error)
	ReplaceAvailability(ctx context.Context, availability *models.TeacherAvailability) error
}

var maxDiscount = decimal.NewFromInt(100)

// TeacherProfileService reads and replaces the rate card and weekly availability of teachers.
type TeacherProfileService struct {
	repo      teacherProfileRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewTeacherProfileService constructs the service. cacheSvc may be nil.
func NewTeacherProfileService(repo teacherProfileRepository, cacheSvc *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *TeacherProfileService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &TeacherProfileService{
		repo:      repo,
		cache:     cacheSvc,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

func profileCacheKey(teacherID string) string {
	return cache.Key("teacher", teacherID, "profile")
}

// Profile returns the rate card and availability used to validate and price bookings.
// A teacher without a rate card cannot be booked.
func (s *TeacherProfileService) Profile(ctx context.Context, teacherID string) (*models.TeacherProfile, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Invalid("teacherId", "teacherId is required")
	}

	var cached models.TeacherProfile
	if hit, _ := s.cache.Get(ctx, profileCacheKey(teacherID), &cached); hit {
		return &cached, nil
	}

	card, err := s.repo.GetRateCard(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher has not published a rate card")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rate card")
	}

	window := models.AvailabilityWindow{}
	availability, err := s.repo.GetAvailability(ctx, teacherID)
	switch {
	case err == nil:
		window = availability.Window
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	profile := &models.TeacherProfile{TeacherID: teacherID, RateCard: *card, Availability: window}
	_ = s.cache.Set(ctx, profileCacheKey(teacherID), profile, s.cacheTTL)
	return profile, nil
}

// RateCard returns the teacher's pricing configuration.
func (s *TeacherProfileService) RateCard(ctx context.Context, teacherID string) (*models.TeacherRateCard, error) {
	profile, err := s.Profile(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	card := profile.RateCard
	card.FreeDemoDuration = card.DemoDuration()
	return &card, nil
}

// Availability lists the bookable dates of the rolling window. When date is set the response
// carries that date's slots instead.
func (s *TeacherProfileService) Availability(ctx context.Context, teacherID, date string) (*dto.AvailabilityResponse, error) {
	profile, err := s.Profile(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	index := NewAvailabilityIndex(profile.Availability, s.loc)
	resp := &dto.AvailabilityResponse{
		TeacherID:   teacherID,
		Timezone:    s.loc.String(),
		HorizonDays: AvailabilityHorizonDays,
		Dates:       index.BookableDates(s.now()),
	}
	if date = strings.TrimSpace(date); date != "" {
		slots, err := index.SlotsOnDate(date)
		if err != nil {
			return nil, err
		}
		resp.Date = date
		resp.Slots = slots
	}
	return resp, nil
}

// UpdateRateCard replaces the session teacher's rate card.
func (s *TeacherProfileService) UpdateRateCard(ctx context.Context, session *models.Session, req dto.UpdateRateCardRequest) (*models.TeacherRateCard, error) {
	teacherID, err := teacherFromSession(session)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rate card payload")
	}
	if err := validateRateCard(req); err != nil {
		return nil, err
	}

	card := &models.TeacherRateCard{
		TeacherID:  teacherID,
		HourlyRate: req.HourlyRate,
		Discounts: models.DiscountTiers{
			Monthly4:  req.Discounts.Monthly4,
			Monthly8:  req.Discounts.Monthly8,
			Monthly12: req.Discounts.Monthly12,
		},
		TrialClassAvailable: req.TrialClassAvailable,
		TrialClassPrice:     req.TrialClassPrice,
		FreeDemoAvailable:   req.FreeDemoAvailable,
		FreeDemoDuration:    req.FreeDemoDuration,
	}
	card.FreeDemoDuration = card.DemoDuration()

	if err := s.repo.UpsertRateCard(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rate card")
	}
	_ = s.cache.Invalidate(ctx, profileCacheKey(teacherID))
	s.logger.Info("rate card updated", zap.String("teacher_id", teacherID))
	return card, nil
}

// ReplaceAvailability overwrites the session teacher's weekly availability as a whole.
func (s *TeacherProfileService) ReplaceAvailability(ctx context.Context, session *models.Session, req dto.ReplaceAvailabilityRequest) (*models.TeacherAvailability, error) {
	teacherID, err := teacherFromSession(session)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability payload")
	}
	window, err := NormalizeAvailability(req.Availability)
	if err != nil {
		return nil, err
	}

	availability := &models.TeacherAvailability{TeacherID: teacherID, Window: window}
	if err := s.repo.ReplaceAvailability(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}
	_ = s.cache.Invalidate(ctx, profileCacheKey(teacherID))
	s.logger.Info("availability replaced", zap.String("teacher_id", teacherID), zap.Int("days", len(window)))
	return availability, nil
}

// NormalizeAvailability validates weekday keys and slot strings. Duplicate slots collapse and
// days without slots are dropped.
func NormalizeAvailability(raw map[string][]string) (models.AvailabilityWindow, error) {
	window := models.AvailabilityWindow{}
	for key, slots := range raw {
		day, ok := models.ParseWeekday(key)
		if !ok {
			return nil, appErrors.Invalid("availability", fmt.Sprintf("%q is not a weekday", key))
		}
		seen := make(map[string]struct{}, len(slots))
		for _, slot := range slots {
			slot = strings.TrimSpace(slot)
			if _, _, err := models.SlotStart(slot); err != nil {
				return nil, appErrors.Invalid("availability", fmt.Sprintf("%s: %v", day, err))
			}
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			window[day] = append(window[day], slot)
		}
	}
	return window, nil
}

func validateRateCard(req dto.UpdateRateCardRequest) error {
	if req.HourlyRate.IsNegative() {
		return appErrors.Invalid("hourlyRate", "hourlyRate must not be negative")
	}
	if req.TrialClassPrice.IsNegative() {
		return appErrors.Invalid("trialClassPrice", "trialClassPrice must not be negative")
	}
	tiers := []struct {
		field string
		value decimal.Decimal
	}{
		{"discounts.monthly4", req.Discounts.Monthly4},
		{"discounts.monthly8", req.Discounts.Monthly8},
		{"discounts.monthly12", req.Discounts.Monthly12},
	}
	for _, tier := range tiers {
		if tier.value.IsNegative() || tier.value.GreaterThan(maxDiscount) {
			return appErrors.Invalid(tier.field, tier.field+" must be between 0 and 100")
		}
	}
	return nil
}

func teacherFromSession(session *models.Session) (string, error) {
	if session == nil || session.UserID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if session.Role != models.RoleTeacher {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only teachers can manage their profile")
	}
	return session.UserID, nil
}
