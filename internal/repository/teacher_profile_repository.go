package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// TeacherProfileRepository persists rate cards and weekly availability.
type TeacherProfileRepository struct {
	db *sqlx.DB
}

// NewTeacherProfileRepository constructs the repository.
func NewTeacherProfileRepository(db *sqlx.DB) *TeacherProfileRepository {
	return &TeacherProfileRepository{db: db}
}

type rateCardRow struct {
	TeacherID           string          `db:"teacher_id"`
	HourlyRate          decimal.Decimal `db:"hourly_rate"`
	DiscountMonthly4    decimal.Decimal `db:"discount_monthly_4"`
	DiscountMonthly8    decimal.Decimal `db:"discount_monthly_8"`
	DiscountMonthly12   decimal.Decimal `db:"discount_monthly_12"`
	TrialClassAvailable bool            `db:"trial_class_available"`
	TrialClassPrice     decimal.Decimal `db:"trial_class_price"`
	FreeDemoAvailable   bool            `db:"free_demo_available"`
	FreeDemoDuration    int             `db:"free_demo_duration"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (r rateCardRow) toModel() *models.TeacherRateCard {
	return &models.TeacherRateCard{
		TeacherID:  r.TeacherID,
		HourlyRate: r.HourlyRate,
		Discounts: models.DiscountTiers{
			Monthly4:  r.DiscountMonthly4,
			Monthly8:  r.DiscountMonthly8,
			Monthly12: r.DiscountMonthly12,
		},
		TrialClassAvailable: r.TrialClassAvailable,
		TrialClassPrice:     r.TrialClassPrice,
		FreeDemoAvailable:   r.FreeDemoAvailable,
		FreeDemoDuration:    r.FreeDemoDuration,
		UpdatedAt:           r.UpdatedAt,
	}
}

// GetRateCard returns the rate card of a teacher or sql.ErrNoRows.
func (r *TeacherProfileRepository) GetRateCard(ctx context.Context, teacherID string) (*models.TeacherRateCard, error) {
	const query = `SELECT teacher_id, hourly_rate, discount_monthly_4, discount_monthly_8, discount_monthly_12, trial_class_available, trial_class_price, free_demo_available, free_demo_duration, updated_at FROM teacher_rate_cards WHERE teacher_id = $1`
	var row rateCardRow
	if err := r.db.GetContext(ctx, &row, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get rate card: %w", err)
	}
	return row.toModel(), nil
}

// UpsertRateCard creates or replaces a teacher's rate card.
func (r *TeacherProfileRepository) UpsertRateCard(ctx context.Context, card *models.TeacherRateCard) error {
	card.UpdatedAt = time.Now().UTC()
	row := rateCardRow{
		TeacherID:           card.TeacherID,
		HourlyRate:          card.HourlyRate,
		DiscountMonthly4:    card.Discounts.Monthly4,
		DiscountMonthly8:    card.Discounts.Monthly8,
		DiscountMonthly12:   card.Discounts.Monthly12,
		TrialClassAvailable: card.TrialClassAvailable,
		TrialClassPrice:     card.TrialClassPrice,
		FreeDemoAvailable:   card.FreeDemoAvailable,
		FreeDemoDuration:    card.FreeDemoDuration,
		UpdatedAt:           card.UpdatedAt,
	}

	const query = `INSERT INTO teacher_rate_cards (teacher_id, hourly_rate, discount_monthly_4, discount_monthly_8, discount_monthly_12, trial_class_available, trial_class_price, free_demo_available, free_demo_duration, updated_at)
		VALUES (:teacher_id, :hourly_rate, :discount_monthly_4, :discount_monthly_8, :discount_monthly_12, :trial_class_available, :trial_class_price, :free_demo_available, :free_demo_duration, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE
		SET hourly_rate = EXCLUDED.hourly_rate,
		    discount_monthly_4 = EXCLUDED.discount_monthly_4,
		    discount_monthly_8 = EXCLUDED.discount_monthly_8,
		    discount_monthly_12 = EXCLUDED.discount_monthly_12,
		    trial_class_available = EXCLUDED.trial_class_available,
		    trial_class_price = EXCLUDED.trial_class_price,
		    free_demo_available = EXCLUDED.free_demo_available,
		    free_demo_duration = EXCLUDED.free_demo_duration,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert rate card: %w", err)
	}
	return nil
}

type availabilityRow struct {
	TeacherID string         `db:"teacher_id"`
	Slots     types.JSONText `db:"slots"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// GetAvailability returns the stored weekly availability or sql.ErrNoRows.
func (r *TeacherProfileRepository) GetAvailability(ctx context.Context, teacherID string) (*models.TeacherAvailability, error) {
	const query = `SELECT teacher_id, slots, updated_at FROM teacher_availability WHERE teacher_id = $1`
	var row availabilityRow
	if err := r.db.GetContext(ctx, &row, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}

	window := models.AvailabilityWindow{}
	if len(row.Slots) > 0 {
		if err := row.Slots.Unmarshal(&window); err != nil {
			return nil, fmt.Errorf("decode availability for %s: %w", teacherID, err)
		}
	}
	return &models.TeacherAvailability{TeacherID: row.TeacherID, Window: window, UpdatedAt: row.UpdatedAt}, nil
}

// ReplaceAvailability overwrites the teacher's availability as a whole.
func (r *TeacherProfileRepository) ReplaceAvailability(ctx context.Context, availability *models.TeacherAvailability) error {
	window := availability.Window
	if window == nil {
		window = models.AvailabilityWindow{}
	}
	raw, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	availability.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO teacher_availability (teacher_id, slots, updated_at)
		VALUES (:teacher_id, :slots, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE
		SET slots = EXCLUDED.slots,
		    updated_at = EXCLUDED.updated_at`
	row := availabilityRow{TeacherID: availability.TeacherID, Slots: types.JSONText(raw), UpdatedAt: availability.UpdatedAt}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("replace availability: %w", err)
	}
	return nil
}
