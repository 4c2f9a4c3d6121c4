package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/storage"
)

type memoryBookingStore struct {
	bookings  map[models.BookingKey]*models.Booking
	inserts   int
	attempts  int
	findErr   error
	insertErr error
	// raceWith is stored just before the next insert, as if a concurrent request won.
	raceWith *models.Booking
}

func newMemoryBookingStore() *memoryBookingStore {
	return &memoryBookingStore{bookings: map[models.BookingKey]*models.Booking{}}
}

func (m *memoryBookingStore) FindByNaturalKey(ctx context.Context, key models.BookingKey) (*models.Booking, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	key.LessonDate = models.NormalizeLessonDate(key.LessonDate)
	if b, ok := m.bookings[key]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryBookingStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryBookingStore) Insert(ctx context.Context, booking *models.Booking) error {
	m.attempts++
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.raceWith != nil {
		m.bookings[m.raceWith.Key()] = m.raceWith
		m.raceWith = nil
	}
	if _, exists := m.bookings[booking.Key()]; exists {
		return repository.ErrDuplicateBooking
	}
	m.inserts++
	if booking.ID == "" {
		booking.ID = "booking-" + string(rune('0'+m.inserts))
	}
	m.bookings[booking.Key()] = booking
	return nil
}

type memoryReplayStore struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memoryReplayStore) MarkProcessed(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[fingerprint] {
		return false, nil
	}
	m.seen[fingerprint] = true
	return true, nil
}

func (m *memoryReplayStore) Forget(ctx context.Context, fingerprint string) error {
	delete(m.seen, fingerprint)
	m.forgotten = append(m.forgotten, fingerprint)
	return nil
}

var studentSession = &models.Session{UserID: "student-1", Role: models.RoleStudent, Email: "student@example.com"}

func createRequest() models.CreateBookingRequest {
	focus := "Conversation"
	return models.CreateBookingRequest{
		TeacherID:      "teacher-1",
		StudentID:      "student-1",
		LessonType:     models.LessonSingle,
		LessonDate:     "2026-10-19T09:00:00Z",
		LessonDuration: 30,
		Amount:         dec("15.00"),
		Currency:       "IDR",
		LessonFocus:    &focus,
	}
}

func newTestBookingService(store *memoryBookingStore, replays *memoryReplayStore, signer *storage.SignedURLSigner) *BookingService {
	var replayStore redirectReplayStore
	if replays != nil {
		replayStore = replays
	}
	var verifier redirectVerifier
	if signer != nil {
		verifier = signer
	}
	profile := sampleProfile()
	return NewBookingService(store, &stubProfiles{profile: &profile}, NewPricingPolicy("IDR"), replayStore, verifier, NewMetricsService(), nil, nil, BookingServiceConfig{})
}

func TestBookingServiceCreateIsIdempotent(t *testing.T) {
	store := newMemoryBookingStore()
	svc := newTestBookingService(store, nil, nil)

	first, err := svc.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ResultConfirmed, first.Status)
	assert.Equal(t, models.BookingConfirmed, first.Booking.Status)

	second, err := svc.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ResultAlreadyExists, second.Status)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 1, store.inserts)
	assert.Len(t, store.bookings, 1)
}

func TestBookingServiceCreateNormalizesLessonDate(t *testing.T) {
	store := newMemoryBookingStore()
	svc := newTestBookingService(store, nil, nil)

	_, err := svc.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)

	req := createRequest()
	req.LessonDate = "2026-10-19T16:00:00.250+07:00"
	result, err := svc.Create(context.Background(), studentSession, req)
	require.NoError(t, err)
	assert.Equal(t, models.ResultAlreadyExists, result.Status)
}

func TestBookingServiceCreateResolvesInsertRace(t *testing.T) {
	store := newMemoryBookingStore()
	winner := &models.Booking{
		ID:         "booking-winner",
		TeacherID:  "teacher-1",
		StudentID:  "student-1",
		LessonType: models.LessonSingle,
		LessonDate: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Status:     models.BookingConfirmed,
	}
	store.raceWith = winner
	svc := newTestBookingService(store, nil, nil)

	result, err := svc.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ResultAlreadyExists, result.Status)
	assert.Equal(t, "booking-winner", result.Booking.ID)
	assert.Equal(t, 0, store.inserts)
}

func TestBookingServiceCreateRejectsInvalidPayloads(t *testing.T) {
	svc := newTestBookingService(newMemoryBookingStore(), nil, nil)

	req := createRequest()
	req.TeacherID = ""
	_, err := svc.Create(context.Background(), studentSession, req)
	assert.Equal(t, "teacherId", appErrors.FromError(err).Field)

	req = createRequest()
	req.LessonDate = "19/10/2026"
	_, err = svc.Create(context.Background(), studentSession, req)
	assert.Equal(t, "lessonDate", appErrors.FromError(err).Field)

	req = createRequest()
	req.Amount = dec("-1")
	_, err = svc.Create(context.Background(), studentSession, req)
	assert.Equal(t, "amount", appErrors.FromError(err).Field)

	req = createRequest()
	req.LessonType = models.LessonMonthly
	_, err = svc.Create(context.Background(), studentSession, req)
	assert.Equal(t, "classesPerMonth", appErrors.FromError(err).Field)
}

func TestBookingServiceCreateRejectsAmountBelowRateCard(t *testing.T) {
	store := newMemoryBookingStore()
	svc := newTestBookingService(store, nil, nil)
	classes, months := 12, 6

	req := createRequest()
	req.LessonType = models.LessonMonthly
	req.ClassesPerMonth = &classes
	req.SubscriptionDuration = &months
	req.Amount = dec("0")
	_, err := svc.Create(context.Background(), studentSession, req)
	assert.Equal(t, "amount", appErrors.FromError(err).Field)

	req.Amount = dec("1728.00")
	result, err := svc.Create(context.Background(), studentSession, req)
	require.NoError(t, err)
	assert.Equal(t, models.ResultConfirmed, result.Status)

	single := createRequest()
	single.LessonDate = "2026-10-21T09:00:00Z"
	single.Amount = dec("1.00")
	_, err = svc.Create(context.Background(), studentSession, single)
	assert.Equal(t, "amount", appErrors.FromError(err).Field)

	single = createRequest()
	single.LessonDate = "2026-10-21T09:00:00Z"
	single.Currency = "USD"
	_, err = svc.Create(context.Background(), studentSession, single)
	assert.Equal(t, "currency", appErrors.FromError(err).Field)

	trial := createRequest()
	trial.LessonType = models.LessonTrial
	trial.LessonDuration = 90
	trial.Amount = dec("5.00")
	_, err = svc.Create(context.Background(), studentSession, trial)
	assert.Equal(t, "lessonDuration", appErrors.FromError(err).Field)

	assert.Equal(t, 1, store.inserts)
}

func TestBookingServiceCreateRequiresStudentSession(t *testing.T) {
	svc := newTestBookingService(newMemoryBookingStore(), nil, nil)

	_, err := svc.Create(context.Background(), nil, createRequest())
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	teacher := &models.Session{UserID: "teacher-1", Role: models.RoleTeacher}
	_, err = svc.Create(context.Background(), teacher, createRequest())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	other := &models.Session{UserID: "student-2", Role: models.RoleStudent}
	_, err = svc.Create(context.Background(), other, createRequest())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateStoreFailure(t *testing.T) {
	store := newMemoryBookingStore()
	store.insertErr = errors.New("connection refused")
	svc := newTestBookingService(store, nil, nil)

	_, err := svc.Create(context.Background(), studentSession, createRequest())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func signedRedirect(t *testing.T, signer *storage.SignedURLSigner, req models.CreateBookingRequest) url.Values {
	t.Helper()
	signed, _, err := signer.Sign(EncodeRedirectParams(req))
	require.NoError(t, err)
	return signed
}

func TestBookingServiceReconcileRedirect(t *testing.T) {
	store := newMemoryBookingStore()
	replays := &memoryReplayStore{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(store, replays, signer)
	query := signedRedirect(t, signer, createRequest())

	result, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	require.NoError(t, err)
	assert.Equal(t, models.ResultConfirmed, result.Status)
	assert.Equal(t, "Conversation", *result.Booking.LessonFocus)

	replayed, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	require.NoError(t, err)
	assert.Equal(t, models.ResultAlreadyExists, replayed.Status)
	assert.Equal(t, result.Booking.ID, replayed.Booking.ID)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.attempts)
}

func TestBookingServiceReconcileRedirectAcceptsProviderParams(t *testing.T) {
	store := newMemoryBookingStore()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(store, &memoryReplayStore{}, signer)

	query := signedRedirect(t, signer, createRequest())
	query.Set("order_id", "order-1")
	query.Set("status_code", "200")
	query.Set("transaction_status", "settlement")

	result, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	require.NoError(t, err)
	assert.Equal(t, models.ResultConfirmed, result.Status)
	assert.Equal(t, 1, store.inserts)
}

func TestBookingServiceReconcileRedirectReplayKeepsInFlightFingerprint(t *testing.T) {
	store := newMemoryBookingStore()
	store.insertErr = errors.New("db down")
	replays := &memoryReplayStore{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(store, replays, signer)

	query := signedRedirect(t, signer, createRequest())
	fingerprint := redirectFingerprint(query)
	// another request holds the fingerprint and has not stored its booking yet
	replays.seen = map[string]bool{fingerprint: true}

	_, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	require.Error(t, err)
	assert.Empty(t, replays.forgotten)
	assert.True(t, replays.seen[fingerprint])
}

func TestBookingServiceReconcileRedirectMissingParameters(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(newMemoryBookingStore(), &memoryReplayStore{}, signer)

	query := signedRedirect(t, signer, createRequest())
	query.Del("lessonDate")
	query.Del("amount")

	_, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMissingRedirectParameter.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "lessonDate")
	assert.Contains(t, appErr.Message, "amount")
}

func TestBookingServiceReconcileRedirectRejectsTampering(t *testing.T) {
	store := newMemoryBookingStore()
	replays := &memoryReplayStore{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(store, replays, signer)

	query := signedRedirect(t, signer, createRequest())
	query.Set("amount", "0.00")

	_, err := svc.ReconcileRedirect(context.Background(), studentSession, query)
	assert.Equal(t, appErrors.ErrMissingRedirectParameter.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.bookings)

	query.Del(storage.ParamSignature)
	_, err = svc.ReconcileRedirect(context.Background(), studentSession, query)
	assert.Equal(t, storage.ParamSignature, appErrors.FromError(err).Field)
}

func TestBookingServiceReconcileRedirectReleasesFingerprintOnFailure(t *testing.T) {
	store := newMemoryBookingStore()
	store.insertErr = errors.New("db down")
	replays := &memoryReplayStore{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := newTestBookingService(store, replays, signer)

	_, err := svc.ReconcileRedirect(context.Background(), studentSession, signedRedirect(t, signer, createRequest()))
	require.Error(t, err)
	assert.Len(t, replays.forgotten, 1)
	assert.Empty(t, replays.seen)
}

func TestBookingServiceCancelRedirect(t *testing.T) {
	store := newMemoryBookingStore()
	svc := newTestBookingService(store, nil, nil)

	result, err := svc.CancelRedirect(url.Values{"canceled": {"true"}, "teacherId": {"teacher-1"}})
	require.NoError(t, err)
	assert.Equal(t, models.ResultCanceled, result.Status)
	assert.Nil(t, result.Booking)
	assert.Empty(t, store.bookings)

	_, err = svc.CancelRedirect(url.Values{})
	assert.Equal(t, appErrors.ErrMissingRedirectParameter.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceGetHidesOtherUsersBookings(t *testing.T) {
	store := newMemoryBookingStore()
	svc := newTestBookingService(store, nil, nil)
	created, err := svc.Create(context.Background(), studentSession, createRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), &models.Session{UserID: "teacher-1", Role: models.RoleTeacher}, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Booking.ID, got.ID)

	_, err = svc.Get(context.Background(), &models.Session{UserID: "student-2", Role: models.RoleStudent}, created.Booking.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
