package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type stubCheckout struct {
	intent  *models.BookingIntent
	outcome *models.CheckoutOutcome
	err     error

	lastTeacher string
	lastSession *models.Session
}

func (s *stubCheckout) Quote(_ context.Context, session *models.Session, teacherID string, _ models.BookingRequest) (*models.BookingIntent, error) {
	s.lastTeacher, s.lastSession = teacherID, session
	return s.intent, s.err
}

func (s *stubCheckout) Checkout(_ context.Context, session *models.Session, teacherID string, _ models.BookingRequest) (*models.CheckoutOutcome, error) {
	s.lastTeacher, s.lastSession = teacherID, session
	return s.outcome, s.err
}

type stubBookings struct {
	result  *models.BookingResult
	booking *models.Booking
	err     error

	lastQuery url.Values
}

func (s *stubBookings) Create(context.Context, *models.Session, models.CreateBookingRequest) (*models.BookingResult, error) {
	return s.result, s.err
}

func (s *stubBookings) Get(context.Context, *models.Session, string) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubBookings) ReconcileRedirect(_ context.Context, _ *models.Session, query url.Values) (*models.BookingResult, error) {
	s.lastQuery = query
	return s.result, s.err
}

func (s *stubBookings) CancelRedirect(url.Values) (*models.BookingResult, error) {
	return &models.BookingResult{Status: models.ResultCanceled}, nil
}

type stubReceipts struct{}

func (stubReceipts) Render(context.Context, *models.Session, string) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "receipt-b1.pdf", nil
}

func buildBookingRouter(checkout *stubCheckout, bookings *stubBookings) http.Handler {
	router := newTestRouter()
	h := NewBookingHandler(checkout, bookings, stubReceipts{})
	student := router.Group("/bookings", internalmiddleware.RequireRoles(models.RoleStudent))
	student.POST("/quote", h.Quote)
	student.POST("/checkout", h.Checkout)
	student.POST("/create", h.Create)
	student.GET("/checkout/success", h.CheckoutSuccess)
	router.GET("/bookings/checkout/cancel", h.CheckoutCancel)
	router.GET("/bookings/:id/receipt", h.Receipt)
	return router
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestBookingHandlerQuote(t *testing.T) {
	lessonDate := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	checkout := &stubCheckout{intent: &models.BookingIntent{
		TeacherID:      "teacher-1",
		LessonType:     models.LessonSingle,
		LessonDate:     lessonDate,
		LessonDuration: 60,
		Quote:          models.PriceQuote{Original: decimal.NewFromInt(30), Discounted: decimal.NewFromInt(30), Total: decimal.NewFromInt(30)},
	}}
	router := buildBookingRouter(checkout, &stubBookings{})

	body := `{"teacherId":"teacher-1","lessonType":"single","selectedDate":"2026-10-19","selectedTimeSlot":"09:00","lessonDuration":60,"lessonFocus":"Algebra"}`
	req, _ := http.NewRequest(http.MethodPost, "/bookings/quote", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	req.Header.Set("X-Test-User", "student-9")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "teacher-1", checkout.lastTeacher)
	require.NotNil(t, checkout.lastSession)
	assert.Equal(t, "student-9", checkout.lastSession.UserID)
	assert.Contains(t, resp.Body.String(), `"lessonDate":"2026-10-19T09:00:00Z"`)
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
}

func TestBookingHandlerRejectsMissingTeacher(t *testing.T) {
	router := buildBookingRouter(&stubCheckout{}, &stubBookings{})

	req, _ := http.NewRequest(http.MethodPost, "/bookings/checkout", bytes.NewBufferString(`{"lessonType":"single"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeEnvelope(t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "teacherId", env.Error.Field)
}

func TestBookingHandlerRequiresStudentRole(t *testing.T) {
	router := buildBookingRouter(&stubCheckout{}, &stubBookings{})

	req, _ := http.NewRequest(http.MethodPost, "/bookings/create", bytes.NewBufferString(`{}`))
	resp := performRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req, _ = http.NewRequest(http.MethodPost, "/bookings/create", bytes.NewBufferString(`{}`))
	req.Header.Set("X-Test-Role", string(models.RoleTeacher))
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestBookingHandlerCheckoutStatus(t *testing.T) {
	cases := []struct {
		name   string
		state  models.CheckoutState
		status int
	}{
		{name: "free demo confirmed", state: models.CheckoutConfirmed, status: http.StatusCreated},
		{name: "paid redirect", state: models.CheckoutRedirect, status: http.StatusOK},
		{name: "already booked", state: models.CheckoutAlreadyExists, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkout := &stubCheckout{outcome: &models.CheckoutOutcome{State: tc.state}}
			router := buildBookingRouter(checkout, &stubBookings{})

			req, _ := http.NewRequest(http.MethodPost, "/bookings/checkout", bytes.NewBufferString(`{"teacherId":"teacher-1","lessonType":"free-demo"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Test-Role", string(models.RoleStudent))
			resp := performRequest(router, req)

			assert.Equal(t, tc.status, resp.Code)
			assert.Contains(t, resp.Body.String(), `"state":"`+string(tc.state)+`"`)
		})
	}
}

func TestBookingHandlerCheckoutTransportError(t *testing.T) {
	checkout := &stubCheckout{err: appErrors.Clone(appErrors.ErrTransport, "unable to reach checkout provider")}
	router := buildBookingRouter(checkout, &stubBookings{})

	req, _ := http.NewRequest(http.MethodPost, "/bookings/checkout", bytes.NewBufferString(`{"teacherId":"teacher-1","lessonType":"single"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)

	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestBookingHandlerCheckoutSuccessReturnsCleanURL(t *testing.T) {
	bookings := &stubBookings{result: &models.BookingResult{Status: models.ResultConfirmed, Booking: &models.Booking{ID: "b1"}}}
	router := buildBookingRouter(&stubCheckout{}, bookings)

	req, _ := http.NewRequest(http.MethodGet, "/bookings/checkout/success?success=true&teacherId=t1&sig=abc&exp=1&keep=yes", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "t1", bookings.lastQuery.Get("teacherId"))
	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.Equal(t, "/bookings/checkout/success?keep=yes", env.Meta["clean_url"])
}

func TestBookingHandlerCheckoutSuccessErrorKeepsCleanURL(t *testing.T) {
	bookings := &stubBookings{err: appErrors.Clone(appErrors.ErrMissingRedirectParameter, "missing redirect parameter")}
	router := buildBookingRouter(&stubCheckout{}, bookings)

	req, _ := http.NewRequest(http.MethodGet, "/bookings/checkout/success?success=true", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.Equal(t, "/bookings/checkout/success", env.Meta["clean_url"])
}

func TestBookingHandlerCancel(t *testing.T) {
	router := buildBookingRouter(&stubCheckout{}, &stubBookings{})

	req, _ := http.NewRequest(http.MethodGet, "/bookings/checkout/cancel?canceled=true&teacherId=t1", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"canceled"`)
}

func TestBookingHandlerReceipt(t *testing.T) {
	router := buildBookingRouter(&stubCheckout{}, &stubBookings{})

	req, _ := http.NewRequest(http.MethodGet, "/bookings/b1/receipt", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="receipt-b1.pdf"`, resp.Header().Get("Content-Disposition"))
}
