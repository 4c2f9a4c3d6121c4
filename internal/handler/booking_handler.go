package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type checkoutService interface {
	Quote(ctx context.Context, session *models.Session, teacherID string, req models.BookingRequest) (*models.BookingIntent, error)
	Checkout(ctx context.Context, session *models.Session, teacherID string, req models.BookingRequest) (*models.CheckoutOutcome, error)
}

type bookingService interface {
	Create(ctx context.Context, session *models.Session, req models.CreateBookingRequest) (*models.BookingResult, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.Booking, error)
	ReconcileRedirect(ctx context.Context, session *models.Session, query url.Values) (*models.BookingResult, error)
	CancelRedirect(query url.Values) (*models.BookingResult, error)
}

type receiptService interface {
	Render(ctx context.Context, session *models.Session, bookingID string) ([]byte, string, error)
}

// BookingHandler serves quoting, checkout, booking creation and redirect reconciliation.
type BookingHandler struct {
	checkout checkoutService
	bookings bookingService
	receipts receiptService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(checkout checkoutService, bookings bookingService, receipts receiptService) *BookingHandler {
	return &BookingHandler{checkout: checkout, bookings: bookings, receipts: receipts}
}

// Quote godoc
// @Summary Price a selection
// @Description Validate a lesson selection and return its priced intent without booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BookingSelectionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings/quote [post]
func (h *BookingHandler) Quote(c *gin.Context) {
	var req dto.BookingSelectionRequest
	if !bindSelection(c, &req) {
		return
	}
	intent, err := h.checkout.Quote(c.Request.Context(), sessionFromContext(c), req.TeacherID, req.BookingRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.QuoteResponse{
		TeacherID:      intent.TeacherID,
		LessonType:     intent.LessonType,
		LessonDate:     intent.LessonDate.Format(time.RFC3339),
		LessonDuration: intent.LessonDuration,
		Quote:          intent.Quote,
	})
}

// Checkout godoc
// @Summary Start checkout
// @Description Free demos are booked directly; paid lessons return a hosted checkout URL
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BookingSelectionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /bookings/checkout [post]
func (h *BookingHandler) Checkout(c *gin.Context) {
	var req dto.BookingSelectionRequest
	if !bindSelection(c, &req) {
		return
	}
	outcome, err := h.checkout.Checkout(c.Request.Context(), sessionFromContext(c), req.TeacherID, req.BookingRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if outcome.State == models.CheckoutConfirmed {
		status = http.StatusCreated
	}
	response.JSON(c, status, outcome)
}

// Create godoc
// @Summary Create booking
// @Description Idempotent on teacher, student, lesson type and lesson date
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateBookingRequest true "Booking"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /bookings/create [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	result, err := h.bookings.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, resultStatus(result), result)
}

// CheckoutSuccess godoc
// @Summary Reconcile checkout success redirect
// @Description Verifies the signed redirect and creates the booking at most once
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings/checkout/success [get]
func (h *BookingHandler) CheckoutSuccess(c *gin.Context) {
	meta := redirectMeta(c.Request.URL)
	result, err := h.bookings.ReconcileRedirect(c.Request.Context(), sessionFromContext(c), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err, meta)
		return
	}
	response.JSON(c, resultStatus(result), result, meta)
}

// CheckoutCancel godoc
// @Summary Reconcile checkout cancel redirect
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/checkout/cancel [get]
func (h *BookingHandler) CheckoutCancel(c *gin.Context) {
	meta := redirectMeta(c.Request.URL)
	result, err := h.bookings.CancelRedirect(c.Request.URL.Query())
	if err != nil {
		response.Error(c, err, meta)
		return
	}
	response.JSON(c, http.StatusOK, result, meta)
}

// Get godoc
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking)
}

// Receipt godoc
// @Summary Download booking receipt
// @Tags Bookings
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	body, filename, err := h.receipts.Render(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", body)
}

func bindSelection(c *gin.Context, req *dto.BookingSelectionRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking selection"))
		return false
	}
	if req.TeacherID == "" {
		response.Error(c, appErrors.Invalid("teacherId", "teacherId is required"))
		return false
	}
	return true
}

func resultStatus(result *models.BookingResult) int {
	if result != nil && result.Status == models.ResultConfirmed {
		return http.StatusCreated
	}
	return http.StatusOK
}

// redirectMeta tells the client which URL to replace the address bar with so a reload cannot
// resubmit the redirect.
func redirectMeta(u *url.URL) map[string]interface{} {
	return map[string]interface{}{"clean_url": service.CleanRedirectURL(u)}
}
