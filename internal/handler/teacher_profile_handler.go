package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type teacherProfileService interface {
	RateCard(ctx context.Context, teacherID string) (*models.TeacherRateCard, error)
	Availability(ctx context.Context, teacherID, date string) (*dto.AvailabilityResponse, error)
	UpdateRateCard(ctx context.Context, session *models.Session, req dto.UpdateRateCardRequest) (*models.TeacherRateCard, error)
	ReplaceAvailability(ctx context.Context, session *models.Session, req dto.ReplaceAvailabilityRequest) (*models.TeacherAvailability, error)
}

// TeacherProfileHandler exposes rate cards and availability.
type TeacherProfileHandler struct {
	service teacherProfileService
}

// NewTeacherProfileHandler constructs the handler.
func NewTeacherProfileHandler(svc teacherProfileService) *TeacherProfileHandler {
	return &TeacherProfileHandler{service: svc}
}

// Availability godoc
// @Summary Teacher availability
// @Description List bookable dates in the booking horizon, or the slots of one date
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *TeacherProfileHandler) Availability(c *gin.Context) {
	res, err := h.service.Availability(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// RateCard godoc
// @Summary Teacher rate card
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/rate-card [get]
func (h *TeacherProfileHandler) RateCard(c *gin.Context) {
	card, err := h.service.RateCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// UpdateRateCard godoc
// @Summary Update own rate card
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateRateCardRequest true "Rate card"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/me/rate-card [put]
func (h *TeacherProfileHandler) UpdateRateCard(c *gin.Context) {
	var req dto.UpdateRateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rate card payload"))
		return
	}
	card, err := h.service.UpdateRateCard(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// ReplaceAvailability godoc
// @Summary Replace own weekly availability
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReplaceAvailabilityRequest true "Weekly slots keyed by weekday"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/me/availability [put]
func (h *TeacherProfileHandler) ReplaceAvailability(c *gin.Context) {
	var req dto.ReplaceAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	availability, err := h.service.ReplaceAvailability(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability)
}
