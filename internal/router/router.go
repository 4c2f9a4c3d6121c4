package router

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth     *handler.AuthHandler
	Teachers *handler.TeacherProfileHandler
	Bookings *handler.BookingHandler
	Metrics  *handler.MetricsHandler
}

// Options carries the cross-cutting pieces the routes depend on.
type Options struct {
	APIPrefix string
	Tokens    internalmiddleware.TokenValidator
	Metrics   *service.MetricsService
}

// Register mounts ops endpoints at the root and the API under the configured prefix.
func Register(r *gin.Engine, h Handlers, opts Options) {
	r.Use(internalmiddleware.Metrics(opts.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("", internalmiddleware.JWT(opts.Tokens))
	authed.GET("/auth/me", h.Auth.Me)

	teachers := authed.Group("/teachers")
	teachers.GET("/:id/availability", h.Teachers.Availability)
	teachers.GET("/:id/rate-card", h.Teachers.RateCard)

	own := teachers.Group("/me", internalmiddleware.RequireRoles(models.RoleTeacher))
	own.PUT("/rate-card", h.Teachers.UpdateRateCard)
	own.PUT("/availability", h.Teachers.ReplaceAvailability)

	bookings := authed.Group("/bookings")
	students := bookings.Group("", internalmiddleware.RequireRoles(models.RoleStudent))
	students.POST("/quote", h.Bookings.Quote)
	students.POST("/checkout", h.Bookings.Checkout)
	students.POST("/create", h.Bookings.Create)
	students.GET("/checkout/success", h.Bookings.CheckoutSuccess)
	students.GET("/checkout/cancel", h.Bookings.CheckoutCancel)

	// Ownership is checked by the services.
	bookings.GET("/:id", h.Bookings.Get)
	bookings.GET("/:id/receipt", h.Bookings.Receipt)
}
