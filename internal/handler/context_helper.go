package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// sessionFromContext returns nil for anonymous requests; services reject those themselves.
func sessionFromContext(c *gin.Context) *models.Session {
	return claimsFromContext(c).Session()
}
