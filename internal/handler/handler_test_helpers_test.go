package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// newTestRouter mirrors the production chain without JWT: X-Test-Role stands in for a token.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			userID := c.GetHeader("X-Test-User")
			if userID == "" {
				userID = "test-user"
			}
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: userID,
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})
	return router
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
