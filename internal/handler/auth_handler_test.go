package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type stubAuth struct {
	lastReq models.LoginRequest
}

func (s *stubAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.lastReq = req
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", User: models.UserInfo{ID: "u1", Role: models.RoleStudent}}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	auth := &stubAuth{}
	router := newTestRouter()
	h := NewAuthHandler(auth)
	router.POST("/auth/login", h.Login)
	router.GET("/auth/me", h.Me)

	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"access_token":"token"`)
	assert.Equal(t, "test-agent", auth.lastReq.UserAgent)

	req, _ = http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req, _ = http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`not json`))
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("X-Test-Role", string(models.RoleTeacher))
	resp = performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"role":"TEACHER"`)
}

func TestMetricsHandlerReady(t *testing.T) {
	router := newTestRouter()
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"database": PingerFunc(func(context.Context) error { return nil }),
	})
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", h.Prometheus)

	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"database":"ok"`)

	failing := NewMetricsHandler(nil, map[string]Pinger{
		"redis": PingerFunc(func(context.Context) error { return assert.AnError }),
	})
	router.GET("/ready-failing", failing.Ready)
	req, _ = http.NewRequest(http.MethodGet, "/ready-failing", nil)
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
