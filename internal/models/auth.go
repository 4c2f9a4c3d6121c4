package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Session is the identity a booking flow runs under. It is loaded once per request from the
// access token and passed explicitly to the services that need it.
type Session struct {
	UserID   string
	Role     UserRole
	Email    string
	FullName string
}

// Session converts validated claims into a request session.
func (c *JWTClaims) Session() *Session {
	if c == nil {
		return nil
	}
	return &Session{UserID: c.UserID, Role: c.Role, Email: c.Email, FullName: c.FullName}
}

// IsStudent reports whether the session may create bookings.
func (s *Session) IsStudent() bool {
	return s != nil && s.Role == RoleStudent
}
