package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDisabled is returned by the disabled gateway for every paid checkout.
var ErrDisabled = errors.New("checkout provider is not configured")

// ErrUnsupportedCurrency is returned when the provider cannot charge in the requested currency.
var ErrUnsupportedCurrency = errors.New("currency not supported by checkout provider")

// Customer identifies the payer on the hosted checkout page.
type Customer struct {
	ID       string
	Email    string
	FullName string
}

// SessionRequest describes a hosted checkout to open.
type SessionRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Customer    Customer
	Metadata    map[string]string
}

// Session is the provider's answer: where to send the browser.
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}

// Gateway opens hosted checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// DisabledGateway rejects every session. Used when no provider is configured, which still allows
// free demos to be booked.
type DisabledGateway struct{}

// CreateSession always fails with ErrDisabled.
func (DisabledGateway) CreateSession(context.Context, SessionRequest) (*Session, error) {
	return nil, ErrDisabled
}
