// Package payment talks to the hosted-checkout payment provider.  The rest
// of the application depends only on the Provider interface.
package payment

import (
	"context"
	"errors"
)

// StatusPaid is the payment status of a session whose funds were captured.
const StatusPaid = "paid"

// Metadata keys written at checkout and read back by settlement.
const (
	MetaBookingID = "bookingId"
	MetaQuantity  = "quantity"
)

var (
	// ErrUnavailable covers timeouts, transport failures, provider 5xx and
	// an open circuit breaker.
	ErrUnavailable = errors.New("payment provider unavailable")
	// ErrSessionNotFound is returned when the provider does not know the id.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrRejected is returned when the provider refuses the request as invalid.
	ErrRejected = errors.New("payment provider rejected the request")
)

// CheckoutRequest describes a one-line-item hosted checkout.
type CheckoutRequest struct {
	Name          string
	ImageURL      string
	UnitAmount    int64 // minor units
	Quantity      int64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is what the client needs to redirect the buyer.
type CheckoutSession struct {
	ID  string
	URL string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID              string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64 // minor units, 0 when unknown
	Currency        string
	CustomerEmail   string
	Metadata        map[string]string
}

// Provider is the payment provider client.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (Session, error)
}
