package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/payment"
)

// CheckoutIntent is what the buyer submits to pay for a booking.
type CheckoutIntent struct {
	BookingID     uint64
	TotalPrice    decimal.Decimal
	Quantity      int
	TicketTitle   string
	ImageURL      string
	CustomerEmail string
}

// Checkout turns a booking intent into a hosted checkout session.  The
// booking id and quantity are embedded as metadata verbatim; settlement
// reads them back from the provider.
type Checkout struct {
	provider   payment.Provider
	successURL string
	cancelURL  string
}

// NewCheckout builds redirect URLs from the front-end origin.
func NewCheckout(provider payment.Provider, clientURL, successPath, cancelPath string) *Checkout {
	base := strings.TrimRight(clientURL, "/")
	return &Checkout{provider: provider, successURL: base + successPath, cancelURL: base + cancelPath}
}

// Start validates in and requests a session from the provider.
func (c *Checkout) Start(ctx context.Context, in CheckoutIntent) (payment.CheckoutSession, error) {
	switch {
	case in.BookingID == 0:
		return payment.CheckoutSession{}, fmt.Errorf("%w: bookingId is required", ErrInvalidBookingInfo)
	case in.Quantity <= 0:
		return payment.CheckoutSession{}, fmt.Errorf("%w: bookingQty must be positive", ErrInvalidBookingInfo)
	case !in.TotalPrice.IsPositive():
		return payment.CheckoutSession{}, fmt.Errorf("%w: totalPrice must be positive", ErrInvalidBookingInfo)
	}

	// charged as one line item for the whole booking so the captured amount
	// equals totalPrice exactly; the seat count travels in metadata
	cents := in.TotalPrice.Shift(2)
	if !cents.IsInteger() {
		return payment.CheckoutSession{}, fmt.Errorf("%w: totalPrice has more than two decimals", ErrInvalidBookingInfo)
	}

	title := strings.TrimSpace(in.TicketTitle)
	if title == "" {
		title = "Ticket booking"
	}
	seats := "seats"
	if in.Quantity == 1 {
		seats = "seat"
	}
	sess, err := c.provider.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Name:          fmt.Sprintf("%s (%d %s)", title, in.Quantity, seats),
		ImageURL:      in.ImageURL,
		UnitAmount:    cents.IntPart(),
		Quantity:      1,
		CustomerEmail: in.CustomerEmail,
		SuccessURL:    c.successURL,
		CancelURL:     c.cancelURL,
		Metadata: map[string]string{
			payment.MetaBookingID: strconv.FormatUint(in.BookingID, 10),
			payment.MetaQuantity:  strconv.Itoa(in.Quantity),
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrRejected) {
			return payment.CheckoutSession{}, fmt.Errorf("%w: %v", ErrInvalidBookingInfo, err)
		}
		if errors.Is(err, payment.ErrUnavailable) {
			return payment.CheckoutSession{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return payment.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}
