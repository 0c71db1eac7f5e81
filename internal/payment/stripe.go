package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/metrics"
)

// Stripe implements Provider on Stripe Checkout.  Every call is bounded by
// the configured timeout and runs through a circuit breaker, so a degraded
// provider fails fast with ErrUnavailable instead of tying up requests.
type Stripe struct {
	api      *client.API
	currency string
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker
}

// NewStripe builds the client against the live Stripe API.
func NewStripe(cfg config.PaymentConfig) *Stripe {
	return newStripe(cfg, "")
}

// newStripe lets tests point the client at a fake API server.
func newStripe(cfg config.PaymentConfig, baseURL string) *Stripe {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0), // callers own retries; settlement is idempotent
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if baseURL != "" {
		bc.URL = stripe.String(baseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	api := client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "stripe",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		// bad input from the caller is not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrRejected)
		},
	})

	return &Stripe{api: api, currency: cfg.Currency, timeout: cfg.Timeout, cb: cb}
}

// CreateCheckoutSession opens a hosted payment page for one line item.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(req.Name)}
	if req.ImageURL != "" {
		product.Images = []*string{stripe.String(req.ImageURL)}
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				UnitAmount:  stripe.Int64(req.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(req.Quantity),
		}},
		Metadata: req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	started := time.Now()
	out, err := s.cb.Execute(func() (interface{}, error) {
		sess, err := s.api.CheckoutSessions.New(params)
		return sess, classify(err)
	})
	metrics.ObserveProviderCall("create_session", err, started)
	if err != nil {
		return CheckoutSession{}, breakerErr(err)
	}
	sess := out.(*stripe.CheckoutSession)
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveSession fetches the current state of a checkout session.
func (s *Stripe) RetrieveSession(ctx context.Context, sessionID string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	started := time.Now()
	out, err := s.cb.Execute(func() (interface{}, error) {
		sess, err := s.api.CheckoutSessions.Get(sessionID, params)
		return sess, classify(err)
	})
	metrics.ObserveProviderCall("retrieve_session", err, started)
	if err != nil {
		return Session{}, breakerErr(err)
	}
	sess := out.(*stripe.CheckoutSession)
	res := Session{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		res.PaymentIntentID = sess.PaymentIntent.ID
	}
	return res, nil
}

// classify maps Stripe errors onto the package's sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing:
			return fmt.Errorf("%w: %s", ErrSessionNotFound, se.Msg)
		case se.HTTPStatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrRejected, se.Msg)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
