// Package service holds the payment flows: starting a checkout, settling a
// paid checkout session and aggregating vendor revenue.
package service

import "errors"

// Validation failures (400).
var (
	ErrInvalidSession      = errors.New("invalid session id")
	ErrInvalidMetadata     = errors.New("checkout session metadata is missing booking information")
	ErrInvalidBookingInfo  = errors.New("invalid booking info")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrExpiredBooking      = errors.New("booking has expired")
)

// ErrBookingNotFound is returned when the booking named by the session
// metadata does not exist (404).
var ErrBookingNotFound = errors.New("booking not found")

// ErrConflict covers a booking paid under a different transaction and a
// decrement that would oversell the ticket (409).
var ErrConflict = errors.New("settlement conflict")

// ErrProviderUnavailable means the payment provider could not be reached in
// time.  Nothing was written; the caller may retry (500).
var ErrProviderUnavailable = errors.New("payment provider unavailable")
