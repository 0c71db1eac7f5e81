package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/payment"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Outcome distinguishes a fresh settlement from a repeated one.
type Outcome string

const (
	Settled        Outcome = "settled"
	AlreadySettled Outcome = "already_settled"
)

// Result describes a successful call to Settle.
type Result struct {
	Outcome       Outcome
	BookingID     uint64
	ProviderTxnID string
	Quantity      int
	Amount        decimal.Decimal
}

// SettlementStore is the persistence the settler needs.  Apply must be
// atomic: either the transaction row, the paid booking and the decremented
// ticket are all committed or none are.  It reports a repeated provider
// transaction id as repository.ErrDuplicate, a booking that is already
// paid as repository.ErrAlreadyPaid and an oversell as
// repository.ErrInsufficientQuantity.
type SettlementStore interface {
	TransactionExists(ctx context.Context, providerTxnID string) (bool, error)
	BookingWithTicket(ctx context.Context, bookingID uint64) (model.Booking, model.Ticket, error)
	Apply(ctx context.Context, txn *model.Transaction, ticketID uint64) error
}

// EventPublisher receives an event for every committed settlement.
type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, ev queue.BookingPaidEvent) error
}

// Settler confirms paid checkout sessions and applies their effects.
type Settler struct {
	provider payment.Provider
	store    SettlementStore
	events   EventPublisher // optional
	log      *slog.Logger
	now      func() time.Time
}

func NewSettler(provider payment.Provider, store SettlementStore, events EventPublisher, log *slog.Logger) *Settler {
	if log == nil {
		log = slog.Default()
	}
	return &Settler{
		provider: provider,
		store:    store,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Settle verifies sessionID with the provider and, the first time a given
// payment is seen, marks the booking paid, takes the sold seats off the
// ticket and records the transaction.  Any later call for the same payment
// returns AlreadySettled and writes nothing.
func (s *Settler) Settle(ctx context.Context, sessionID string) (res Result, err error) {
	started := time.Now()
	defer func() { metrics.ObserveSettlement(outcomeLabel(res, err), started) }()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, ErrInvalidSession
	}

	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) || errors.Is(err, payment.ErrRejected) {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if sess.PaymentStatus != payment.StatusPaid {
		return Result{}, fmt.Errorf("%w: status %q", ErrPaymentNotCompleted, sess.PaymentStatus)
	}

	anchor := sess.PaymentIntentID
	if anchor == "" {
		anchor = sessionID
	}
	res.ProviderTxnID = anchor
	bookingID, qty, metaErr := parseMetadata(sess.Metadata)
	res.BookingID, res.Quantity = bookingID, qty

	exists, err := s.store.TransactionExists(ctx, anchor)
	if err != nil {
		return res, fmt.Errorf("check transaction: %w", err)
	}
	if exists {
		res.Outcome = AlreadySettled
		return res, nil
	}
	if metaErr != nil {
		return res, metaErr
	}

	booking, ticket, err := s.store.BookingWithTicket(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return res, fmt.Errorf("%w: id %d", ErrBookingNotFound, bookingID)
	}
	if err != nil {
		return res, fmt.Errorf("load booking: %w", err)
	}
	if booking.Status == model.BookingPaid {
		if booking.TransactionID != nil && *booking.TransactionID == anchor {
			res.Outcome = AlreadySettled
			return res, nil
		}
		return res, fmt.Errorf("%w: booking %d already paid", ErrConflict, bookingID)
	}

	// the booking row is authoritative; metadata and the captured amount
	// must agree with it or the settlement is refused without writes
	switch {
	case qty == 0:
		qty = booking.Quantity
		res.Quantity = qty
	case qty != booking.Quantity:
		return res, fmt.Errorf("%w: quantity %d does not match booking %d quantity %d",
			ErrInvalidMetadata, qty, bookingID, booking.Quantity)
	}
	if sess.AmountTotal > 0 {
		if paid := decimal.New(sess.AmountTotal, -2); paid.LessThan(booking.TotalPrice) {
			return res, fmt.Errorf("%w: paid %s is less than booking %d total %s",
				ErrConflict, paid.StringFixed(2), bookingID, booking.TotalPrice.StringFixed(2))
		}
	}

	now := s.now()
	if ticket.Departed(now) {
		return res, fmt.Errorf("%w: departed at %s", ErrExpiredBooking, ticket.DepartureAt.Format(time.RFC3339))
	}

	amount := booking.TotalPrice
	if sess.AmountTotal > 0 {
		amount = decimal.New(sess.AmountTotal, -2)
	}
	txn := &model.Transaction{
		ProviderTxnID: anchor,
		BookingID:     booking.ID,
		UserEmail:     booking.UserEmail,
		VendorEmail:   booking.VendorEmail,
		Amount:        amount,
		Quantity:      qty,
		TicketTitle:   ticket.Title,
		PaidAt:        now,
	}
	switch err := s.store.Apply(ctx, txn, booking.TicketID); {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicate):
		// lost the race to a concurrent settlement of the same payment
		res.Outcome = AlreadySettled
		return res, nil
	case errors.Is(err, repository.ErrAlreadyPaid):
		return res, fmt.Errorf("%w: booking %d already paid", ErrConflict, bookingID)
	case errors.Is(err, repository.ErrInsufficientQuantity):
		return res, fmt.Errorf("%w: ticket %d has fewer than %d seats left", ErrConflict, booking.TicketID, qty)
	default:
		return res, fmt.Errorf("apply settlement: %w", err)
	}

	res.Outcome = Settled
	res.Amount = amount
	s.log.Info("booking settled",
		"booking_id", booking.ID, "ticket_id", booking.TicketID, "quantity", qty,
		"amount", amount.StringFixed(2), "provider_txn_id", anchor)
	s.publish(ctx, booking, txn)
	return res, nil
}

func (s *Settler) publish(ctx context.Context, b model.Booking, txn *model.Transaction) {
	if s.events == nil {
		return
	}
	// the settlement is committed; a cancelled request must not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	err := s.events.PublishBookingPaid(ctx, queue.BookingPaidEvent{
		EventID:       uuid.NewString(),
		BookingID:     b.ID,
		TicketID:      b.TicketID,
		TicketTitle:   txn.TicketTitle,
		UserEmail:     txn.UserEmail,
		VendorEmail:   txn.VendorEmail,
		Quantity:      txn.Quantity,
		Amount:        txn.Amount.StringFixed(2),
		ProviderTxnID: txn.ProviderTxnID,
		PaidAt:        txn.PaidAt.Format(time.RFC3339),
	})
	metrics.ObservePublish(err)
	if err != nil {
		s.log.Warn("booking.paid publish failed", "booking_id", b.ID, "error", err)
	}
}

// parseMetadata reads the booking id and sold quantity written at checkout.
// A session without a quantity yields 0, meaning the booking's own quantity.
func parseMetadata(md map[string]string) (uint64, int, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(md[payment.MetaBookingID]), 10, 64)
	if err != nil || id == 0 {
		return 0, 0, fmt.Errorf("%w: bookingId %q", ErrInvalidMetadata, md[payment.MetaBookingID])
	}
	raw, ok := md[payment.MetaQuantity]
	if !ok {
		return id, 0, nil
	}
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty <= 0 {
		return id, 0, fmt.Errorf("%w: quantity %q", ErrInvalidMetadata, md[payment.MetaQuantity])
	}
	return id, qty, nil
}

func outcomeLabel(res Result, err error) string {
	switch {
	case err == nil:
		return string(res.Outcome)
	case errors.Is(err, ErrPaymentNotCompleted):
		return "payment_not_completed"
	case errors.Is(err, ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, ErrExpiredBooking):
		return "expired"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidMetadata):
		return "invalid"
	}
	return "error"
}
