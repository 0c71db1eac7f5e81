package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// BookingRepo provides persistence for bookings.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.ticket_id, b.user_email, b.vendor_email, b.quantity, b.total_price,
	b.status, b.payment_status, b.transaction_id, b.created_at, b.paid_at`

func bookingDest(b *model.Booking, txnID *sql.NullString, paidAt *sql.NullTime) []any {
	return []any{&b.ID, &b.TicketID, &b.UserEmail, &b.VendorEmail, &b.Quantity, &b.TotalPrice,
		&b.Status, &b.PaymentStatus, txnID, &b.CreatedAt, paidAt}
}

func fillNullable(b *model.Booking, txnID sql.NullString, paidAt sql.NullTime) {
	if txnID.Valid {
		s := txnID.String
		b.TransactionID = &s
	}
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}
}

// Create inserts a pending, unpaid booking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	b.Status = model.BookingPending
	b.PaymentStatus = model.PaymentUnpaid
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (ticket_id, user_email, vendor_email, quantity, total_price, status, payment_status, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.TicketID, b.UserEmail, b.VendorEmail, b.Quantity, b.TotalPrice, b.Status, b.PaymentStatus, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var (
		b      model.Booking
		txnID  sql.NullString
		paidAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id = ?", id).
		Scan(bookingDest(&b, &txnID, &paidAt)...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	fillNullable(&b, txnID, paidAt)
	return b, nil
}

// GetWithTicket fetches a booking and the ticket it refers to in one
// round-trip.  Settlement uses it to validate departure and title.
func (r *BookingRepo) GetWithTicket(ctx context.Context, id uint64) (model.Booking, model.Ticket, error) {
	var (
		b      model.Booking
		t      model.Ticket
		txnID  sql.NullString
		paidAt sql.NullTime
	)
	dest := append(bookingDest(&b, &txnID, &paidAt), &t.ID, &t.VendorEmail, &t.Title, &t.Quantity, &t.Price, &t.DepartureAt)
	err := r.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+`, t.id, t.vendor_email, t.title, t.quantity, t.price, t.departure_at
		 FROM bookings b JOIN tickets t ON t.id = b.ticket_id WHERE b.id = ?`, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.Ticket{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, model.Ticket{}, err
	}
	fillNullable(&b, txnID, paidAt)
	return b, t, nil
}

func (r *BookingRepo) listViews(ctx context.Context, where string, arg any) ([]model.BookingView, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+`, t.title, t.origin, t.destination, t.departure_at, t.image_url
		 FROM bookings b JOIN tickets t ON t.id = b.ticket_id
		 WHERE `+where+` ORDER BY b.created_at DESC, b.id DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingView{}
	for rows.Next() {
		var (
			v      model.BookingView
			txnID  sql.NullString
			paidAt sql.NullTime
		)
		dest := append(bookingDest(&v.Booking, &txnID, &paidAt), &v.TicketTitle, &v.Origin, &v.Destination, &v.DepartureAt, &v.ImageURL)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		fillNullable(&v.Booking, txnID, paidAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByUser returns a buyer's bookings with ticket details.
func (r *BookingRepo) ListByUser(ctx context.Context, userEmail string) ([]model.BookingView, error) {
	return r.listViews(ctx, "b.user_email = ?", userEmail)
}

// ListByVendor returns bookings placed on a vendor's tickets.
func (r *BookingRepo) ListByVendor(ctx context.Context, vendorEmail string) ([]model.BookingView, error) {
	return r.listViews(ctx, "b.vendor_email = ?", vendorEmail)
}

// Decide moves a pending booking owned by vendorEmail to accepted or
// rejected.  Anything other than a pending booking is ErrConflict, which
// is what keeps a paid booking from being accepted or rejected.
func (r *BookingRepo) Decide(ctx context.Context, id uint64, vendorEmail, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND vendor_email = ? AND status = 'pending'",
		status, id, vendorEmail)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.VendorEmail != vendorEmail {
		return ErrForbidden
	}
	return ErrConflict
}

// MarkPaidTx stamps a booking paid inside tx.  A booking already paid is
// left untouched and ErrAlreadyPaid is returned.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, providerTxnID string, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'paid', payment_status = 'paid', transaction_id = ?, paid_at = ?
		 WHERE id = ? AND status <> 'paid'`,
		providerTxnID, paidAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyPaid
	}
	return nil
}
