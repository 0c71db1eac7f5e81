package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// TicketRepo encapsulates all database queries related to ticket listings.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const ticketColumns = `id, vendor_email, vendor_name, title, origin, destination, transport_type,
	price, quantity, departure_at, perks, image_url, advertised, verification_status, hidden, created_at`

func scanTicket(row interface{ Scan(...any) error }) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.VendorEmail, &t.VendorName, &t.Title, &t.Origin, &t.Destination, &t.TransportType,
		&t.Price, &t.Quantity, &t.DepartureAt, &t.Perks, &t.ImageURL, &t.Advertised, &t.VerificationStatus,
		&t.Hidden, &t.CreatedAt)
	return t, err
}

func collectTickets(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a new listing.  Status is always pending and the
// advertised/hidden flags start cleared regardless of the input.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	t.VerificationStatus = model.TicketPending
	t.Advertised = false
	t.Hidden = false
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (vendor_email, vendor_name, title, origin, destination, transport_type,
			price, quantity, departure_at, perks, image_url, advertised, verification_status, hidden, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,0,?,0,?)`,
		t.VendorEmail, t.VendorName, t.Title, t.Origin, t.Destination, t.TransportType,
		t.Price, t.Quantity, t.DepartureAt, t.Perks, t.ImageURL, t.VerificationStatus, t.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID fetches a ticket regardless of owner or status.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// ListByVendor returns the vendor's own tickets, newest first.
func (r *TicketRepo) ListByVendor(ctx context.Context, vendorEmail string) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE vendor_email = ? ORDER BY created_at DESC, id DESC", vendorEmail)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// ListAll returns every ticket for moderation.
func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ticketColumns+" FROM tickets ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// ListAdvertised returns approved, visible tickets on the home page.
func (r *TicketRepo) ListAdvertised(ctx context.Context) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+` FROM tickets
		 WHERE advertised = 1 AND verification_status = 'approved' AND hidden = 0
		 ORDER BY created_at DESC LIMIT ?`, model.MaxAdvertised)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// CountByVendor counts every ticket the vendor has listed.
func (r *TicketRepo) CountByVendor(ctx context.Context, vendorEmail string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets WHERE vendor_email = ?", vendorEmail).Scan(&n)
	return n, err
}

// UpdateByVendor loads a ticket owned by vendorEmail under a row lock,
// lets apply edit it and writes the editable columns back.
// Rejected tickets are frozen and return ErrConflict.
func (r *TicketRepo) UpdateByVendor(ctx context.Context, id uint64, vendorEmail string, apply func(*model.Ticket)) (model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Ticket{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := scanTicket(tx.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrNotFound
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if t.VendorEmail != vendorEmail {
		return model.Ticket{}, ErrForbidden
	}
	if t.VerificationStatus == model.TicketRejected {
		return model.Ticket{}, ErrConflict
	}
	apply(&t)
	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET title=?, origin=?, destination=?, transport_type=?, price=?, quantity=?,
			departure_at=?, perks=?, image_url=? WHERE id=?`,
		t.Title, t.Origin, t.Destination, t.TransportType, t.Price, t.Quantity,
		t.DepartureAt, t.Perks, t.ImageURL, t.ID); err != nil {
		return model.Ticket{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Ticket{}, err
	}
	committed = true
	return t, nil
}

// DeleteByVendor hard-deletes a ticket owned by vendorEmail.  A ticket
// that already has bookings is kept and ErrConflict is returned.
func (r *TicketRepo) DeleteByVendor(ctx context.Context, id uint64, vendorEmail string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ? AND vendor_email = ?", id, vendorEmail)
	if isReferenced(err) {
		return fmt.Errorf("%w: ticket %d has bookings", ErrConflict, id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		t, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.VendorEmail != vendorEmail {
			return ErrForbidden
		}
	}
	return nil
}

// SetVerification moves a ticket to approved or rejected.  Rejecting also
// withdraws any advertisement.
func (r *TicketRepo) SetVerification(ctx context.Context, id uint64, status string) error {
	q := "UPDATE tickets SET verification_status = ? WHERE id = ?"
	if status == model.TicketRejected {
		q = "UPDATE tickets SET verification_status = ?, advertised = 0 WHERE id = ?"
	}
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetAdvertised toggles the advertisement flag.  Enabling requires the
// ticket to be approved and visible, and fewer than MaxAdvertised tickets
// to be advertised already; the count is taken under a lock so two admins
// cannot both claim the last slot.
func (r *TicketRepo) SetAdvertised(ctx context.Context, id uint64, on bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := scanTicket(tx.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if on && !t.Advertised {
		if t.VerificationStatus != model.TicketApproved || t.Hidden {
			return ErrConflict
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tickets WHERE advertised = 1 FOR UPDATE").Scan(&n); err != nil {
			return err
		}
		if n >= model.MaxAdvertised {
			return ErrConflict
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tickets SET advertised = ? WHERE id = ?", on, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DecrementTx takes qty seats off a ticket inside tx.  The WHERE clause
// is the floor: when fewer than qty seats remain nothing is updated and
// ErrInsufficientQuantity is returned.
func (r *TicketRepo) DecrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE tickets SET quantity = quantity - ? WHERE id = ? AND quantity >= ?", qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientQuantity
	}
	return nil
}
