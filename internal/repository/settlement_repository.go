package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// SettlementRepo applies the write side of a settlement atomically.  It is
// the only code path that sets a booking paid, decrements inventory or
// inserts a transaction.
type SettlementRepo struct {
	db           *sql.DB
	bookings     *BookingRepo
	tickets      *TicketRepo
	transactions *TransactionRepo
}

func NewSettlementRepo(db *sql.DB) *SettlementRepo {
	return &SettlementRepo{
		db:           db,
		bookings:     NewBookingRepo(db),
		tickets:      NewTicketRepo(db),
		transactions: NewTransactionRepo(db),
	}
}

// TransactionExists reports whether providerTxnID has been settled.
func (r *SettlementRepo) TransactionExists(ctx context.Context, providerTxnID string) (bool, error) {
	return r.transactions.ExistsByProviderTxnID(ctx, providerTxnID)
}

// BookingWithTicket loads the booking being settled and its ticket.
func (r *SettlementRepo) BookingWithTicket(ctx context.Context, bookingID uint64) (model.Booking, model.Ticket, error) {
	return r.bookings.GetWithTicket(ctx, bookingID)
}

// Apply runs, in one transaction and in this order: insert the
// transaction row, mark the booking paid, decrement the ticket.  The
// insert goes first so that a racing duplicate fails on the unique index
// before it has touched the booking or the inventory.
//
// Errors: ErrDuplicate (already settled), ErrAlreadyPaid,
// ErrInsufficientQuantity.  On any error nothing is committed.
func (r *SettlementRepo) Apply(ctx context.Context, txn *model.Transaction, ticketID uint64) error {
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

	if err := r.transactions.InsertTx(ctx, tx, txn); err != nil {
		return err
	}
	if err := r.bookings.MarkPaidTx(ctx, tx, txn.BookingID, txn.ProviderTxnID, txn.PaidAt); err != nil {
		return err
	}
	if err := r.tickets.DecrementTx(ctx, tx, ticketID, txn.Quantity); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
