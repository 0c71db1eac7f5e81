package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// TransactionRepo reads and writes settled payments.
type TransactionRepo struct{ db *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = "id, provider_txn_id, booking_id, user_email, vendor_email, amount, quantity, ticket_title, paid_at"

// ExistsByProviderTxnID is the fast-path idempotency check.  It is only an
// optimisation; the unique index enforced by InsertTx is authoritative.
func (r *TransactionRepo) ExistsByProviderTxnID(ctx context.Context, providerTxnID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM transactions WHERE provider_txn_id = ? LIMIT 1", providerTxnID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// InsertTx records a transaction inside tx.  A second insert for the same
// provider transaction id fails with ErrDuplicate.
func (r *TransactionRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (provider_txn_id, booking_id, user_email, vendor_email, amount, quantity, ticket_title, paid_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		t.ProviderTxnID, t.BookingID, t.UserEmail, t.VendorEmail, t.Amount, t.Quantity, t.TicketTitle, t.PaidAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TransactionRepo) list(ctx context.Context, column, email string) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE "+column+" = ? ORDER BY paid_at DESC, id DESC", email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.ProviderTxnID, &t.BookingID, &t.UserEmail, &t.VendorEmail,
			&t.Amount, &t.Quantity, &t.TicketTitle, &t.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListByVendor returns every transaction credited to a vendor.
func (r *TransactionRepo) ListByVendor(ctx context.Context, vendorEmail string) ([]model.Transaction, error) {
	return r.list(ctx, "vendor_email", vendorEmail)
}

// ListByUser returns a buyer's payment history.
func (r *TransactionRepo) ListByUser(ctx context.Context, userEmail string) ([]model.Transaction, error) {
	return r.list(ctx, "user_email", userEmail)
}
