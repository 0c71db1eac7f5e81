package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func newSettlementMock(t *testing.T) (*SettlementRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettlementRepo(db), mock
}

func sampleTxn() *model.Transaction {
	return &model.Transaction{
		ProviderTxnID: "pi_1",
		BookingID:     11,
		UserEmail:     "buyer@example.com",
		VendorEmail:   "vendor@example.com",
		Amount:        decimal.RequireFromString("40.00"),
		Quantity:      2,
		TicketTitle:   "Dhaka to Sylhet",
		PaidAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestApply_CommitsAllThreeWrites(t *testing.T) {
	repo, mock := newSettlementMock(t)
	txn := sampleTxn()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("pi_1", uint64(11), "buyer@example.com", "vendor@example.com", sqlmock.AnyArg(), 2, "Dhaka to Sylhet", txn.PaidAt).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE bookings SET status = 'paid'").
		WithArgs("pi_1", txn.PaidAt, uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET quantity = quantity - \? WHERE id = \? AND quantity >= \?`).
		WithArgs(2, uint64(3), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Apply(context.Background(), txn, 3); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if txn.ID != 7 {
		t.Fatalf("transaction id not set, got %d", txn.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApply_DuplicateRollsBackBeforeTouchingBooking(t *testing.T) {
	repo, mock := newSettlementMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'pi_1' for key 'uq_transactions_provider_txn'"})
	mock.ExpectRollback()

	err := repo.Apply(context.Background(), sampleTxn(), 3)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApply_AlreadyPaidRollsBack(t *testing.T) {
	repo, mock := newSettlementMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Apply(context.Background(), sampleTxn(), 3)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApply_OversellRollsBack(t *testing.T) {
	repo, mock := newSettlementMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Apply(context.Background(), sampleTxn(), 3)
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("expected ErrInsufficientQuantity, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApply_DriverErrorIsReturned(t *testing.T) {
	repo, mock := newSettlementMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(boom)
	mock.ExpectRollback()

	if err := repo.Apply(context.Background(), sampleTxn(), 3); !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestTransactionExists(t *testing.T) {
	repo, mock := newSettlementMock(t)
	mock.ExpectQuery("SELECT 1 FROM transactions WHERE provider_txn_id").WithArgs("pi_1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM transactions WHERE provider_txn_id").WithArgs("pi_2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	ok, err := repo.TransactionExists(context.Background(), "pi_1")
	if err != nil || !ok {
		t.Fatalf("expected pi_1 to exist, got %v %v", ok, err)
	}
	ok, err = repo.TransactionExists(context.Background(), "pi_2")
	if err != nil || ok {
		t.Fatalf("expected pi_2 to be absent, got %v %v", ok, err)
	}
}

func TestBookingWithTicket_NotFound(t *testing.T) {
	repo, mock := newSettlementMock(t)
	mock.ExpectQuery("FROM bookings b JOIN tickets t").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := repo.BookingWithTicket(context.Background(), 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
