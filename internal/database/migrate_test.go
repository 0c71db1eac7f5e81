package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const deleteRuleQuery = "SELECT DELETE_RULE FROM information_schema.REFERENTIAL_CONSTRAINTS"

func TestMigrate_RewritesCascadingBookingKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(deleteRuleQuery).WillReturnRows(sqlmock.NewRows([]string{"DELETE_RULE"}).AddRow("CASCADE"))
	mock.ExpectExec("ALTER TABLE bookings DROP FOREIGN KEY fk_bookings_ticket").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE bookings ADD CONSTRAINT fk_bookings_ticket").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrate_RestrictedKeyIsLeftAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(deleteRuleQuery).WillReturnRows(sqlmock.NewRows([]string{"DELETE_RULE"}).AddRow("RESTRICT"))

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
