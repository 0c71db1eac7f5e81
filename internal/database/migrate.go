package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// schema is idempotent; migrate can be re-run against a live database.
// uq_transactions_provider_txn is the settlement idempotency anchor and
// chk_tickets_quantity backs the conditional decrement in the repository.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	email         VARCHAR(255) NOT NULL,
	name          VARCHAR(255) NOT NULL DEFAULT '',
	photo_url     VARCHAR(1024) NOT NULL DEFAULT '',
	role          ENUM('user','vendor','admin') NOT NULL DEFAULT 'user',
	is_fraud      TINYINT(1) NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	last_login_at DATETIME NOT NULL,
	UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB;

CREATE TABLE IF NOT EXISTS tickets (
	id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	vendor_email        VARCHAR(255) NOT NULL,
	vendor_name         VARCHAR(255) NOT NULL DEFAULT '',
	title               VARCHAR(255) NOT NULL,
	origin              VARCHAR(255) NOT NULL,
	destination         VARCHAR(255) NOT NULL,
	transport_type      VARCHAR(32)  NOT NULL,
	price               DECIMAL(12,2) NOT NULL,
	quantity            INT NOT NULL,
	departure_at        DATETIME NOT NULL,
	perks               VARCHAR(1024) NOT NULL DEFAULT '',
	image_url           VARCHAR(1024) NOT NULL DEFAULT '',
	advertised          TINYINT(1) NOT NULL DEFAULT 0,
	verification_status ENUM('pending','approved','rejected') NOT NULL DEFAULT 'pending',
	hidden              TINYINT(1) NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL,
	CONSTRAINT chk_tickets_quantity CHECK (quantity >= 0),
	KEY idx_tickets_vendor (vendor_email),
	KEY idx_tickets_status (verification_status, hidden)
) ENGINE=InnoDB;

CREATE TABLE IF NOT EXISTS bookings (
	id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	ticket_id      BIGINT UNSIGNED NOT NULL,
	user_email     VARCHAR(255) NOT NULL,
	vendor_email   VARCHAR(255) NOT NULL,
	quantity       INT NOT NULL,
	total_price    DECIMAL(12,2) NOT NULL,
	status         ENUM('pending','accepted','rejected','paid') NOT NULL DEFAULT 'pending',
	payment_status ENUM('unpaid','paid') NOT NULL DEFAULT 'unpaid',
	transaction_id VARCHAR(255) NULL,
	created_at     DATETIME NOT NULL,
	paid_at        DATETIME NULL,
	KEY idx_bookings_user (user_email),
	KEY idx_bookings_vendor (vendor_email),
	CONSTRAINT fk_bookings_ticket FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE RESTRICT
) ENGINE=InnoDB;

CREATE TABLE IF NOT EXISTS transactions (
	id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	provider_txn_id VARCHAR(255) NOT NULL,
	booking_id      BIGINT UNSIGNED NOT NULL,
	user_email      VARCHAR(255) NOT NULL,
	vendor_email    VARCHAR(255) NOT NULL,
	amount          DECIMAL(12,2) NOT NULL,
	quantity        INT NOT NULL,
	ticket_title    VARCHAR(255) NOT NULL,
	paid_at         DATETIME NOT NULL,
	UNIQUE KEY uq_transactions_provider_txn (provider_txn_id),
	KEY idx_transactions_vendor (vendor_email),
	KEY idx_transactions_user (user_email)
) ENGINE=InnoDB;
`

// Migrate creates the schema.  The connection must allow multi statements,
// which Open enables.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return restrictTicketDelete(ctx, db)
}

// restrictTicketDelete rewrites fk_bookings_ticket on databases created
// while it still cascaded, so deleting a ticket can never take bookings
// (and the paid history behind them) with it.
func restrictTicketDelete(ctx context.Context, db *sql.DB) error {
	var rule string
	err := db.QueryRowContext(ctx,
		`SELECT DELETE_RULE FROM information_schema.REFERENTIAL_CONSTRAINTS
		 WHERE CONSTRAINT_SCHEMA = DATABASE() AND CONSTRAINT_NAME = 'fk_bookings_ticket'`).Scan(&rule)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && rule == "RESTRICT") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect fk_bookings_ticket: %w", err)
	}
	if _, err := db.ExecContext(ctx, "ALTER TABLE bookings DROP FOREIGN KEY fk_bookings_ticket"); err != nil {
		return fmt.Errorf("drop fk_bookings_ticket: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`ALTER TABLE bookings ADD CONSTRAINT fk_bookings_ticket
		 FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE RESTRICT`); err != nil {
		return fmt.Errorf("add fk_bookings_ticket: %w", err)
	}
	return nil
}
