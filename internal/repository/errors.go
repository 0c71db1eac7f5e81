// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// settlement service and the handlers to distinguish between failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be applied because of
// the row's current state: a booking that is no longer pending, an
// advertisement slot cap that is already reached, a rejected ticket
// being edited. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert hits a unique index.  For
// transactions it means the provider transaction was already recorded.
var ErrDuplicate = errors.New("duplicate")

// ErrInsufficientQuantity is returned when a decrement would take a
// ticket's quantity below zero.
var ErrInsufficientQuantity = errors.New("insufficient quantity")

// ErrAlreadyPaid is returned when settlement finds the booking paid.
var ErrAlreadyPaid = errors.New("booking already paid")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isReferenced reports a delete refused by a RESTRICT foreign key.
func isReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlRowIsReferenced
}
