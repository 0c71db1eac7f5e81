package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,photo_url,role,is_fraud,created_at,last_login_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PhotoURL, &u.Role, &u.IsFraud, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// Upsert records a login.  A first-time email is inserted with the user
// role; a known email only has last_login_at refreshed, so name, role
// and fraud flag are never overwritten.  created reports which happened.
func (r *UserRepo) Upsert(ctx context.Context, email, name, photoURL string, now time.Time) (u model.User, created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, name, photo_url, role, is_fraud, created_at, last_login_at)
		 VALUES (?,?,?,?,0,?,?)
		 ON DUPLICATE KEY UPDATE last_login_at = VALUES(last_login_at)`,
		email, name, photoURL, model.RoleUser, now, now)
	if err != nil {
		return model.User{}, false, err
	}
	// MySQL reports 1 affected row for an insert and 2 for an update.
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, false, err
	}
	u, err = r.GetByEmail(ctx, email)
	return u, n == 1, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// RoleByEmail returns only the role; it runs on every authorized request.
func (r *UserRepo) RoleByEmail(ctx context.Context, email string) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email))).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole changes a user's role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// no change and no row look the same to MySQL; tell them apart
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkFraud flags a vendor and hides every ticket they listed, in one
// transaction.  Only vendors can be flagged.
func (r *UserRepo) MarkFraud(ctx context.Context, id uint64) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	u, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if u.Role != model.RoleVendor {
		return model.User{}, ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "UPDATE users SET is_fraud=1 WHERE id=?", id); err != nil {
		return model.User{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tickets SET hidden=1, advertised=0 WHERE vendor_email=?", u.Email); err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	committed = true
	u.IsFraud = true
	return u, nil
}
