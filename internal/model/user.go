package model

import "time"

// Roles a user can hold.  A user holds exactly one role at a time.
const (
    RoleUser   = "user"
    RoleVendor = "vendor"
    RoleAdmin  = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
    return r == RoleUser || r == RoleVendor || r == RoleAdmin
}

// User represents a row of the `users` table.  Identity is owned by the
// external identity provider; the email from a verified token is the
// natural key and rows are created on first login.
//
// Fields:
//  ID          – primary key identifier.
//  Email       – unique email address.
//  Name        – display name supplied at login.
//  PhotoURL    – avatar supplied at login.
//  Role        – user | vendor | admin.
//  IsFraud     – set by an admin on a vendor; never cleared automatically.
//  CreatedAt   – first login.
//  LastLoginAt – most recent login.
type User struct {
    ID          uint64    `json:"id"`          // users.id
    Email       string    `json:"email"`       // users.email
    Name        string    `json:"name"`        // users.name
    PhotoURL    string    `json:"photoUrl"`    // users.photo_url
    Role        string    `json:"role"`        // users.role
    IsFraud     bool      `json:"isFraud"`     // users.is_fraud
    CreatedAt   time.Time `json:"createdAt"`   // users.created_at
    LastLoginAt time.Time `json:"lastLoginAt"` // users.last_login_at
}
