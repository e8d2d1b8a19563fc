package models

// User roles. Admins manage the fleet; end users place and track orders.
const (
	RoleAdmin   = "admin"
	RoleEndUser = "enduser"
)

// User represents an end user in the system.
// It maps to the `users` table in SQLite.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Role     string `db:"role" json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
