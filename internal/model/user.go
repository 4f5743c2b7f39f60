package model

import "time"

// Roles assignable to a user account. The role is embedded in session
// tokens and checked by the authorization middleware.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Phone               string     `json:"phone,omitempty"`
	Address             string     `json:"address,omitempty"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	IsVerified          bool       `json:"is_verified"`
	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`
	VerificationToken   *string    `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UserRef is the subset of user fields embedded in responses that
// reference a user (task assignee, comment author, project member).
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
