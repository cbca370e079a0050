package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email is already taken")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrInvalidToken     = errors.New("verification token is invalid or expired")
	ErrInvalidLogin     = errors.New("invalid email or password")
	ErrUserNotActive    = errors.New("user account is not active")
	ErrResendTooSoon    = errors.New("verification email was sent recently, try again later")
	ErrPermissionDenied = errors.New("permission denied")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

type UserStatus string

const (
	PendingVerification UserStatus = "pending_verification"
	Active              UserStatus = "active"
	Suspended           UserStatus = "suspended"
	Deactivated         UserStatus = "deactivated"
)

type User struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Username              string     `db:"username" json:"username"`
	Email                 string     `db:"email" json:"email"`
	HashedPassword        string     `db:"password_hash" json:"-"`
	FullName              string     `db:"full_name" json:"full_name"`
	Role                  Role       `db:"role" json:"role"`
	Status                UserStatus `db:"status" json:"status"`
	VerificationToken     string     `db:"verification_token" json:"-"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at" json:"verification_expires_at"`
	EmailVerifiedAt       *time.Time `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	// ListActiveIDs returns ids of active users, all roles when role is empty.
	ListActiveIDs(ctx context.Context, role Role) ([]uuid.UUID, error)
}

type PasswordManager interface {
	Hash(plainTextPassword string) (string, error)
	Check(hashedPassword, plainTextPassword string) (bool, error)
}

type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// CooldownStore grants a key at most once per ttl.
type CooldownStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
