package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Role
// ──────────────────────────────────────────────────────────────────────────────

// Role controls which privileged ledger operations an account may invoke.
type Role string

const (
	RoleHolder      Role = "holder"      // standard participant: owns and reorganises positions
	RoleAdmin       Role = "admin"       // superuser: grants/revokes roles, manages targets
	RoleMinter      Role = "minter"      // may mint positions against funding targets
	RoleDistributor Role = "distributor" // may distribute settlement proceeds
)

// IsValid returns true if r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleHolder, RoleAdmin, RoleMinter, RoleDistributor:
		return true
	}
	return false
}

// IsAdmin returns true only for the superuser role.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Allows reports whether an account holding r may act as required. The admin
// role passes every check.
func (r Role) Allows(required Role) bool {
	return r == required || r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is the domain entity for registered accounts. The account id doubles
// as the wallet identity for positions and reward-token balances.
type User struct {
	ID           uuid.UUID `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"` // never serialised
	Role         Role      `json:"role"       db:"role"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile returns a user view safe to expose via API (no password hash).
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
