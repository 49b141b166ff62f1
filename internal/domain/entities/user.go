package entities

import (
	"time"
)

// UserRole is the marketplace role of an account
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"

	// RoleSystem is never stored; background jobs act with it.
	RoleSystem UserRole = "system"
)

// Location is an optional geographic position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// User represents an account in the marketplace
type User struct {
	ID        string     `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	Name      string     `json:"name" db:"name"`
	Role      UserRole   `json:"role" db:"role"`
	AvatarURL string     `json:"avatar_url,omitempty" db:"avatar_url"`
	Address   string     `json:"address,omitempty" db:"address"`
	Location  *Location  `json:"location,omitempty"`
	Verified  bool       `json:"verified" db:"verified"`
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Account is a user together with its role profile, if any
type Account struct {
	User     *User     `json:"user"`
	Provider *Provider `json:"provider,omitempty"`
}
