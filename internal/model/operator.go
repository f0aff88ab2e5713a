package model

import "time"

// Operator is an administrative account for the store's HTTP surface.
// Operators are not chat identities; they authenticate with a password and
// manage users, quotes, and phrase tables through the admin API.
type Operator struct {
	ID           string    `json:"id"        db:"id"`
	Login        string    `json:"login"     db:"login"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
