package identity

import "time"

// User represents a registered account holder.
type User struct {
	ID           string
	Email        string
	Phone        string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials is the register/login request structure.
type Credentials struct {
	Email    string
	Phone    string
	Password string
}
