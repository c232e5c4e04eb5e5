package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account able to authenticate.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	// IsCycle mirrors whether the user currently has an open cycle.
	IsCycle   bool
	CreatedAt time.Time
}
