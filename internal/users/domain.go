package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account as shown to its owner. The credential hash is
// never loaded here.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	IsCycle   bool
	CreatedAt time.Time
}
