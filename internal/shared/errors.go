package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockNotAcquired indicates the per-user lock could not be taken in time.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
