package cycle

import "errors"

var (
	// ErrInvalidUserID indicates the caller identifier is not a valid UUID.
	ErrInvalidUserID = errors.New("cycle: invalid user ID")
	// ErrMissingStartDate indicates start day, month or year was absent.
	ErrMissingStartDate = errors.New("cycle: startDay, startMonth, and startYear are required")
	// ErrMissingEndDate indicates end day, month or year was absent.
	ErrMissingEndDate = errors.New("cycle: endDay, endMonth, and endYear are required")
	// ErrPartialEndDate indicates end fields were neither all set nor all empty.
	ErrPartialEndDate = errors.New("cycle: end date must be fully set or fully empty")
	// ErrOpenCycleExists indicates a start while another cycle is still open.
	ErrOpenCycleExists = errors.New("cycle: open cycle already exists")
	// ErrNoOpenCycle indicates an end with no active cycle.
	ErrNoOpenCycle = errors.New("cycle: no active cycle found to end")
	// ErrNoRecords indicates a record listing matched nothing. Listing treats
	// an empty result as not-found, not as an empty list.
	ErrNoRecords = errors.New("cycle: no records found for the given criteria")
	// ErrEmptyBatch indicates an import with no entries.
	ErrEmptyBatch = errors.New("cycle: batch requires at least one entry")
	// ErrStorageTimeout indicates a storage call exceeded its bound.
	ErrStorageTimeout = errors.New("cycle: storage timeout")
)
