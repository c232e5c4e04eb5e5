package cycle

import (
	"time"

	"github.com/google/uuid"
)

// Cycle is one recorded start-to-end interval for a user. A cycle is open
// while End is nil; the end fields are always all set or all absent.
type Cycle struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Start  CycleDate
	End    *CycleDate
	// AfterDays is the day gap from the resolved predecessor's end date to
	// this cycle's start, fixed at creation time and never recomputed.
	AfterDays int
	CreatedAt time.Time
}

// Open reports whether the cycle has not been ended yet.
func (c Cycle) Open() bool {
	return c.End == nil
}

// RecordFilter narrows ListRecords to exact matches on the start date.
// A zero field means no filtering on that field.
type RecordFilter struct {
	Day   int
	Month int
	Year  int
}

// BatchEntry is one historically entered cycle in a batch import. End may be
// left zero for an entry whose closing date was never recorded.
type BatchEntry struct {
	Start CycleDate
	End   CycleDate
}
