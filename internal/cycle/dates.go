package cycle

import (
	"math"
	"time"
)

// CycleDate is a calendar date stored as separate day/month/year fields,
// matching the wire format. The year is unconstrained; day and month are
// validated at the edge.
type CycleDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Provided reports whether all three fields are set.
func (d CycleDate) Provided() bool {
	return d.Day != 0 && d.Month != 0 && d.Year != 0
}

// Empty reports whether no field is set.
func (d CycleDate) Empty() bool {
	return d.Day == 0 && d.Month == 0 && d.Year == 0
}

// Time returns the date at midnight UTC on the proleptic Gregorian calendar.
// No timezone component ever enters gap arithmetic.
func (d CycleDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// GapDays is the number of days from the predecessor's end date to the new
// cycle's start date, rounded up. It can be negative when entries overlap;
// the value is recorded as computed, never clamped.
func GapDays(end, start CycleDate) int {
	diff := start.Time().Sub(end.Time())
	return int(math.Ceil(diff.Hours() / 24))
}

// PrevMonth returns the month immediately before (month, year).
func PrevMonth(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}

// EndSort names the ordering used to pick the most recent ended cycle.
// The two orderings are intentionally distinct: the latest-cycle lookup
// never uses the end day as a tiebreak, while gap computation does.
type EndSort int

const (
	// EndSortFull orders by end year, end month, then end day, descending.
	EndSortFull EndSort = iota
	// EndSortYearMonth orders by end year and end month only, descending.
	EndSortYearMonth
)
