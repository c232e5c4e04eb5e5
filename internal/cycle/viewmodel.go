package cycle

import "time"

// cycleView is the wire shape of a cycle with numeric month fields.
type cycleView struct {
	ID         string `json:"id"`
	StartDay   int    `json:"startDay"`
	StartMonth int    `json:"startMonth"`
	StartYear  int    `json:"startYear"`
	EndDay     *int   `json:"endDay"`
	EndMonth   *int   `json:"endMonth"`
	EndYear    *int   `json:"endYear"`
	AfterDays  int    `json:"afterDays"`
}

// recordView is the listing shape: month numbers are rendered as English
// month names for display. Nothing in the engine depends on this mapping.
type recordView struct {
	ID         string  `json:"id"`
	StartDay   int     `json:"startDay"`
	StartMonth string  `json:"startMonth"`
	StartYear  int     `json:"startYear"`
	EndDay     *int    `json:"endDay"`
	EndMonth   *string `json:"endMonth"`
	EndYear    *int    `json:"endYear"`
	AfterDays  int     `json:"afterDays"`
}

func newCycleView(c Cycle) cycleView {
	view := cycleView{
		ID:         c.ID.String(),
		StartDay:   c.Start.Day,
		StartMonth: c.Start.Month,
		StartYear:  c.Start.Year,
		AfterDays:  c.AfterDays,
	}
	if c.End != nil {
		day, month, year := c.End.Day, c.End.Month, c.End.Year
		view.EndDay, view.EndMonth, view.EndYear = &day, &month, &year
	}
	return view
}

func newRecordView(c Cycle) recordView {
	view := recordView{
		ID:         c.ID.String(),
		StartDay:   c.Start.Day,
		StartMonth: monthName(c.Start.Month),
		StartYear:  c.Start.Year,
		AfterDays:  c.AfterDays,
	}
	if c.End != nil {
		day, year := c.End.Day, c.End.Year
		month := monthName(c.End.Month)
		view.EndDay, view.EndMonth, view.EndYear = &day, &month, &year
	}
	return view
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

func newCycleViews(cycles []Cycle) []cycleView {
	views := make([]cycleView, len(cycles))
	for i, c := range cycles {
		views[i] = newCycleView(c)
	}
	return views
}

func newRecordViews(cycles []Cycle) []recordView {
	views := make([]recordView, len(cycles))
	for i, c := range cycles {
		views[i] = newRecordView(c)
	}
	return views
}
