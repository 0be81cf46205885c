package engine

import (
	"time"
)

// =============================================================================
// WEEK ENDING - Temporal alignment boundary for labor data
// =============================================================================

// WeekEnding is the date that closes a payroll week. All labor actuals and
// headcount forecasts are keyed by it, which is what lets the projector
// line the two up and exclude forecast weeks that already have actuals.
//
// Stored date-only in UTC. The zero value is "no week".
type WeekEnding struct {
	Time time.Time
}

// DefaultWeekEndDay is the payroll convention: weeks close on Saturday.
const DefaultWeekEndDay = time.Saturday

// NewWeekEnding builds a week-ending date directly.
func NewWeekEnding(year int, month time.Month, day int) WeekEnding {
	return WeekEnding{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// WeekEndingOf normalizes an arbitrary timestamp to the week-ending date of
// the week containing it, for the given closing weekday.
func WeekEndingOf(t time.Time, endDay time.Weekday) WeekEnding {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(endDay) - int(d.Weekday()) + 7) % 7
	return WeekEnding{Time: d.AddDate(0, 0, offset)}
}

// Comparison
func (w WeekEnding) Before(other WeekEnding) bool { return w.Time.Before(other.Time) }
func (w WeekEnding) After(other WeekEnding) bool  { return w.Time.After(other.Time) }
func (w WeekEnding) Equal(other WeekEnding) bool  { return w.Time.Equal(other.Time) }
func (w WeekEnding) IsZero() bool                 { return w.Time.IsZero() }

// AddWeeks shifts the boundary by n weeks (negative for past).
func (w WeekEnding) AddWeeks(n int) WeekEnding {
	return WeekEnding{Time: w.Time.AddDate(0, 0, 7*n)}
}

func (w WeekEnding) String() string { return w.Time.Format("2006-01-02") }

// ParseWeekEnding parses a YYYY-MM-DD date.
func ParseWeekEnding(s string) (WeekEnding, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return WeekEnding{}, err
	}
	return WeekEnding{Time: t}, nil
}

// LatestWeek returns the most recent week-ending across the records, or the
// zero value when there are none. Used to anchor the trailing rate window.
func LatestWeek(records []LaborActualRecord) WeekEnding {
	var latest WeekEnding
	for _, rec := range records {
		if rec.WeekEnding.After(latest) {
			latest = rec.WeekEnding
		}
	}
	return latest
}
