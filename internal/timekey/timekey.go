package timekey

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Deriver produces canonical period keys for a fixed time zone, so that
// every component buckets an event under the same day/week/month/year
// regardless of the server's local zone.
type Deriver struct {
	loc *time.Location
}

type Keys struct {
	Day   string
	Week  string
	Month string
	Year  string
}

func NewDeriver(loc *time.Location) *Deriver {
	if loc == nil {
		loc = time.UTC
	}
	return &Deriver{loc: loc}
}

func (d *Deriver) At(t time.Time) Keys {
	t = t.In(d.loc)
	return Keys{
		Day:   d.DayKey(t),
		Week:  d.WeekKey(t),
		Month: d.MonthKey(t),
		Year:  d.YearKey(t),
	}
}

func (d *Deriver) DayKey(t time.Time) string {
	return t.In(d.loc).Format(dayLayout)
}

func (d *Deriver) WeekKey(t time.Time) string {
	year, week := t.In(d.loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (d *Deriver) MonthKey(t time.Time) string {
	return t.In(d.loc).Format("2006-01")
}

func (d *Deriver) YearKey(t time.Time) string {
	return t.In(d.loc).Format("2006")
}

// ParseDay is the inverse of DayKey. Used for streak computation over the
// retained day-bucket window.
func (d *Deriver) ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, key, d.loc)
}

// LastNDays returns the day keys for the n days ending at t, oldest first.
func (d *Deriver) LastNDays(n int, t time.Time) []string {
	t = t.In(d.loc)
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, d.DayKey(t.AddDate(0, 0, -i)))
	}
	return keys
}

// LastNWeeks returns the ISO week keys for the n weeks ending at t, oldest
// first.
func (d *Deriver) LastNWeeks(n int, t time.Time) []string {
	t = t.In(d.loc)
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, d.WeekKey(t.AddDate(0, 0, -7*i)))
	}
	return keys
}

// LastNMonths returns the month keys for the n calendar months ending at t,
// oldest first. Anchored to the first of the month so that "minus one
// month" never skips short months.
func (d *Deriver) LastNMonths(n int, t time.Time) []string {
	t = t.In(d.loc)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, d.loc)
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, d.MonthKey(first.AddDate(0, -i, 0)))
	}
	return keys
}

// MonthKeyOrCurrent validates a caller-supplied month key, substituting the
// current month for anything malformed.
func (d *Deriver) MonthKeyOrCurrent(key string, now time.Time) string {
	if _, err := time.ParseInLocation("2006-01", key, d.loc); err != nil {
		return d.MonthKey(now)
	}
	return key
}
