package period

import (
	"time"

	"github.com/govalues/decimal"
	isoperiod "github.com/rickb777/period"
)

const secondsPerDay = 24 * 60 * 60

// Duration is the calendar-aware breakdown of a period. Fields are non-negative and
// each is below the range of the next larger unit, except Years.
type Duration struct {
	Years        int `json:"years"`
	Months       int `json:"months"`
	Days         int `json:"days"`
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Microseconds int `json:"microseconds"`
	// TotalDays is the number of whole 24-hour days, ignoring the month breakdown.
	TotalDays int `json:"total_days"`
}

// IsZero reports whether every component is zero.
func (d Duration) IsZero() bool {
	return d == Duration{}
}

// ISO returns the breakdown as an ISO-8601 duration value. Microseconds become a
// fraction of the seconds field.
func (d Duration) ISO() isoperiod.Period {
	seconds := decimal.MustNew(int64(d.Seconds)*1_000_000+int64(d.Microseconds), 6)
	return isoperiod.MustNewDecimal(
		decimal.MustNew(int64(d.Years), 0),
		decimal.MustNew(int64(d.Months), 0),
		decimal.MustNew(0, 0),
		decimal.MustNew(int64(d.Days), 0),
		decimal.MustNew(int64(d.Hours), 0),
		decimal.MustNew(int64(d.Minutes), 0),
		seconds,
	)
}

// String renders the ISO-8601 form, e.g. P1Y2M3DT4H5M6.000007S.
func (d Duration) String() string {
	return d.ISO().String()
}

// between counts the whole months from start, then splits the remainder into clock
// units. A month is only complete once the end reaches the start's day of month and
// time of day, so Jan 31 to Feb 28 is 28 days. Both bounds are read in the shared
// fixed offset.
func between(start, end time.Time, offset int) Duration {
	zone := time.FixedZone("", offset)
	s, e := start.In(zone), end.In(zone)

	months := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if months > 0 && dayClockBefore(e, s) {
		months--
	}
	anchor := addMonths(s, months)

	rest := e.Sub(anchor)
	d := Duration{
		Years:     months / 12,
		Months:    months % 12,
		TotalDays: wholeDays(start, end),
	}
	d.Days = int(rest / (24 * time.Hour))
	rest -= time.Duration(d.Days) * 24 * time.Hour
	d.Hours = int(rest / time.Hour)
	rest -= time.Duration(d.Hours) * time.Hour
	d.Minutes = int(rest / time.Minute)
	rest -= time.Duration(d.Minutes) * time.Minute
	d.Seconds = int(rest / time.Second)
	rest -= time.Duration(d.Seconds) * time.Second
	d.Microseconds = int(rest / time.Microsecond)
	return d
}

// addMonths moves t forward by n calendar months, clamping to the last day of the
// target month instead of overflowing into the next one.
func addMonths(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := t.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// dayClockBefore reports whether a falls earlier in its month than b, comparing the
// day of month first and then the time of day.
func dayClockBefore(a, b time.Time) bool {
	if a.Day() != b.Day() {
		return a.Day() < b.Day()
	}
	ah, am, as := a.Clock()
	bh, bm, bs := b.Clock()
	if ah != bh {
		return ah < bh
	}
	if am != bm {
		return am < bm
	}
	if as != bs {
		return as < bs
	}
	return a.Nanosecond() < b.Nanosecond()
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
