// Package period models half-open time intervals anchored to absolute instants and
// evaluates Allen's interval relations between them.
package period

import (
	"encoding/json"
	"fmt"
	"time"
)

// Period is an immutable half-open interval [start, end) whose two instants resolve to
// the same UTC offset. The zero value is the empty period at the zero time.
type Period struct {
	start    time.Time
	end      time.Time
	duration Duration
	days     int
}

// New validates start and end and returns the period between them.
//
// Construction fails with an *OffsetMismatchError when the instants resolve to different
// UTC offsets and with a *NegativePeriodError when start is after end. Equal instants
// yield a zero-length period.
func New(start, end time.Time) (Period, error) {
	startOffset, endOffset := OffsetSeconds(start), OffsetSeconds(end)
	if startOffset != endOffset {
		return Period{}, &OffsetMismatchError{
			StartOffset: formatOffset(startOffset),
			EndOffset:   formatOffset(endOffset),
			StartZone:   zoneName(start),
			EndZone:     zoneName(end),
		}
	}
	if start.After(end) {
		return Period{}, &NegativePeriodError{Start: start, End: end}
	}
	return Period{
		start:    start,
		end:      end,
		duration: between(start, end, startOffset),
		days:     wholeDays(start, end),
	}, nil
}

// NewUTC converts both instants to UTC before validating them. It is the explicit
// opt-in for periods whose endpoints were recorded under different offsets; New never
// normalises.
func NewUTC(start, end time.Time) (Period, error) {
	return New(start.UTC(), end.UTC())
}

// MustNew is like New but panics on invalid input. Intended for static tables and tests.
func MustNew(start, end time.Time) Period {
	p, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return p
}

// Start returns the inclusive lower bound exactly as supplied.
func (p Period) Start() time.Time {
	return p.start
}

// End returns the exclusive upper bound exactly as supplied.
func (p Period) End() time.Time {
	return p.end
}

// Duration returns the calendar breakdown between start and end.
func (p Period) Duration() Duration {
	return p.duration
}

// NumberOfDays returns the number of whole 24-hour days spanned, truncated.
func (p Period) NumberOfDays() int {
	return p.days
}

// Offset returns the UTC offset shared by both bounds, rendered as ±HH:MM.
func (p Period) Offset() string {
	return ResolvedOffset(p.start)
}

// IsEmpty reports whether the period has zero length.
func (p Period) IsEmpty() bool {
	return p.start.Equal(p.end)
}

// Includes reports whether t falls inside [start, end).
func (p Period) Includes(t time.Time) bool {
	return !t.Before(p.start) && t.Before(p.end)
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.start.Format(time.RFC3339Nano), p.end.Format(time.RFC3339Nano))
}

type periodJSON struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarshalJSON encodes the bounds as RFC3339 instants with their offsets.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodJSON{Start: p.start, End: p.end})
}

// UnmarshalJSON decodes and re-validates the bounds.
func (p *Period) UnmarshalJSON(data []byte) error {
	var raw periodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func wholeDays(start, end time.Time) int {
	seconds := end.Unix() - start.Unix()
	if end.Nanosecond() < start.Nanosecond() {
		seconds--
	}
	return int(seconds / secondsPerDay)
}
