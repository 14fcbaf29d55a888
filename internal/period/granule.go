package period

import (
	"fmt"
	"strings"
	"time"
)

// Granule is the precision of a timeline. Relations are sensitive to it: two periods that
// are disjoint at microsecond precision can meet once truncated to hours.
type Granule int

const (
	Microsecond Granule = iota
	Second
	Minute
	Hour
	Day
)

var granuleNames = []string{"microsecond", "second", "minute", "hour", "day"}

func (g Granule) String() string {
	if g < Microsecond || g > Day {
		return fmt.Sprintf("granule(%d)", int(g))
	}
	return granuleNames[g]
}

// ParseGranule resolves a granule by name.
func ParseGranule(name string) (Granule, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range granuleNames {
		if candidate == name {
			return Granule(i), nil
		}
	}
	return 0, fmt.Errorf("period: unknown granule %q", name)
}

// Truncate drops every wall-clock field of t finer than g, keeping t's location.
func (g Granule) Truncate(t time.Time) time.Time {
	switch g {
	case Second:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	case Minute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		ns := t.Nanosecond() / int(time.Microsecond) * int(time.Microsecond)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), ns, t.Location())
	}
}

// Coarsen builds the period whose bounds are start and end truncated to g. The result is
// validated like any other construction.
func Coarsen(start, end time.Time, g Granule) (Period, error) {
	return New(g.Truncate(start), g.Truncate(end))
}
