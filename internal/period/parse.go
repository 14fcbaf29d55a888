package period

import (
	"errors"
	"fmt"
	"time"
)

// WallClockLayout is the layout of zoned wall-clock bounds, e.g. "2017-01-01T10:00:00".
const WallClockLayout = "2006-01-02T15:04:05.999999999"

// Bounds is a raw start and end pair. Without a Zone both values are RFC3339 instants
// carrying explicit offsets; with one they are wall-clock values in that IANA zone.
type Bounds struct {
	Start string
	End   string
	Zone  string
}

// Parse builds a period from two RFC3339 instants carrying explicit offsets,
// e.g. "2017-01-01T10:00:00+00:00".
func Parse(start, end string) (Period, error) {
	s, e, err := parsePair(start, end, func(v string) (time.Time, error) {
		return time.Parse(time.RFC3339Nano, v)
	})
	if err != nil {
		return Period{}, err
	}
	return New(s, e)
}

// ParseIn builds a period from two wall-clock values in the named IANA zone. Each bound
// takes the offset the zone has in effect at that instant.
func ParseIn(layout, start, end, zone string) (Period, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return Period{}, err
	}
	s, e, err := parsePair(start, end, func(v string) (time.Time, error) {
		return time.ParseInLocation(layout, v, loc)
	})
	if err != nil {
		return Period{}, err
	}
	return New(s, e)
}

// ParseBounds parses b and builds the period with both bounds truncated to g. Parse
// failures are returned as is; construction failures satisfy IsConstraint.
func ParseBounds(b Bounds, g Granule) (Period, error) {
	parse := func(v string) (time.Time, error) {
		return time.Parse(time.RFC3339Nano, v)
	}
	if b.Zone != "" {
		loc, err := LoadZone(b.Zone)
		if err != nil {
			return Period{}, err
		}
		parse = func(v string) (time.Time, error) {
			return time.ParseInLocation(WallClockLayout, v, loc)
		}
	}
	s, e, err := parsePair(b.Start, b.End, parse)
	if err != nil {
		return Period{}, err
	}
	return Coarsen(s, e, g)
}

// IsConstraint reports whether err is a construction failure: an offset mismatch or a
// negative period.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrOffsetMismatch) || errors.Is(err, ErrNegativePeriod)
}

func parsePair(start, end string, parse func(string) (time.Time, error)) (time.Time, time.Time, error) {
	s, err := parse(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period: parse start: %w", err)
	}
	e, err := parse(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period: parse end: %w", err)
	}
	return s, e, nil
}

// LoadZone resolves an IANA zone name.
func LoadZone(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("period: load zone %q: %w", zone, err)
	}
	return loc, nil
}
