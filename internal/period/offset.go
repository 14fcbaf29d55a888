package period

import (
	"fmt"
	"time"
)

// OffsetSeconds returns the UTC offset in effect at t, in seconds east of UTC.
func OffsetSeconds(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// ResolvedOffset renders the offset in effect at t as ±HH:MM.
//
// The offset is resolved for the instant itself, so two values in the same named
// zone on either side of a daylight saving transition render differently.
func ResolvedOffset(t time.Time) string {
	return formatOffset(OffsetSeconds(t))
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// zoneName labels the location of t for diagnostics; anonymous fixed zones fall back to the offset.
func zoneName(t time.Time) string {
	if name := t.Location().String(); name != "" {
		return name
	}
	return ResolvedOffset(t)
}
