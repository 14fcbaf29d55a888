package period

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned (wrapped) by period construction.
var (
	ErrOffsetMismatch = errors.New("period: utc offset mismatch")
	ErrNegativePeriod = errors.New("period: start after end")
)

// OffsetMismatchError reports start and end instants that resolve to different UTC offsets.
type OffsetMismatchError struct {
	StartOffset string
	EndOffset   string
	StartZone   string
	EndZone     string
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("period: start offset %s (%s) and end offset %s (%s) differ",
		e.StartOffset, e.StartZone, e.EndOffset, e.EndZone)
}

// Is lets errors.Is match ErrOffsetMismatch.
func (e *OffsetMismatchError) Is(target error) bool {
	return target == ErrOffsetMismatch
}

// NegativePeriodError reports a start instant strictly after the end instant.
type NegativePeriodError struct {
	Start time.Time
	End   time.Time
}

func (e *NegativePeriodError) Error() string {
	return fmt.Sprintf("period: start %q cannot be after end %q",
		e.Start.Format(time.RFC3339Nano), e.End.Format(time.RFC3339Nano))
}

// Is lets errors.Is match ErrNegativePeriod.
func (e *NegativePeriodError) Is(target error) bool {
	return target == ErrNegativePeriod
}
