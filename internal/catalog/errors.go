package catalog

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/periods/internal/platform/httpx"
)

var (
	// ErrNotFound indicates no period is registered under the code.
	ErrNotFound = fmt.Errorf("catalog: period not found: %w", httpx.ErrNotFound)
	// ErrDuplicateCode indicates the code is already registered.
	ErrDuplicateCode = fmt.Errorf("catalog: period code already registered: %w", httpx.ErrDuplicate)
	// ErrInvalidInput wraps payload validation failures.
	ErrInvalidInput = fmt.Errorf("catalog: invalid input: %w", httpx.ErrValidation)
	// ErrOffsetDrift indicates a stored zone no longer resolves to the stored offset.
	ErrOffsetDrift = errors.New("catalog: stored offset drifted from zone rules")
)

// OffsetDriftError reports a row whose zone now resolves its start to a different offset
// than the one recorded at registration, typically after a tz database update.
type OffsetDriftError struct {
	Code     string
	Zone     string
	Stored   int
	Resolved int
}

func (e *OffsetDriftError) Error() string {
	return fmt.Sprintf("catalog: period %s in %s stored with offset %ds, zone now resolves %ds", e.Code, e.Zone, e.Stored, e.Resolved)
}

// Is lets errors.Is match ErrOffsetDrift.
func (e *OffsetDriftError) Is(target error) bool {
	return target == ErrOffsetDrift
}

// FieldErrors maps payload fields to validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return fmt.Sprintf("%d invalid field(s)", len(f))
}

func (f FieldErrors) Unwrap() error {
	return ErrInvalidInput
}
