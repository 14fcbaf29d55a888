package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/periods/internal/period"
)

// Entry is a named period stored in the catalog.
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	Code      string        `json:"code"`
	Label     string        `json:"label,omitempty"`
	Zone      string        `json:"zone,omitempty"`
	Period    period.Period `json:"period"`
	CreatedAt time.Time     `json:"created_at"`
}

// Record is the persisted form of an Entry. Instants are stored as UTC timestamps with the
// offset that was in effect when the period was registered.
type Record struct {
	ID            uuid.UUID
	Code          string
	Label         string
	Zone          string
	StartAt       time.Time
	EndAt         time.Time
	OffsetSeconds int
	CreatedAt     time.Time
}

// RegisterInput carries the fields needed to register a period.
//
// Without a zone, Start and End must be RFC3339 instants with explicit offsets. With a
// zone they are wall clocks (2006-01-02T15:04:05) interpreted in that zone.
type RegisterInput struct {
	Code  string `json:"code" validate:"required,max=64,periodcode"`
	Label string `json:"label" validate:"max=200"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Zone  string `json:"zone" validate:"omitempty,timezone"`
}

// ListFilter paginates catalog listings.
type ListFilter struct {
	Limit  int
	Offset int
}

// Comparison is the result of relating two catalog entries.
type Comparison struct {
	A        Entry           `json:"a"`
	B        Entry           `json:"b"`
	Relation period.Relation `json:"relation"`
	Converse period.Relation `json:"converse"`
}

func recordFromEntry(e Entry) Record {
	return Record{
		ID:            e.ID,
		Code:          e.Code,
		Label:         e.Label,
		Zone:          e.Zone,
		StartAt:       e.Period.Start().UTC(),
		EndAt:         e.Period.End().UTC(),
		OffsetSeconds: period.OffsetSeconds(e.Period.Start()),
		CreatedAt:     e.CreatedAt,
	}
}

// Rehydrate rebuilds the entry from its stored form, restoring the original offset or
// zone and re-running period validation.
func Rehydrate(rec Record) (Entry, error) {
	loc := time.FixedZone("", rec.OffsetSeconds)
	if rec.Zone != "" {
		zone, err := period.LoadZone(rec.Zone)
		if err != nil {
			return Entry{}, err
		}
		loc = zone
	}
	start, end := rec.StartAt.In(loc), rec.EndAt.In(loc)
	if got := period.OffsetSeconds(start); got != rec.OffsetSeconds {
		return Entry{}, &OffsetDriftError{Code: rec.Code, Zone: rec.Zone, Stored: rec.OffsetSeconds, Resolved: got}
	}
	p, err := period.New(start, end)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        rec.ID,
		Code:      rec.Code,
		Label:     rec.Label,
		Zone:      rec.Zone,
		Period:    p,
		CreatedAt: rec.CreatedAt,
	}, nil
}
