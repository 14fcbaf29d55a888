package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/periods/internal/period"
	"github.com/odyssey-erp/periods/internal/platform/httpx"
)

// WallClockLayout is the layout of zoned Start/End values in RegisterInput.
const WallClockLayout = period.WallClockLayout

// relateTimeout bounds a shared Relate lookup once it no longer follows a caller's context.
const relateTimeout = 10 * time.Second

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// RelationRecorder observes evaluated relations.
type RelationRecorder interface {
	ObserveRelation(rel period.Relation)
}

// Service coordinates catalog persistence, caching and relation queries.
type Service struct {
	repo     Repository
	cache    *Cache
	validate *validator.Validate
	recorder RelationRecorder
	group    singleflight.Group
	newID    func() uuid.UUID
}

// NewService constructs a Service. cache and recorder may be nil.
func NewService(repo Repository, cache *Cache, recorder RelationRecorder) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("periodcode", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validate,
		recorder: recorder,
		newID:    uuid.New,
	}
}

// Register validates input, builds the period and stores it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Entry, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Label = strings.TrimSpace(input.Label)
	if err := s.validate.Struct(input); err != nil {
		return Entry{}, fieldErrors(err)
	}

	p, err := buildPeriod(input)
	if err != nil {
		return Entry{}, err
	}

	rec, err := s.repo.Insert(ctx, recordFromEntry(Entry{
		ID:     s.newID(),
		Code:   input.Code,
		Label:  input.Label,
		Zone:   input.Zone,
		Period: p,
	}))
	if err != nil {
		return Entry{}, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		return Entry{}, fmt.Errorf("catalog: bump cache: %w", err)
	}
	return Entry{ID: rec.ID, Code: rec.Code, Label: rec.Label, Zone: rec.Zone, Period: p, CreatedAt: rec.CreatedAt}, nil
}

// Get loads an entry by code, going through the cache.
func (s *Service) Get(ctx context.Context, code string) (Entry, error) {
	key, err := s.cache.BuildKey(ctx, "periods", "catalog", "entry", code)
	if err != nil {
		return Entry{}, err
	}
	var rec Record
	if err := s.cache.FetchJSON(ctx, key, &rec, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx, code)
	}); err != nil {
		return Entry{}, err
	}
	return Rehydrate(rec)
}

// List returns a page of entries ordered by start.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return rehydrateAll(records)
}

// Delete removes the entry and invalidates cached lookups.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	return s.cache.Bump(ctx)
}

// Relate reports the relation between the periods registered under codeA and codeB.
// Concurrent identical lookups share one evaluation. The shared lookup runs detached
// from any single caller, and each caller stops waiting when its own ctx ends.
func (s *Service) Relate(ctx context.Context, codeA, codeB string) (Comparison, error) {
	resultChan := s.group.DoChan(codeA+"\x00"+codeB, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), relateTimeout)
		defer cancel()
		a, err := s.Get(shared, codeA)
		if err != nil {
			return nil, err
		}
		b, err := s.Get(shared, codeB)
		if err != nil {
			return nil, err
		}
		return s.compare(a, b), nil
	})
	select {
	case <-ctx.Done():
		return Comparison{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Comparison{}, res.Err
		}
		return res.Val.(Comparison), nil
	}
}

// Related returns every entry e, other than code itself, for which rel holds between the
// period under code and e.
func (s *Service) Related(ctx context.Context, code string, rel period.Relation) ([]Entry, error) {
	if !rel.Valid() {
		return nil, fmt.Errorf("%w: unknown relation", ErrInvalidInput)
	}
	subject, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	from, to := candidateWindow(subject.Period, rel)
	records, err := s.repo.Window(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, rec := range records {
		if rec.Code == subject.Code {
			continue
		}
		entry, err := Rehydrate(rec)
		if err != nil {
			// Rows that fail validation are reported by the integrity scan.
			continue
		}
		if period.Holds(rel, subject.Period, entry.Period) {
			out = append(out, entry)
		}
	}
	if s.recorder != nil {
		s.recorder.ObserveRelation(rel)
	}
	return out, nil
}

// Evaluate relates two ad-hoc periods without touching storage.
func (s *Service) Evaluate(a, b period.Period) (period.Relation, map[period.Relation]bool) {
	rel := period.Relate(a, b)
	if s.recorder != nil {
		s.recorder.ObserveRelation(rel)
	}
	return rel, period.Evaluate(a, b)
}

func (s *Service) compare(a, b Entry) Comparison {
	rel := period.Relate(a.Period, b.Period)
	if s.recorder != nil {
		s.recorder.ObserveRelation(rel)
	}
	return Comparison{A: a, B: b, Relation: rel, Converse: rel.Converse()}
}

var (
	minInstant = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxInstant = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// candidateWindow bounds the rows that can possibly satisfy rel against p.
func candidateWindow(p period.Period, rel period.Relation) (time.Time, time.Time) {
	switch rel {
	case period.Precedes:
		return p.End(), maxInstant
	case period.PrecededBy:
		return minInstant, p.Start()
	default:
		return p.Start(), p.End()
	}
}

// buildPeriod parses the input at microsecond precision, the resolution of the stored
// timestamptz columns, so a registered period reads back unchanged.
func buildPeriod(input RegisterInput) (period.Period, error) {
	p, err := period.ParseBounds(period.Bounds{Start: input.Start, End: input.End, Zone: input.Zone}, period.Microsecond)
	if err != nil {
		if period.IsConstraint(err) {
			return period.Period{}, fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
		}
		return period.Period{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return p, nil
}

func rehydrateAll(records []Record) ([]Entry, error) {
	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		entry, err := Rehydrate(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return fields
}
