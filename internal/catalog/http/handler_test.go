package cataloghttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/periods/internal/catalog"
	"github.com/odyssey-erp/periods/internal/period"
	"github.com/odyssey-erp/periods/internal/platform/httpx"
)

type stubService struct {
	entries     map[string]catalog.Entry
	registerErr error
	lastFilter  catalog.ListFilter
}

func newStubService() *stubService {
	mk := func(code string, start, end time.Time) catalog.Entry {
		return catalog.Entry{ID: uuid.New(), Code: code, Period: period.MustNew(start, end)}
	}
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	return &stubService{entries: map[string]catalog.Entry{
		"jan-w1": mk("jan-w1", day(1), day(8)),
		"jan-w2": mk("jan-w2", day(8), day(15)),
	}}
}

func (s *stubService) Register(ctx context.Context, input catalog.RegisterInput) (catalog.Entry, error) {
	if s.registerErr != nil {
		return catalog.Entry{}, s.registerErr
	}
	p, err := period.Parse(input.Start, input.End)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
	}
	e := catalog.Entry{ID: uuid.New(), Code: input.Code, Label: input.Label, Period: p}
	s.entries[e.Code] = e
	return e, nil
}

func (s *stubService) Get(ctx context.Context, code string) (catalog.Entry, error) {
	e, ok := s.entries[code]
	if !ok {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return e, nil
}

func (s *stubService) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Entry, error) {
	s.lastFilter = filter
	return []catalog.Entry{s.entries["jan-w1"], s.entries["jan-w2"]}, nil
}

func (s *stubService) Delete(ctx context.Context, code string) error {
	if _, ok := s.entries[code]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.entries, code)
	return nil
}

func (s *stubService) Relate(ctx context.Context, codeA, codeB string) (catalog.Comparison, error) {
	a, err := s.Get(ctx, codeA)
	if err != nil {
		return catalog.Comparison{}, err
	}
	b, err := s.Get(ctx, codeB)
	if err != nil {
		return catalog.Comparison{}, err
	}
	rel := period.Relate(a.Period, b.Period)
	return catalog.Comparison{A: a, B: b, Relation: rel, Converse: rel.Converse()}, nil
}

func (s *stubService) Related(ctx context.Context, code string, rel period.Relation) ([]catalog.Entry, error) {
	subject, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	var out []catalog.Entry
	for _, e := range s.entries {
		if e.Code != code && period.Holds(rel, subject.Period, e.Period) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubService) Evaluate(a, b period.Period) (period.Relation, map[period.Relation]bool) {
	return period.Relate(a, b), period.Evaluate(a, b)
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem
}

func TestEvaluateReportsRelationAndPredicates(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods/evaluate", `{
		"a": {"start": "2024-01-01T00:00:00Z", "end": "2024-01-02T00:00:00Z"},
		"b": {"start": "2024-01-02T00:00:00Z", "end": "2024-01-03T00:00:00Z"}
	}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		A struct {
			ISO          string `json:"iso"`
			NumberOfDays int    `json:"number_of_days"`
			Offset       string `json:"offset"`
		} `json:"a"`
		Relation   string          `json:"relation"`
		Converse   string          `json:"converse"`
		Predicates map[string]bool `json:"predicates"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "meets", body.Relation)
	require.Equal(t, "metBy", body.Converse)
	require.Equal(t, "P1D", body.A.ISO)
	require.Equal(t, 1, body.A.NumberOfDays)
	require.Equal(t, "+00:00", body.A.Offset)
	require.Len(t, body.Predicates, 13)
	require.True(t, body.Predicates["meets"])
	require.False(t, body.Predicates["overlaps"])
}

func TestEvaluateRejectsOffsetMismatchAcrossDST(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods/evaluate", `{
		"a": {"start": "2024-03-30T12:00:00", "end": "2024-04-02T12:00:00", "zone": "Europe/London"},
		"b": {"start": "2024-01-02T00:00:00Z", "end": "2024-01-03T00:00:00Z"}
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	problem := decodeProblem(t, rr)
	require.Contains(t, problem.Detail, "period a")
}

func TestEvaluateRejectsNegativePeriod(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods/evaluate", `{
		"a": {"start": "2024-01-02T00:00:00Z", "end": "2024-01-01T00:00:00Z"},
		"b": {"start": "2024-01-02T00:00:00Z", "end": "2024-01-03T00:00:00Z"}
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestEvaluateValidatesPayload(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods/evaluate", `{
		"a": {"start": "2024-01-01T00:00:00Z"},
		"b": {"start": "2024-01-02T00:00:00Z", "end": "2024-01-03T00:00:00Z", "zone": "Nowhere/Special"}
	}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decodeProblem(t, rr)
	require.Equal(t, "required", problem.Errors["a.end"])
	require.Equal(t, "timezone", problem.Errors["b.zone"])
}

func TestEvaluateCoarsensToGranule(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods/evaluate", `{
		"a": {"start": "2024-01-01T10:00:00.000001Z", "end": "2024-01-01T11:00:00.000001Z"},
		"b": {"start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z"},
		"granule": "second"
	}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"relation":"equals"`)
}

func TestOffsetResolvesZoneRules(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodGet, "/offsets?at=2024-07-01T12:00:00&zone=America/St_Johns", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body offsetResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "-02:30", body.Offset)
	require.Equal(t, -9000, body.OffsetSeconds)
	require.Equal(t, "America/St_Johns", body.Zone)

	rr = do(t, router, http.MethodGet, "/offsets?zone=Mars/Base", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "required", decodeProblem(t, rr).Errors["at"])
}

func TestRegisterCreatesEntry(t *testing.T) {
	svc := newStubService()
	router := newTestRouter(t, svc)
	rr := do(t, router, http.MethodPost, "/periods", `{"code":"q1-2024","start":"2024-01-01T00:00:00+07:00","end":"2024-04-01T00:00:00+07:00"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "/api/v1/periods/q1-2024", rr.Header().Get("Location"))

	var body entryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "q1-2024", body.Code)
	require.Equal(t, "+07:00", body.Period.Offset)
	require.Equal(t, "P3M", body.Period.ISO)
	require.Equal(t, 91, body.Period.NumberOfDays)
	require.Contains(t, svc.entries, "q1-2024")
}

func TestRegisterMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"field errors", catalog.FieldErrors{"code": "periodcode"}, http.StatusBadRequest},
		{"duplicate", catalog.ErrDuplicateCode, http.StatusConflict},
		{"unprocessable", fmt.Errorf("%w: %w", httpx.ErrUnprocessable, period.ErrNegativePeriod), http.StatusUnprocessableEntity},
		{"storage", fmt.Errorf("catalog: insert: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newStubService()
			svc.registerErr = tc.err
			router := newTestRouter(t, svc)
			rr := do(t, router, http.MethodPost, "/periods", `{"code":"x","start":"a","end":"b"}`)
			require.Equal(t, tc.status, rr.Code)
			problem := decodeProblem(t, rr)
			if tc.status == http.StatusBadRequest {
				require.Equal(t, "periodcode", problem.Errors["code"])
			}
		})
	}
}

func TestRegisterRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodPost, "/periods", `{"code":"x","start":"a","end":"b","owner":"me"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListPassesPagination(t *testing.T) {
	svc := newStubService()
	router := newTestRouter(t, svc)
	rr := do(t, router, http.MethodGet, "/periods?limit=10&offset=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, catalog.ListFilter{Limit: 10, Offset: 5}, svc.lastFilter)

	var body struct {
		Periods []entryResponse `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Periods, 2)

	rr = do(t, router, http.MethodGet, "/periods?limit=ten", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "min", decodeProblem(t, rr).Errors["limit"])
}

func TestGetAndDelete(t *testing.T) {
	router := newTestRouter(t, newStubService())

	rr := do(t, router, http.MethodGet, "/periods/jan-w1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"iso":"P7D"`)

	rr = do(t, router, http.MethodDelete, "/periods/jan-w1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/periods/jan-w1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	decodeProblem(t, rr)
}

func TestRelationBetweenEntries(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodGet, "/periods/jan-w1/relation/jan-w2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Relation period.Relation `json:"relation"`
		Converse period.Relation `json:"converse"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, period.Meets, body.Relation)
	require.Equal(t, period.MetBy, body.Converse)

	rr = do(t, router, http.MethodGet, "/periods/jan-w1/relation/missing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRelatedFiltersByRelation(t *testing.T) {
	router := newTestRouter(t, newStubService())
	rr := do(t, router, http.MethodGet, "/periods/jan-w2/related?relation=met_by", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Relation string          `json:"relation"`
		Periods  []entryResponse `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "metBy", body.Relation)
	require.Len(t, body.Periods, 1)
	require.Equal(t, "jan-w1", body.Periods[0].Code)

	rr = do(t, router, http.MethodGet, "/periods/jan-w2/related?relation=adjacent", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "oneof", decodeProblem(t, rr).Errors["relation"])
}
