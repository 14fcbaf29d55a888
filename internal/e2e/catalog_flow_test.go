package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/periods/internal/app"
	"github.com/odyssey-erp/periods/internal/catalog"
	cataloghttp "github.com/odyssey-erp/periods/internal/catalog/http"
	"github.com/odyssey-erp/periods/internal/observability"
	"github.com/odyssey-erp/periods/jobs"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]catalog.Record
}

func (m *memoryRepository) Insert(ctx context.Context, rec catalog.Record) (catalog.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Code]; ok {
		return catalog.Record{}, catalog.ErrDuplicateCode
	}
	rec.CreatedAt = time.Now().UTC()
	m.records[rec.Code] = rec
	return rec, nil
}

func (m *memoryRepository) Get(ctx context.Context, code string) (catalog.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[code]
	if !ok {
		return catalog.Record{}, catalog.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepository) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Record, error) {
	all := m.sorted()
	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (m *memoryRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[code]; !ok {
		return catalog.ErrNotFound
	}
	delete(m.records, code)
	return nil
}

func (m *memoryRepository) Window(ctx context.Context, from, to time.Time) ([]catalog.Record, error) {
	var out []catalog.Record
	for _, rec := range m.sorted() {
		if !rec.EndAt.Before(from) && !rec.StartAt.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryRepository) Scan(ctx context.Context, batchSize int, fn func(catalog.Record) error) error {
	for _, rec := range m.sorted() {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRepository) sorted() []catalog.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out
}

type harness struct {
	server  *httptest.Server
	repo    *memoryRepository
	metrics *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &memoryRepository{records: map[string]catalog.Record{}}
	metrics := observability.NewMetrics()
	service := catalog.NewService(repo, catalog.NewCache(client, time.Minute), metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         &app.Config{AppEnv: "test", RateLimitPerMinute: 10000},
		CatalogHandler: cataloghttp.NewHandler(logger, service),
		JobHandler:     jobs.NewHandler(nil, nil, logger),
		Metrics:        metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &harness{server: srv, repo: repo, metrics: metrics}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCatalogLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"2024-h1","label":"First half","start":"2024-01-01T00:00:00","end":"2024-07-01T00:00:00","zone":"Asia/Jakarta"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"2024-h2","start":"2024-07-01T00:00:00+07:00","end":"2025-01-01T00:00:00+07:00"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"2024-q2","start":"2024-04-01T00:00:00","end":"2024-07-01T00:00:00","zone":"Asia/Jakarta"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"2024-h1","start":"2024-01-01T00:00:00Z","end":"2024-02-01T00:00:00Z"}`)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Duplicate", body["title"])

	status, body = h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"bst-crossing","start":"2024-03-01T00:00:00","end":"2024-04-01T00:00:00","zone":"Europe/London"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body["detail"], "offset")

	status, body = h.do(t, http.MethodGet, "/api/v1/periods/2024-h1", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Asia/Jakarta", body["zone"])
	p := body["period"].(map[string]any)
	require.Equal(t, "+07:00", p["offset"])
	require.Equal(t, "P6M", p["iso"])
	require.EqualValues(t, 182, p["number_of_days"])

	status, body = h.do(t, http.MethodGet, "/api/v1/periods/2024-h1/relation/2024-h2", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "meets", body["relation"])
	require.Equal(t, "metBy", body["converse"])

	status, body = h.do(t, http.MethodGet, "/api/v1/periods/2024-h1/related?relation=finishedBy", "")
	require.Equal(t, http.StatusOK, status)
	related := body["periods"].([]any)
	require.Len(t, related, 1)
	require.Equal(t, "2024-q2", related[0].(map[string]any)["code"])

	status, body = h.do(t, http.MethodGet, "/api/v1/periods?limit=2", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["periods"].([]any), 2)

	status, _ = h.do(t, http.MethodDelete, "/api/v1/periods/2024-q2", "")
	require.Equal(t, http.StatusNoContent, status)
	status, _ = h.do(t, http.MethodGet, "/api/v1/periods/2024-q2", "")
	require.Equal(t, http.StatusNotFound, status)

	resp, err := h.server.Client().Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `periods_relations_evaluated_total{relation="meets"} 1`)
	require.Contains(t, string(raw), `periods_http_requests_total{code="201"`)
}

func TestIntegrityScanOverStoredCatalog(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(t, http.MethodPost, "/api/v1/periods", `{"code":"kathmandu-day","start":"2024-05-01T00:00:00","end":"2024-05-02T00:00:00","zone":"Asia/Kathmandu"}`)
	require.Equal(t, http.StatusCreated, status)

	// Simulate a tz rule change by rewriting the stored offset.
	rec := h.repo.records["kathmandu-day"]
	rec.OffsetSeconds = 5*3600 + 30*60
	h.repo.records["kathmandu-day"] = rec

	job := jobs.NewIntegrityScanJob(h.repo, slog.New(slog.NewTextHandler(io.Discard, nil)), h.metrics.Jobs())
	report, err := job.Run(context.Background(), jobs.IntegrityScanPayload{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Scanned)
	require.Equal(t, 1, report.Violations[jobs.ReasonOffsetDrift])
}
