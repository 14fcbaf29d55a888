package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	batch  int
	window time.Duration
	err    error
}

func (s *stubEnqueuer) EnqueueIntegrityScan(ctx context.Context, batchSize int, window time.Duration) (*asynq.TaskInfo, error) {
	s.batch, s.window = batchSize, window
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer Enqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, enqueuer, quietLogger()).MountRoutes(r)
	return r
}

func TestTriggerIntegrityScanAccepted(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	rr := httptest.NewRecorder()
	newJobsRouter(enqueuer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/integrity-scan?batch_size=250", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"task_id":"task-1","queue":"default"}`, rr.Body.String())
	require.Equal(t, 250, enqueuer.batch)
	require.Equal(t, 10*time.Minute, enqueuer.window)
}

func TestTriggerIntegrityScanErrors(t *testing.T) {
	cases := []struct {
		name     string
		enqueuer Enqueuer
		status   int
	}{
		{"duplicate", &stubEnqueuer{err: asynq.ErrDuplicateTask}, http.StatusConflict},
		{"redis down", &stubEnqueuer{err: errors.New("dial tcp: connection refused")}, http.StatusServiceUnavailable},
		{"no client", nil, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newJobsRouter(tc.enqueuer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/integrity-scan", nil))
			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

			var problem map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
			require.EqualValues(t, tc.status, problem["status"])
		})
	}
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rr.Body.String())
}
