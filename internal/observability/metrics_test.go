package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/periods/internal/period"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	metrics.Jobs().AddViolations("negative_period", 1)

	rr = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), `periods_integrity_violations_total{reason="negative_period"} 1`) {
		t.Fatalf("expected job collectors on the shared registry, got: %s", rr.Body.String())
	}
}

func TestObserveRelationCountsByName(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveRelation(period.Meets)
	metrics.ObserveRelation(period.Meets)
	metrics.ObserveRelation(period.PrecededBy)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, `periods_relations_evaluated_total{relation="meets"} 2`) {
		t.Fatalf("expected meets counter, got: %s", body)
	}
	if !strings.Contains(body, `periods_relations_evaluated_total{relation="precededBy"} 1`) {
		t.Fatalf("expected precededBy counter, got: %s", body)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveRelation(period.Meets)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "periods_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "periods_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}
