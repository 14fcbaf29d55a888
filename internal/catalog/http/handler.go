// Package cataloghttp exposes the period catalog and ad-hoc relation evaluation over JSON.
package cataloghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/periods/internal/catalog"
	"github.com/odyssey-erp/periods/internal/period"
	"github.com/odyssey-erp/periods/internal/platform/httpx"
)

const requestTimeout = 2 * time.Second

// Service is the catalog behaviour required by the handler.
type Service interface {
	Register(ctx context.Context, input catalog.RegisterInput) (catalog.Entry, error)
	Get(ctx context.Context, code string) (catalog.Entry, error)
	List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Entry, error)
	Delete(ctx context.Context, code string) error
	Relate(ctx context.Context, codeA, codeB string) (catalog.Comparison, error)
	Related(ctx context.Context, code string, rel period.Relation) ([]catalog.Entry, error)
	Evaluate(a, b period.Period) (period.Relation, map[period.Relation]bool)
}

// Handler serves the /periods and /offsets endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewHandler builds a catalog handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the catalog endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/offsets", h.handleOffset)
	r.Route("/periods", func(r chi.Router) {
		r.Post("/evaluate", h.handleEvaluate)
		r.Post("/", h.handleRegister)
		r.Get("/", h.handleList)
		r.Get("/{code}", h.handleGet)
		r.Delete("/{code}", h.handleDelete)
		r.Get("/{code}/relation/{other}", h.handleRelation)
		r.Get("/{code}/related", h.handleRelated)
	})
}

type boundsRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Zone  string `json:"zone" validate:"omitempty,timezone"`
}

type evaluateRequest struct {
	A       boundsRequest `json:"a" validate:"required"`
	B       boundsRequest `json:"b" validate:"required"`
	Granule string        `json:"granule" validate:"omitempty,oneof=microsecond second minute hour day"`
}

type periodResponse struct {
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Offset       string          `json:"offset"`
	Duration     period.Duration `json:"duration"`
	ISO          string          `json:"iso"`
	NumberOfDays int             `json:"number_of_days"`
}

type evaluateResponse struct {
	A          periodResponse           `json:"a"`
	B          periodResponse           `json:"b"`
	Relation   period.Relation          `json:"relation"`
	Converse   period.Relation          `json:"converse"`
	Predicates map[period.Relation]bool `json:"predicates"`
}

type entryResponse struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Label     string         `json:"label,omitempty"`
	Zone      string         `json:"zone,omitempty"`
	Period    periodResponse `json:"period"`
	CreatedAt time.Time      `json:"created_at"`
}

type relationResponse struct {
	A        entryResponse   `json:"a"`
	B        entryResponse   `json:"b"`
	Relation period.Relation `json:"relation"`
	Converse period.Relation `json:"converse"`
}

type offsetResponse struct {
	At            time.Time `json:"at"`
	Zone          string    `json:"zone"`
	Offset        string    `json:"offset"`
	OffsetSeconds int       `json:"offset_seconds"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidation(w, err)
		return
	}

	a, err := buildBounds(req.A, req.Granule)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("period a: %w", err))
		return
	}
	b, err := buildBounds(req.B, req.Granule)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("period b: %w", err))
		return
	}

	rel, predicates := h.service.Evaluate(a, b)
	httpx.JSON(w, http.StatusOK, evaluateResponse{
		A:          toPeriodResponse(a),
		B:          toPeriodResponse(b),
		Relation:   rel,
		Converse:   rel.Converse(),
		Predicates: predicates,
	})
}

func (h *Handler) handleOffset(w http.ResponseWriter, r *http.Request) {
	at := strings.TrimSpace(r.URL.Query().Get("at"))
	zone := strings.TrimSpace(r.URL.Query().Get("zone"))
	fields := map[string]string{}
	if at == "" {
		fields["at"] = "required"
	}
	if zone == "" {
		fields["zone"] = "required"
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}

	loc, err := period.LoadZone(zone)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"zone": "timezone"})
		return
	}
	t, err := time.ParseInLocation(catalog.WallClockLayout, at, loc)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"at": "datetime"})
		return
	}
	httpx.JSON(w, http.StatusOK, offsetResponse{
		At:            t,
		Zone:          loc.String(),
		Offset:        period.ResolvedOffset(t),
		OffsetSeconds: period.OffsetSeconds(t),
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input catalog.RegisterInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entry, err := h.service.Register(ctx, input)
	if err != nil {
		h.respondServiceError(w, "register period", err)
		return
	}
	w.Header().Set("Location", "/api/v1/periods/"+entry.Code)
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ListFilter{}
	fields := map[string]string{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields["limit"] = "min"
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields["offset"] = "min"
		}
		filter.Offset = n
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entries, err := h.service.List(ctx, filter)
	if err != nil {
		h.respondServiceError(w, "list periods", err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entry, err := h.service.Get(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.respondServiceError(w, "get period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.service.Delete(ctx, chi.URLParam(r, "code")); err != nil {
		h.respondServiceError(w, "delete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRelation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cmp, err := h.service.Relate(ctx, chi.URLParam(r, "code"), chi.URLParam(r, "other"))
	if err != nil {
		h.respondServiceError(w, "relate periods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, relationResponse{
		A:        toEntryResponse(cmp.A),
		B:        toEntryResponse(cmp.B),
		Relation: cmp.Relation,
		Converse: cmp.Converse,
	})
}

func (h *Handler) handleRelated(w http.ResponseWriter, r *http.Request) {
	rel, err := period.ParseRelation(r.URL.Query().Get("relation"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"relation": "oneof"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entries, err := h.service.Related(ctx, chi.URLParam(r, "code"), rel)
	if err != nil {
		h.respondServiceError(w, "related periods", err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"relation": rel, "periods": out})
}

func (h *Handler) respondValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonPath(fe.Namespace())] = fe.Tag()
	}
	httpx.ValidationProblem(w, fields)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	var fields catalog.FieldErrors
	if errors.As(err, &fields) {
		httpx.ValidationProblem(w, fields)
		return
	}
	if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrDuplicate) &&
		!errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrUnprocessable) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func buildBounds(req boundsRequest, granule string) (period.Period, error) {
	g := period.Microsecond
	if granule != "" {
		var err error
		if g, err = period.ParseGranule(granule); err != nil {
			return period.Period{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
	}
	p, err := period.ParseBounds(period.Bounds{Start: req.Start, End: req.End, Zone: req.Zone}, g)
	if err != nil {
		if period.IsConstraint(err) {
			return period.Period{}, fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
		}
		return period.Period{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return p, nil
}

func toPeriodResponse(p period.Period) periodResponse {
	d := p.Duration()
	return periodResponse{
		Start:        p.Start(),
		End:          p.End(),
		Offset:       p.Offset(),
		Duration:     d,
		ISO:          d.String(),
		NumberOfDays: p.NumberOfDays(),
	}
}

func toEntryResponse(e catalog.Entry) entryResponse {
	return entryResponse{
		ID:        e.ID.String(),
		Code:      e.Code,
		Label:     e.Label,
		Zone:      e.Zone,
		Period:    toPeriodResponse(e.Period),
		CreatedAt: e.CreatedAt,
	}
}

// jsonPath turns "evaluateRequest.A.Start" into "a.start".
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
