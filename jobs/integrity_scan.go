package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/periods/internal/catalog"
	jobmetrics "github.com/odyssey-erp/periods/internal/jobs"
	"github.com/odyssey-erp/periods/internal/period"
)

const (
	defaultBatchSize = 500
	maxSamples       = 20
)

// Violation reasons reported by the integrity scan.
const (
	ReasonOffsetMismatch = "offset_mismatch"
	ReasonNegative       = "negative_period"
	ReasonOffsetDrift    = "offset_drift"
	ReasonUnknownZone    = "unknown_zone"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RecordSource streams stored catalog records.
type RecordSource interface {
	Scan(ctx context.Context, batchSize int, fn func(catalog.Record) error) error
}

// Violation describes one stored period that fails validation.
type Violation struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// IntegrityReport summarises a scan.
type IntegrityReport struct {
	Scanned    int            `json:"scanned"`
	Violations map[string]int `json:"violations"`
	Samples    []Violation    `json:"samples,omitempty"`
}

// IntegrityScanJob rebuilds every stored period and reports rows that no longer satisfy
// the period invariants, e.g. after a tz database update moved a zone's offset.
type IntegrityScanJob struct {
	Source  RecordSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(source RecordSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle executes the scan for an Asynq task.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run scans the catalog and returns the report.
func (j *IntegrityScanJob) Run(ctx context.Context, payload IntegrityScanPayload) (report IntegrityReport, err error) {
	if j.Source == nil {
		return IntegrityReport{}, errors.New("integrity scan: source not configured")
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = defaultBatchSize
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskIntegrityScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Int("batch_size", payload.BatchSize))
	logger.Info("starting integrity scan")

	report.Violations = map[string]int{}
	err = j.Source.Scan(ctx, payload.BatchSize, func(rec catalog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		if _, rerr := catalog.Rehydrate(rec); rerr != nil {
			v := Violation{Code: rec.Code, Reason: classify(rerr), Detail: rerr.Error()}
			report.Violations[v.Reason]++
			if len(report.Samples) < maxSamples {
				report.Samples = append(report.Samples, v)
			}
			logger.Warn("stored period violates invariants",
				slog.String("code", v.Code),
				slog.String("reason", v.Reason),
				slog.String("detail", v.Detail),
			)
		}
		return nil
	})
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return report, err
	}

	j.metrics().AddScanned(TaskIntegrityScan, report.Scanned)
	for reason, count := range report.Violations {
		j.metrics().AddViolations(reason, count)
	}
	logger.Info("completed integrity scan",
		slog.Int("scanned", report.Scanned),
		slog.Any("violations", report.Violations),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, catalog.ErrOffsetDrift):
		return ReasonOffsetDrift
	case errors.Is(err, period.ErrOffsetMismatch):
		return ReasonOffsetMismatch
	case errors.Is(err, period.ErrNegativePeriod):
		return ReasonNegative
	default:
		return ReasonUnknownZone
	}
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskIntegrityScan))
}

func (j *IntegrityScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
