package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocktrack/barcodes/internal/barcodes"
	jobmetrics "github.com/stocktrack/barcodes/internal/jobs"
)

// ExpiringSource lists in-stock records that expire within a window.
type ExpiringSource interface {
	Expiring(ctx context.Context, today barcodes.Date, windowDays int) ([]barcodes.Record, error)
}

// ExpiryReport summarises one scan.
type ExpiryReport struct {
	Expired  int
	Expiring int
}

// ExpiryScanJob logs and counts stock that has expired or is about to.
type ExpiryScanJob struct {
	Source            ExpiringSource
	Logger            *slog.Logger
	Metrics           *jobmetrics.Metrics
	DefaultWindowDays int
	clock             func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(source ExpiringSource, logger *slog.Logger, metrics *jobmetrics.Metrics, defaultWindowDays int) *ExpiryScanJob {
	return &ExpiryScanJob{
		Source:            source,
		Logger:            logger,
		Metrics:           metrics,
		DefaultWindowDays: defaultWindowDays,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan for an Asynq task.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Scan(ctx, payload.WindowDays)
	return err
}

// Scan reports every in-stock record whose expiry date falls on or before
// today plus windowDays. A non-positive window uses the default.
func (j *ExpiryScanJob) Scan(ctx context.Context, windowDays int) (report ExpiryReport, err error) {
	if j.Source == nil {
		return report, errors.New("expiry scan: source not configured")
	}
	if windowDays <= 0 {
		windowDays = j.DefaultWindowDays
	}

	tracker := j.Metrics.Track(TaskExpiryScan)
	defer func() {
		err = tracker.End(err)
	}()

	now := j.now()
	today := barcodes.NewDate(now.Date())
	logger := j.logger().With(slog.Int("window_days", windowDays), slog.String("today", today.String()))
	logger.Info("starting expiry scan")

	records, err := j.Source.Expiring(ctx, today, windowDays)
	if err != nil {
		logger.Error("expiry scan failed", slog.Any("error", err))
		return report, err
	}

	for _, rec := range records {
		if rec.ExpiryDate == nil {
			continue
		}
		daysLeft := today.DaysUntil(*rec.ExpiryDate)
		state := jobmetrics.StateExpiring
		if daysLeft < 0 {
			state = jobmetrics.StateExpired
			report.Expired++
		} else {
			report.Expiring++
		}
		batch := ""
		if rec.Batch != nil {
			batch = *rec.Batch
		}
		logger.Warn("stock "+state,
			slog.String("barcode", rec.Code),
			slog.String("name", rec.Name),
			slog.String("batch", batch),
			slog.String("expiry_date", rec.ExpiryDate.String()),
			slog.Int("days_left", daysLeft),
		)
	}
	j.Metrics.AddExpiring(jobmetrics.StateExpired, report.Expired)
	j.Metrics.AddExpiring(jobmetrics.StateExpiring, report.Expiring)

	logger.Info("completed expiry scan",
		slog.Int("expired", report.Expired),
		slog.Int("expiring", report.Expiring),
		slog.Duration("duration", time.Since(now)),
	)
	return report, nil
}

func (j *ExpiryScanJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
