package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hestia/internal/geocoding"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/models"
)

// Method names used in reports, metrics and storage.
const (
	MethodRemote = "remote"
	MethodLowRes = "lowres"
	MethodCustom = "custom"
)

// RemoteBatch annotates observations one at a time through a geocoding provider.
type RemoteBatch struct {
	log          *slog.Logger       // Logger for logging batch activities
	provider     geocoding.Provider // Geocoding provider for external geocoding services
	providerName string             // Name of the provider for metrics labeling
	metrics      *metrics.Metrics   // Metrics for tracking batch performance
	timeout      time.Duration      // Deadline for the whole batch, 0 disables it
}

// NewRemoteBatch creates a sequential remote geocoding batch runner.
func NewRemoteBatch(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	timeout time.Duration,
) *RemoteBatch {
	return &RemoteBatch{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		timeout:      timeout,
	}
}

// Method returns the method name of the runner.
func (rb *RemoteBatch) Method() string { return MethodRemote }

// Run sends each valid observation to the provider in input order. Invalid rows are never
// sent. A provider failure marks its row and the batch carries on; rows still pending when
// the batch deadline passes or ctx is cancelled are marked cancelled.
func (rb *RemoteBatch) Run(ctx context.Context, observations []models.Observation) *models.BatchResult {
	start := time.Now()
	if rb.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rb.timeout)
		defer cancel()
	}

	rb.log.InfoContext(ctx, "Starting remote geocoding batch",
		"rows", len(observations), "provider", rb.providerName, "timeout", rb.timeout)

	rows := make([]models.RowResult, len(observations))
	var stopped error
	for idx, obs := range observations {
		rows[idx] = rb.annotate(ctx, idx, obs, stopped)
		if rows[idx].Status == models.StatusCancelled {
			stopped = rows[idx].Err
		}
	}

	result := models.NewBatchResult(MethodRemote, rows, time.Since(start))
	rb.metrics.ObserveBatch(result)
	rb.log.InfoContext(ctx, "Remote geocoding batch finished",
		"elapsed", result.Elapsed, "ok", result.Summary[models.StatusOK],
		"failed", result.Summary[models.StatusRemoteFailure], "cancelled", result.Summary[models.StatusCancelled])

	return result
}

// annotate resolves one row. Once a row has been cancelled, stopped carries its error and
// every later valid row is cancelled without a request.
func (rb *RemoteBatch) annotate(ctx context.Context, idx int, obs models.Observation, stopped error) models.RowResult {
	row := models.RowResult{Index: idx, Observation: obs}

	if err := obs.Valid(); err != nil {
		row.Status, row.Err = models.StatusInvalidCoordinate, err
		return row
	}
	if stopped == nil {
		stopped = ctx.Err()
	}
	if stopped != nil {
		row.Status, row.Err = models.StatusCancelled, stopped
		return row
	}

	startTime := time.Now()
	annotation, err := rb.provider.ReverseGeocode(ctx, obs.Coordinates)
	rb.metrics.RequestSeconds.WithLabelValues(rb.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		if cancelled(ctx, err) {
			row.Status, row.Err = models.StatusCancelled, err
			return row
		}
		rb.log.ErrorContext(ctx, "Failed to reverse geocode", "row", idx, "error", err)
		rb.metrics.ProviderErrors.WithLabelValues(rb.providerName).Inc()
		row.Status, row.Err = models.StatusRemoteFailure, err
		return row
	}

	row.Annotation = annotation
	row.Status = models.StatusFor(annotation)

	return row
}

// cancelled reports whether err stopped the row because of the batch deadline or ctx rather
// than a provider failure. Rate limiters refuse waits past the deadline before ctx expires,
// so a non-transient DeadlineExceeded counts even while ctx is still live.
func cancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	}

	return errors.Is(err, context.DeadlineExceeded) && !geocoding.IsTransient(err)
}
