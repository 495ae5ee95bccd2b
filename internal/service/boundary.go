package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hestia/internal/boundary"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/UnknownOlympus/hestia/internal/workerpool"
)

// BoundaryBatch annotates observations by point-in-polygon lookups against boundary maps.
// With one worker it runs sequentially, which is how the bundled low resolution maps are used.
type BoundaryBatch struct {
	log      *slog.Logger
	method   string
	maps     []*boundary.Map
	workers  int
	metrics  *metrics.Metrics
	annotate func(coords models.Coordinates) models.PlaceAnnotation
}

// NewBoundaryBatch creates a batch runner over maps. The maps are shared read-only by
// all workers and must already be in lookup order.
func NewBoundaryBatch(
	log *slog.Logger,
	method string,
	maps []*boundary.Map,
	workers int,
	metrics *metrics.Metrics,
) *BoundaryBatch {
	bb := &BoundaryBatch{
		log:     log,
		method:  method,
		maps:    maps,
		workers: workers,
		metrics: metrics,
	}
	bb.annotate = func(coords models.Coordinates) models.PlaceAnnotation {
		return boundary.Annotate(bb.maps, coords)
	}

	return bb
}

// Method returns the method name of the runner.
func (bb *BoundaryBatch) Method() string { return bb.method }

// Run spreads the rows over a worker pool created for this call and collects the results
// by input index. A failing row never affects other rows.
func (bb *BoundaryBatch) Run(ctx context.Context, observations []models.Observation) *models.BatchResult {
	start := time.Now()
	bb.log.InfoContext(ctx, "Starting boundary lookup batch",
		"method", bb.method, "rows", len(observations), "maps", len(bb.maps), "num_workers", bb.workers)

	cfg := workerpool.Config{
		Workers:       bb.workers,
		OnWorkerStart: func(int) { bb.metrics.ActiveWorkers.Inc() },
		OnWorkerStop:  func(int) { bb.metrics.ActiveWorkers.Dec() },
	}

	results := workerpool.Run(ctx, cfg, len(observations), func(_ context.Context, idx int) (models.PlaceAnnotation, error) {
		obs := observations[idx]
		if err := obs.Valid(); err != nil {
			return nil, err
		}
		return bb.annotate(obs.Coordinates), nil
	})

	rows := make([]models.RowResult, len(observations))
	for idx, res := range results {
		row := models.RowResult{Index: idx, Observation: observations[idx], Annotation: res.Value, Err: res.Err}
		switch {
		case res.Err == nil:
			row.Status = models.StatusFor(res.Value)
		case errors.Is(res.Err, models.ErrInvalidCoordinate):
			row.Status = models.StatusInvalidCoordinate
		case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
			row.Status = models.StatusCancelled
		default:
			bb.log.ErrorContext(ctx, "Boundary lookup failed", "method", bb.method, "row", idx, "error", res.Err)
			row.Status = models.StatusWorkerFailure
		}
		rows[idx] = row
	}

	result := models.NewBatchResult(bb.method, rows, time.Since(start))
	bb.metrics.ObserveBatch(result)
	bb.log.InfoContext(ctx, "Boundary lookup batch finished",
		"method", bb.method, "elapsed", result.Elapsed, "ok", result.Summary[models.StatusOK],
		"not_found", result.Summary[models.StatusNotFound], "failed", result.Summary[models.StatusWorkerFailure])

	return result
}
