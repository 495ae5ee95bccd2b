package service

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/UnknownOlympus/hestia/internal/repository"
)

// Runner is one reverse geocoding method.
type Runner interface {
	Method() string
	Run(ctx context.Context, observations []models.Observation) *models.BatchResult
}

// Comparison runs several methods over the same batch, one after another, and optionally
// stores every result.
type Comparison struct {
	log     *slog.Logger
	runners []Runner
	repo    repository.Interface // nil disables persistence
	input   string
}

// NewComparison creates a comparison of runners. repo may be nil.
func NewComparison(log *slog.Logger, repo repository.Interface, input string, runners ...Runner) *Comparison {
	return &Comparison{log: log, runners: runners, repo: repo, input: input}
}

// Run executes the runners in order. A method that cannot be stored is still reported.
// Methods not started before ctx is done are skipped.
func (c *Comparison) Run(ctx context.Context, observations []models.Observation) []*models.BatchResult {
	results := make([]*models.BatchResult, 0, len(c.runners))

	for _, runner := range c.runners {
		if err := ctx.Err(); err != nil {
			c.log.WarnContext(ctx, "Comparison interrupted", "skipped", runner.Method(), "error", err)
			break
		}

		result := runner.Run(ctx, observations)
		results = append(results, result)

		if c.repo == nil {
			continue
		}
		runID, err := c.repo.SaveBatch(ctx, c.input, result)
		if err != nil {
			c.log.ErrorContext(ctx, "Failed to store batch result", "method", result.Method, "error", err)
			continue
		}
		c.log.InfoContext(ctx, "Batch result stored", "method", result.Method, "run", runID)
	}

	return results
}
