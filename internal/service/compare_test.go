package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/UnknownOlympus/hestia/internal/repository"
	"github.com/UnknownOlympus/hestia/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) SaveBatch(ctx context.Context, input string, result *models.BatchResult) (uuid.UUID, error) {
	args := m.Called(ctx, input, result)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *mockRepository) ListRuns(ctx context.Context, limit int) ([]repository.RunSummary, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]repository.RunSummary)
	return runs, args.Error(1)
}

// staticRunner marks every row ok and counts its calls.
type staticRunner struct {
	method string
	calls  int
	cancel context.CancelFunc
}

func (s *staticRunner) Method() string { return s.method }

func (s *staticRunner) Run(_ context.Context, observations []models.Observation) *models.BatchResult {
	s.calls++
	if s.cancel != nil {
		s.cancel()
	}
	rows := make([]models.RowResult, len(observations))
	for i, obs := range observations {
		rows[i] = models.RowResult{Index: i, Observation: obs, Status: models.StatusOK}
	}
	return models.NewBatchResult(s.method, rows, time.Millisecond)
}

func TestComparison_Run(t *testing.T) {
	logger := slog.Default()
	input := observations(sydney, hobart)

	t.Run("runs every method and stores results", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("SaveBatch", mock.Anything, "hotspots.csv", mock.Anything).Return(uuid.New(), nil).Twice()
		first := &staticRunner{method: "remote"}
		second := &staticRunner{method: "custom"}

		results := service.NewComparison(logger, repo, "hotspots.csv", first, second).Run(t.Context(), input)

		require.Len(t, results, 2)
		assert.Equal(t, "remote", results[0].Method)
		assert.Equal(t, "custom", results[1].Method)
		assert.Len(t, results[1].Rows, len(input))
		repo.AssertExpectations(t)
	})

	t.Run("storage failure keeps the result", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("SaveBatch", mock.Anything, "hotspots.csv", mock.Anything).Return(uuid.Nil, assert.AnError).Once()

		results := service.NewComparison(logger, repo, "hotspots.csv", &staticRunner{method: "lowres"}).
			Run(t.Context(), input)

		require.Len(t, results, 1)
		repo.AssertExpectations(t)
	})

	t.Run("without repository", func(t *testing.T) {
		results := service.NewComparison(logger, nil, "hotspots.csv", &staticRunner{method: "lowres"}).
			Run(t.Context(), input)

		require.Len(t, results, 1)
	})

	t.Run("stops after cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		first := &staticRunner{method: "remote", cancel: cancel}
		second := &staticRunner{method: "custom"}

		results := service.NewComparison(logger, nil, "hotspots.csv", first, second).Run(ctx, input)

		require.Len(t, results, 1)
		assert.Equal(t, 0, second.calls)
	})
}
