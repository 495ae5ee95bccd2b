package geocoding

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the retries of transient provider failures.
type RetryConfig struct {
	MaxRetries      int           // Retries after the first attempt
	InitialInterval time.Duration // First backoff delay
	MaxInterval     time.Duration // Upper bound of a single delay
	OnRetry         func(err error, wait time.Duration)
}

// DefaultRetryConfig returns three retries starting at half a second.
func DefaultRetryConfig() RetryConfig {
	const retries = 3

	return RetryConfig{
		MaxRetries:      retries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// RetryingProvider retries transient failures of the wrapped provider with exponential
// backoff. Permanent failures and misses are returned immediately.
type RetryingProvider struct {
	next Provider
	cfg  RetryConfig
	log  *slog.Logger
}

// NewRetryingProvider wraps p. A config with MaxRetries 0 makes a single attempt.
func NewRetryingProvider(p Provider, cfg RetryConfig, log *slog.Logger) *RetryingProvider {
	return &RetryingProvider{next: p, cfg: cfg, log: log}
}

// ReverseGeocode calls the wrapped provider until it succeeds, fails permanently,
// runs out of retries or ctx is done.
func (rp *RetryingProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	policy := backoff.NewExponentialBackOff()
	if rp.cfg.InitialInterval > 0 {
		policy.InitialInterval = rp.cfg.InitialInterval
	}
	if rp.cfg.MaxInterval > 0 {
		policy.MaxInterval = rp.cfg.MaxInterval
	}
	policy.MaxElapsedTime = 0

	retries := max(rp.cfg.MaxRetries, 0)
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	operation := func() (models.PlaceAnnotation, error) {
		annotation, err := rp.next.ReverseGeocode(ctx, coords)
		if err != nil && !IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return annotation, err
	}

	notify := func(err error, wait time.Duration) {
		rp.log.WarnContext(ctx, "Retrying reverse geocoding",
			"lat", coords.Latitude, "lon", coords.Longitude, "wait", wait, "error", err)
		if rp.cfg.OnRetry != nil {
			rp.cfg.OnRetry(err, wait)
		}
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}
