package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/UnknownOlympus/hestia/internal/models"
	"golang.org/x/time/rate"
)

// Provider resolves coordinates to administrative place names.
// An empty annotation with a nil error means the service knows no place there.
type Provider interface {
	ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common provider errors.
var (
	// ErrTransient marks failures worth retrying: timeouts, throttling and server errors.
	ErrTransient = errors.New("transient geocoding failure")
	// ErrProviderStatus is returned for non-retryable HTTP statuses.
	ErrProviderStatus = errors.New("geocoding service returned an error status")
	// ErrMissingAPIKey is returned by providers that require credentials.
	ErrMissingAPIKey = errors.New("API key is required")
)

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// waitRate blocks until limiter admits one request. A wait that the ctx deadline cannot
// cover fails at once, before ctx expires; it is reported as context.DeadlineExceeded.
func waitRate(ctx context.Context, limiter *rate.Limiter) error {
	err := limiter.Wait(ctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("rate limit wait aborted: %w", ctx.Err())
	default:
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("rate limit wait aborted: %w: %w", context.DeadlineExceeded, err)
		}
		return fmt.Errorf("rate limit wait aborted: %w", err)
	}
}

// fetch executes req and returns the body of a 200 response. Network errors and
// 408/429/5xx statuses are wrapped with ErrTransient.
func fetch(ctx context.Context, client HTTPClient, req *http.Request, service string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s request aborted: %w", service, ctx.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s request timed out: %w", ErrTransient, service, err)
		}
		return nil, fmt.Errorf("%w: failed to execute %s request: %w", ErrTransient, service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response body: %w", ErrTransient, service, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s API returned status %d: %s", ErrTransient, service, resp.StatusCode, string(body))
	default:
		return nil, fmt.Errorf("%w: %s API returned status %d: %s", ErrProviderStatus, service, resp.StatusCode, string(body))
	}
}
