package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

var sydney = models.Coordinates{Latitude: -33.8688, Longitude: 151.2093}

// mockProvider is a testify mock of geocoding.Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	args := m.Called(ctx, coords)
	annotation, _ := args.Get(0).(models.PlaceAnnotation)
	return annotation, args.Error(1)
}
