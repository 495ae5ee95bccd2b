package geocoding_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/hestia/internal/geocoding"
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const photonSydney = `{"type":"FeatureCollection","features":[{"type":"Feature",
"geometry":{"type":"Point","coordinates":[151.2093,-33.8688]},
"properties":{"osm_type":"N","name":"Sydney","city":"Sydney","county":"Council of the City of Sydney",
"state":"New South Wales","country":"Australia","countrycode":"AU"}}]}`

func TestPhotonProvider_ReverseGeocode(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful reverse geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, "photon.example.org", req.URL.Host)
				assert.Equal(t, "/reverse", req.URL.Path)
				assert.Equal(t, "-33.8688", req.URL.Query().Get("lat"))
				assert.Equal(t, "151.2093", req.URL.Query().Get("lon"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				return respond(http.StatusOK, photonSydney)(req)
			},
		}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "https://photon.example.org/", unlimited(), logger)
		annotation, err := provider.ReverseGeocode(ctx, sydney)

		require.NoError(t, err)
		assert.Equal(t, models.PlaceAnnotation{
			models.LevelCountry: "Australia",
			models.LevelState:   "New South Wales",
			models.LevelLGA:     "Council of the City of Sydney",
		}, annotation)
	})

	t.Run("city stands in for county", func(t *testing.T) {
		body := `{"type":"FeatureCollection","features":[{"type":"Feature",
"geometry":{"type":"Point","coordinates":[174.77,-41.28]},
"properties":{"city":"Wellington","state":"Wellington Region","country":"New Zealand"}}]}`
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, body)}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		annotation, err := provider.ReverseGeocode(ctx, models.Coordinates{Latitude: -41.28, Longitude: 174.77})

		require.NoError(t, err)
		assert.Equal(t, "Wellington", annotation.Display(models.LevelLGA))
	})

	t.Run("no features is a miss", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, `{"type":"FeatureCollection","features":[]}`)}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		annotation, err := provider.ReverseGeocode(ctx, models.Coordinates{Latitude: 90, Longitude: 0})

		require.NoError(t, err)
		assert.False(t, annotation.Found())
	})

	t.Run("server error is transient", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusBadGateway, "bad gateway")}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		annotation, err := provider.ReverseGeocode(ctx, sydney)

		require.Error(t, err)
		assert.Nil(t, annotation)
		assert.True(t, geocoding.IsTransient(err))
		assert.Contains(t, err.Error(), "photon API returned status 502")
	})

	t.Run("bad request is permanent", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusBadRequest, "invalid lat")}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		_, err := provider.ReverseGeocode(ctx, sydney)

		require.ErrorIs(t, err, geocoding.ErrProviderStatus)
		assert.False(t, geocoding.IsTransient(err))
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, "invalid json")}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		_, err := provider.ReverseGeocode(ctx, sydney)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode photon response")
	})

	t.Run("network failure is transient", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		_, err := provider.ReverseGeocode(ctx, sydney)

		require.ErrorIs(t, err, geocoding.ErrTransient)
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewPhotonProviderWithClient(mockClient, "", unlimited(), logger)
		_, err := provider.ReverseGeocode(newCtx, sydney)

		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, geocoding.IsTransient(err))
	})
}

func TestPhotonProvider_RateLimitDeadline(t *testing.T) {
	calls := 0
	mockClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			calls++
			return respond(http.StatusOK, `{"type":"FeatureCollection","features":[]}`)(req)
		},
	}
	provider := geocoding.NewPhotonProviderWithClient(mockClient, "", rate.NewLimiter(1, 1), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := provider.ReverseGeocode(ctx, sydney)
	require.NoError(t, err)

	_, err = provider.ReverseGeocode(ctx, sydney)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, geocoding.IsTransient(err))
	require.NoError(t, ctx.Err(), "the limiter gives up before the deadline passes")
	assert.Equal(t, 1, calls)
}
