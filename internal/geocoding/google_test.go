package geocoding_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/hestia/internal/geocoding"
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type mockGoogleAPIClient struct {
	mock.Mock
}

func (m *mockGoogleAPIClient) ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	args := m.Called(ctx, r)
	results, _ := args.Get(0).([]maps.GeocodingResult)
	return results, args.Error(1)
}

func TestGoogleProvider_ReverseGeocode(t *testing.T) {
	mockClient := new(mockGoogleAPIClient)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()
	req := &maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: sydney.Latitude, Lng: sydney.Longitude}}

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.ReverseGeocode(ctx, sydney)

		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, geocoding.IsTransient(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("over query limit is transient", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).
			Return(nil, errors.New("maps: OVER_QUERY_LIMIT - quota exceeded")).Once()

		_, err := provider.ReverseGeocode(ctx, sydney)

		require.ErrorIs(t, err, geocoding.ErrTransient)
		mockClient.AssertExpectations(t)
	})

	t.Run("zero results is a miss", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, errors.New("maps: ZERO_RESULTS - ")).Once()

		annotation, err := provider.ReverseGeocode(ctx, sydney)

		require.NoError(t, err)
		assert.False(t, annotation.Found())
		mockClient.AssertExpectations(t)
	})

	t.Run("successful reverse geocoding", func(t *testing.T) {
		results := []maps.GeocodingResult{
			{AddressComponents: []maps.AddressComponent{
				{LongName: "George Street", Types: []string{"route"}},
				{LongName: "Council of the City of Sydney", Types: []string{"administrative_area_level_2", "political"}},
				{LongName: "New South Wales", ShortName: "NSW", Types: []string{"administrative_area_level_1", "political"}},
			}},
			{AddressComponents: []maps.AddressComponent{
				{LongName: "Australia", ShortName: "AU", Types: []string{"country", "political"}},
				{LongName: "Queensland", Types: []string{"administrative_area_level_1", "political"}},
			}},
		}
		mockClient.On("ReverseGeocode", ctx, req).Return(results, nil).Once()

		annotation, err := provider.ReverseGeocode(ctx, sydney)

		require.NoError(t, err)
		assert.Equal(t, models.PlaceAnnotation{
			models.LevelCountry: "Australia",
			models.LevelState:   "New South Wales",
			models.LevelLGA:     "Council of the City of Sydney",
		}, annotation)
		mockClient.AssertExpectations(t)
	})
}
