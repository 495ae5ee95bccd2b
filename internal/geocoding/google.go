package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/UnknownOlympus/hestia/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the part of *maps.Client the provider uses.
type GoogleAPIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

var googleComponents = map[string]models.AdminLevel{
	"country":                     models.LevelCountry,
	"administrative_area_level_1": models.LevelState,
	"administrative_area_level_2": models.LevelLGA,
}

// Google Maps API statuses that are worth retrying.
var googleTransientStatuses = []string{"OVER_QUERY_LIMIT", "UNKNOWN_ERROR"}

// NewGoogleProvider wraps a Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// ReverseGeocode resolves coordinates with the Google Maps Geocoding API. The address
// components of all results are scanned so that a street-level first result still
// yields its country and administrative areas.
func (gp *GoogleProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	gp.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "lat", coords.Latitude, "lon", coords.Longitude)

	req := maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: coords.Latitude, Lng: coords.Longitude}}
	results, err := gp.client.ReverseGeocode(ctx, &req)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "ZERO_RESULTS"):
			return make(models.PlaceAnnotation), nil
		case slices.ContainsFunc(googleTransientStatuses, func(s string) bool { return strings.Contains(msg, s) }):
			return nil, fmt.Errorf("%w: failed to reverse geocode: %w", ErrTransient, err)
		default:
			return nil, fmt.Errorf("failed to reverse geocode: %w", err)
		}
	}

	annotation := make(models.PlaceAnnotation)
	for _, result := range results {
		for _, component := range result.AddressComponents {
			for _, kind := range component.Types {
				level, ok := googleComponents[kind]
				if !ok {
					continue
				}
				if _, found := annotation.Get(level); !found {
					annotation.Set(level, component.LongName)
				}
			}
		}
	}

	return annotation, nil
}
