package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"
)

// PhotonBaseURL is the public Photon instance operated by komoot.
const PhotonBaseURL = "https://photon.komoot.io"

// PhotonProvider implements reverse geocoding using the Photon API.
// Photon answers with a GeoJSON feature collection whose properties carry the address.
type PhotonProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL of the Photon instance
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// NewPhotonProvider creates a Photon provider for the given instance.
// An empty baseURL selects the public instance.
func NewPhotonProvider(baseURL string, rateLimit int, timeout time.Duration, log *slog.Logger) *PhotonProvider {
	return NewPhotonProviderWithClient(&http.Client{Timeout: timeout}, baseURL, newLimiter(rateLimit), log)
}

// NewPhotonProviderWithClient allows injecting custom HTTP client and limiter.
func NewPhotonProviderWithClient(client HTTPClient, baseURL string, limiter *rate.Limiter, log *slog.Logger) *PhotonProvider {
	if baseURL == "" {
		baseURL = PhotonBaseURL
	}

	return &PhotonProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		limiter: limiter,
	}
}

// ReverseGeocode asks Photon for the nearest feature and maps its country, state and
// county properties onto the administrative levels. Cities stand in for a missing county.
func (pp *PhotonProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	if err := waitRate(ctx, pp.limiter); err != nil {
		return nil, err
	}

	reqURL, err := url.Parse(pp.baseURL + "/reverse")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("limit", "1")
	query.Set("lang", "en")
	reqURL.RawQuery = query.Encode()

	pp.log.DebugContext(ctx, "Photon request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := fetch(ctx, pp.client, req, "photon")
	if err != nil {
		return nil, err
	}

	collection, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photon response: %w", err)
	}

	annotation := make(models.PlaceAnnotation)
	if len(collection.Features) == 0 {
		pp.log.DebugContext(ctx, "Photon found nothing", "lat", coords.Latitude, "lon", coords.Longitude)
		return annotation, nil
	}

	props := collection.Features[0].Properties
	annotation.Set(models.LevelCountry, props.MustString("country", ""))
	annotation.Set(models.LevelState, props.MustString("state", ""))
	annotation.Set(models.LevelLGA, props.MustString("county", props.MustString("city", "")))

	return annotation, nil
}
