package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public OpenStreetMap Nominatim endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org"
	// User-Agent MUST include valid contact info per Nominatim usage policy:
	// https://operations.osmfoundation.org/policies/nominatim/
	nominatimUserAgent = "Hestia-Hotspot-Geocoder/1.0 (https://github.com/UnknownOlympus/hestia)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client    HTTPClient    // HTTP client for making requests
	baseURL   string        // Base URL for the Nominatim API
	log       *slog.Logger  // Logger for logging operations
	limiter   *rate.Limiter // Keeps us within the fair use policy
	userAgent string
}

// nominatimResponse represents the JSON response of the reverse endpoint.
type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		Country      string `json:"country"`
		State        string `json:"state"`
		County       string `json:"county"`
		Municipality string `json:"municipality"`
		City         string `json:"city"`
	} `json:"address"`
}

// NewNominatimProvider creates a new Nominatim geocoding provider.
// An empty baseURL selects the public endpoint.
func NewNominatimProvider(baseURL string, timeout time.Duration, log *slog.Logger) *NominatimProvider {
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, baseURL, newLimiter(1), log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *NominatimProvider {
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}

	return &NominatimProvider{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
		limiter:   limiter,
		userAgent: nominatimUserAgent,
	}
}

// ReverseGeocode resolves coordinates with the Nominatim reverse endpoint at county zoom.
// Nominatim reports misses through an "error" field in a 200 response.
func (np *NominatimProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	if err := waitRate(ctx, np.limiter); err != nil {
		return nil, err
	}

	reqURL, err := url.Parse(np.baseURL + "/reverse")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("zoom", "10")
	query.Set("addressdetails", "1")
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", "en")

	body, err := fetch(ctx, np.client, req, "nominatim")
	if err != nil {
		return nil, err
	}

	var result nominatimResponse
	if err = json.Unmarshal(body, &result); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	annotation := make(models.PlaceAnnotation)
	if result.Error != "" {
		np.log.DebugContext(ctx, "Nominatim found nothing", "reason", result.Error)
		return annotation, nil
	}

	address := result.Address
	annotation.Set(models.LevelCountry, address.Country)
	annotation.Set(models.LevelState, address.State)
	annotation.Set(models.LevelLGA, firstNonEmpty(address.County, address.Municipality, address.City))

	return annotation, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
