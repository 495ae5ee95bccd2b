package boundary

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadGeoJSON reads polygon features from a GeoJSON FeatureCollection file.
func LoadGeoJSON(log *slog.Logger, spec LayerSpec) (*Map, error) {
	data, err := os.ReadFile(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson %s: %w", spec.Path, err)
	}

	return ParseGeoJSON(log, data, spec)
}

// ParseGeoJSON builds a map from GeoJSON bytes. Polygon and MultiPolygon features are
// kept in document order; other geometry types are skipped. GeoJSON is WGS84 unless
// spec.CRS says otherwise.
func ParseGeoJSON(log *slog.Logger, data []byte, spec LayerSpec) (*Map, error) {
	level, err := spec.level()
	if err != nil {
		return nil, err
	}

	crs, err := ParseCRS(spec.CRS)
	if err != nil {
		return nil, err
	}

	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson layer %s: %w", spec.displayName(), err)
	}

	features := make([]Feature, 0, len(collection.Features))
	var skipped int
	for _, feature := range collection.Features {
		var geometry orb.MultiPolygon
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			geometry = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			geometry = g
		default:
			skipped++
			continue
		}

		features = append(features, Feature{
			Name:     feature.Properties.MustString(spec.NameField, ""),
			Geometry: geometry,
		})
	}

	if skipped > 0 {
		log.Debug("Skipped non-polygon geojson features", "layer", spec.displayName(), "skipped", skipped)
	}

	return NewMap(level, spec.displayName(), spec.NameField, crs, features)
}
