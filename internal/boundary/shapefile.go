package boundary

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// ErrMissingField is returned when the configured name attribute is not in the layer.
var ErrMissingField = errors.New("name field not found in layer")

// LoadShapefile reads polygon features from a shapefile.
// The frame comes from spec.CRS when set, otherwise from the sibling .prj file,
// otherwise WGS84.
func LoadShapefile(log *slog.Logger, spec LayerSpec) (*Map, error) {
	level, err := spec.level()
	if err != nil {
		return nil, err
	}

	crs, err := shapefileCRS(spec)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", spec.Path, err)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, spec.NameField)
	if nameIdx < 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingField, spec.NameField, spec.Path)
	}

	var features []Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		polygon, ok := shape.(*shp.Polygon)
		if !ok || polygon == nil {
			skipped++
			continue
		}

		geometry := polygonToMultiPolygon(polygon)
		if len(geometry) == 0 {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		features = append(features, Feature{Name: name, Geometry: geometry})
	}

	if skipped > 0 {
		log.Debug("Skipped non-polygon shapefile records", "layer", spec.displayName(), "skipped", skipped)
	}

	return NewMap(level, spec.displayName(), spec.NameField, crs, features)
}

func shapefileCRS(spec LayerSpec) (CRS, error) {
	if spec.CRS != "" {
		return ParseCRS(spec.CRS)
	}

	prjPath := strings.TrimSuffix(spec.Path, filepath.Ext(spec.Path)) + ".prj"
	content, err := os.ReadFile(prjPath)
	if errors.Is(err, os.ErrNotExist) {
		return WGS84, nil
	}
	if err != nil {
		return CRS{}, fmt.Errorf("failed to read projection file %s: %w", prjPath, err)
	}

	return CRSFromPRJ(string(content))
}

// fieldIndex returns the index of a named attribute, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, field := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(field.String(), "\x00"), name) {
			return i
		}
	}

	return -1
}

// polygonToMultiPolygon converts shapefile parts into polygons. Clockwise rings start a new
// polygon and counter-clockwise rings are holes of the preceding one.
func polygonToMultiPolygon(polygon *shp.Polygon) orb.MultiPolygon {
	if polygon.NumParts == 0 || len(polygon.Points) == 0 {
		return nil
	}

	var multi orb.MultiPolygon
	for i := range polygon.NumParts {
		start := polygon.Parts[i]
		end := int32(len(polygon.Points))
		if i+1 < polygon.NumParts {
			end = polygon.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, p := range polygon.Points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}

		if ring.Orientation() == orb.CCW && len(multi) > 0 {
			last := len(multi) - 1
			multi[last] = append(multi[last], ring)
			continue
		}
		multi = append(multi, orb.Polygon{ring})
	}

	return multi
}
