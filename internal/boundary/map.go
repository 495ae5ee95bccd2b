// Package boundary holds immutable boundary maps and the point-in-polygon lookup
// against them.
package boundary

import (
	"errors"
	"fmt"
	"slices"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// minExtent pads degenerate feature bounds so the R-tree accepts them.
	minExtent = 1e-9
	// queryTolerance is the half-size of the query rectangle built around a point.
	queryTolerance = 1e-9
)

// ErrEmptyMap is returned when a map is built without any usable feature.
var ErrEmptyMap = errors.New("boundary map has no polygon features")

// Feature is a named region at one administrative level.
type Feature struct {
	Name     string
	Geometry orb.MultiPolygon
}

// indexedFeature wraps a feature position to implement rtreego.Spatial.
type indexedFeature struct {
	idx  int
	rect *rtreego.Rect
}

func (f *indexedFeature) Bounds() *rtreego.Rect {
	return f.rect
}

// Map is an immutable set of named polygons at one administrative level.
// It is safe for concurrent lookups.
type Map struct {
	level     models.AdminLevel
	name      string
	nameField string
	crs       CRS
	features  []Feature
	tree      *rtreego.Rtree
}

// NewMap indexes the features in declared order. Features with empty geometry are dropped.
func NewMap(level models.AdminLevel, name, nameField string, crs CRS, features []Feature) (*Map, error) {
	kept := make([]Feature, 0, len(features))
	spatials := make([]rtreego.Spatial, 0, len(features))

	for _, feature := range features {
		if len(feature.Geometry) == 0 {
			continue
		}

		bound := feature.Geometry.Bound()
		rect, err := rtreego.NewRect(
			rtreego.Point{bound.Min.X(), bound.Min.Y()},
			[]float64{max(bound.Max.X()-bound.Min.X(), minExtent), max(bound.Max.Y()-bound.Min.Y(), minExtent)},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to index feature %q of map %s: %w", feature.Name, name, err)
		}

		spatials = append(spatials, &indexedFeature{idx: len(kept), rect: rect})
		kept = append(kept, feature)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMap, name)
	}

	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, item := range spatials {
		tree.Insert(item)
	}

	return &Map{
		level:     level,
		name:      name,
		nameField: nameField,
		crs:       crs,
		features:  kept,
		tree:      tree,
	}, nil
}

// Level returns the administrative level of the map.
func (m *Map) Level() models.AdminLevel { return m.level }

// Name returns the layer name used in logs and reports.
func (m *Map) Name() string { return m.name }

// NameField returns the attribute holding feature names.
func (m *Map) NameField() string { return m.nameField }

// CRS returns the frame of the map geometry.
func (m *Map) CRS() CRS { return m.crs }

// Len returns the number of indexed features.
func (m *Map) Len() int { return len(m.features) }

// Lookup returns the name of the feature containing the coordinates.
//
// The point is reprojected into the map frame first. Candidates from the R-tree are tested
// in the map's declared order and the first containing feature wins, so overlapping
// features resolve deterministically. A point on an outer ring edge counts as inside;
// a point on a hole edge counts as outside.
func (m *Map) Lookup(coords models.Coordinates) (string, bool) {
	point, ok := m.crs.Project(orb.Point{coords.Longitude, coords.Latitude})
	if !ok {
		return "", false
	}

	hits := m.tree.SearchIntersect(rtreego.Point{point.X(), point.Y()}.ToRect(queryTolerance))
	if len(hits) == 0 {
		return "", false
	}

	candidates := make([]int, 0, len(hits))
	for _, hit := range hits {
		if feature, isFeature := hit.(*indexedFeature); isFeature {
			candidates = append(candidates, feature.idx)
		}
	}
	slices.Sort(candidates)

	for _, idx := range candidates {
		if planar.MultiPolygonContains(m.features[idx].Geometry, point) {
			return m.features[idx].Name, true
		}
	}

	return "", false
}

// Annotate runs the lookup against every map in order. The first map to match a level
// sets it; later maps at the same level cannot override it.
func Annotate(maps []*Map, coords models.Coordinates) models.PlaceAnnotation {
	annotation := make(models.PlaceAnnotation, len(models.Levels()))
	for _, m := range maps {
		if _, done := annotation.Get(m.level); done {
			continue
		}
		if name, ok := m.Lookup(coords); ok {
			annotation.Set(m.level, name)
		}
	}

	return annotation
}
