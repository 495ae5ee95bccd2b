package boundary_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnknownOlympus/hestia/internal/boundary"
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regionsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"LGA_NAME": "Alpha"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"LGA_NAME": "Marker"},
     "geometry": {"type": "Point", "coordinates": [5,5]}},
    {"type": "Feature", "properties": {"LGA_NAME": "Beta"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[20,0],[30,0],[30,10],[20,10],[20,0]]]]}}
  ]
}`

// writeShapefile writes a polygon layer with a clockwise outer ring and a counter-clockwise hole.
func writeShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "states.shp")

	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	writer.SetFields([]shp.Field{shp.StringField("STE_NAME", 40)})

	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4}}
	withHole := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole}))
	writer.Write(&withHole)
	writer.WriteAttribute(0, 0, "Ringland")

	east := []shp.Point{{X: 20, Y: 0}, {X: 20, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 0}, {X: 20, Y: 0}}
	eastPolygon := shp.Polygon(*shp.NewPolyLine([][]shp.Point{east}))
	writer.Write(&eastPolygon)
	writer.WriteAttribute(1, 0, "Eastland")

	writer.Close()

	return path
}

func TestLoadShapefile(t *testing.T) {
	logger := slog.Default()
	dir := t.TempDir()
	path := writeShapefile(t, dir)

	t.Run("loads polygons with holes", func(t *testing.T) {
		m, err := boundary.LoadShapefile(logger, boundary.LayerSpec{Level: "state", Path: path, NameField: "STE_NAME"})
		require.NoError(t, err)

		assert.Equal(t, models.LevelState, m.Level())
		assert.Equal(t, 2, m.Len())
		assert.Equal(t, "states.shp", m.Name())

		name, ok := m.Lookup(at(2, 2))
		assert.True(t, ok)
		assert.Equal(t, "Ringland", name)

		_, ok = m.Lookup(at(5, 5))
		assert.False(t, ok)

		name, ok = m.Lookup(at(5, 25))
		assert.True(t, ok)
		assert.Equal(t, "Eastland", name)
	})

	t.Run("reads projection file", func(t *testing.T) {
		prj := `GEOGCS["GCS_GDA_1994",DATUM["D_GDA_1994",SPHEROID["GRS_1980",6378137.0,298.257222101]]]`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "states.prj"), []byte(prj), 0o600))
		t.Cleanup(func() { _ = os.Remove(filepath.Join(dir, "states.prj")) })

		m, err := boundary.LoadShapefile(logger, boundary.LayerSpec{Level: "state", Path: path, NameField: "STE_NAME"})
		require.NoError(t, err)

		assert.Equal(t, "EPSG:4283", m.CRS().String())
	})

	t.Run("missing name field", func(t *testing.T) {
		_, err := boundary.LoadShapefile(logger, boundary.LayerSpec{Level: "state", Path: path, NameField: "NOPE"})

		require.ErrorIs(t, err, boundary.ErrMissingField)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := boundary.LoadShapefile(logger, boundary.LayerSpec{Level: "galaxy", Path: path, NameField: "STE_NAME"})

		require.ErrorIs(t, err, boundary.ErrUnknownLevel)
	})
}

func TestParseGeoJSON(t *testing.T) {
	m, err := boundary.ParseGeoJSON(slog.Default(), []byte(regionsGeoJSON),
		boundary.LayerSpec{Name: "lgas", Level: "lga", NameField: "LGA_NAME"})
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len(), "point features are skipped")

	name, ok := m.Lookup(at(5, 25))
	assert.True(t, ok)
	assert.Equal(t, "Beta", name)

	_, err = boundary.ParseGeoJSON(slog.Default(), []byte(`{"type":`), boundary.LayerSpec{Level: "lga"})
	require.Error(t, err)
}

func TestLoadLayers(t *testing.T) {
	logger := slog.Default()
	dir := t.TempDir()
	shpPath := writeShapefile(t, dir)
	geoPath := filepath.Join(dir, "lga.geojson")
	require.NoError(t, os.WriteFile(geoPath, []byte(regionsGeoJSON), 0o600))

	t.Run("sorted by level", func(t *testing.T) {
		maps, err := boundary.LoadLayers(t.Context(), logger, []boundary.LayerSpec{
			{Level: "lga", Path: geoPath, NameField: "LGA_NAME"},
			{Level: "state", Path: shpPath, NameField: "STE_NAME"},
		})
		require.NoError(t, err)
		require.Len(t, maps, 2)

		assert.Equal(t, models.LevelState, maps[0].Level())
		assert.Equal(t, models.LevelLGA, maps[1].Level())
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := boundary.LoadLayers(t.Context(), logger, []boundary.LayerSpec{
			{Level: "lga", Path: filepath.Join(dir, "lga.kml"), NameField: "LGA_NAME"},
		})

		require.ErrorIs(t, err, boundary.ErrUnknownFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := boundary.LoadLayers(t.Context(), logger, []boundary.LayerSpec{
			{Level: "lga", Path: filepath.Join(dir, "missing.geojson"), NameField: "LGA_NAME"},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load layer missing.geojson")
	})
}
