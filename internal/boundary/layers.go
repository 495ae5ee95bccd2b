package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/UnknownOlympus/hestia/internal/models"
	"golang.org/x/sync/errgroup"
)

// Errors returned while resolving layer descriptions.
var (
	ErrUnknownLevel  = errors.New("unknown administrative level")
	ErrUnknownFormat = errors.New("unsupported boundary file format")
)

// LayerSpec describes one externally supplied boundary map.
type LayerSpec struct {
	Name      string `mapstructure:"name"`       // Display name; defaults to the file name.
	Level     string `mapstructure:"level"`      // country, state|province, lga|county.
	Path      string `mapstructure:"path"`       // .shp, .geojson or .json file.
	NameField string `mapstructure:"name_field"` // Attribute holding the place name.
	CRS       string `mapstructure:"crs"`        // Optional EPSG override.
}

func (s LayerSpec) level() (models.AdminLevel, error) {
	level, ok := models.ParseLevel(strings.ToLower(strings.TrimSpace(s.Level)))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s.Level)
	}

	return level, nil
}

func (s LayerSpec) displayName() string {
	if s.Name != "" {
		return s.Name
	}

	return filepath.Base(s.Path)
}

// LoadLayer loads a single layer, choosing the reader by file extension.
func LoadLayer(log *slog.Logger, spec LayerSpec) (*Map, error) {
	switch strings.ToLower(filepath.Ext(spec.Path)) {
	case ".shp":
		return LoadShapefile(log, spec)
	case ".geojson", ".json":
		return LoadGeoJSON(log, spec)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, spec.Path)
	}
}

// LoadLayers loads all layers concurrently and returns them in lookup order:
// country, then state, then lga. Layers sharing a level keep their configured order.
func LoadLayers(ctx context.Context, log *slog.Logger, specs []LayerSpec) ([]*Map, error) {
	maps := make([]*Map, len(specs))
	group, gctx := errgroup.WithContext(ctx)

	for i, spec := range specs {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m, err := LoadLayer(log, spec)
			if err != nil {
				return fmt.Errorf("failed to load layer %s: %w", spec.displayName(), err)
			}
			log.InfoContext(gctx, "Boundary layer loaded",
				"layer", m.Name(), "level", m.Level(), "features", m.Len(), "crs", m.CRS().String())
			maps[i] = m

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	SortByLevel(maps)

	return maps, nil
}

// SortByLevel orders maps country, state, lga, keeping the relative order within a level.
func SortByLevel(maps []*Map) {
	rank := make(map[models.AdminLevel]int, len(models.Levels()))
	for i, level := range models.Levels() {
		rank[level] = i
	}

	slices.SortStableFunc(maps, func(a, b *Map) int {
		return rank[a.Level()] - rank[b.Level()]
	})
}
