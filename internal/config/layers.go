package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/UnknownOlympus/hestia/internal/boundary"
	"github.com/spf13/viper"
)

// ErrNoLayers is returned when a layers file declares no layer.
var ErrNoLayers = errors.New("no boundary layers configured")

// LoadLayers reads the boundary layer list from a YAML (or any viper supported) file:
//
//	layers:
//	  - name: states
//	    level: state
//	    path: boundaries/STE_2021_AUST_GDA2020.shp
//	    name_field: STE_NAME21
//
// Relative layer paths are resolved against the directory of the file.
func LoadLayers(path string) ([]boundary.LayerSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read layers file %s: %w", path, err)
	}

	var specs []boundary.LayerSpec
	if err := v.UnmarshalKey("layers", &specs); err != nil {
		return nil, fmt.Errorf("failed to decode layers file %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLayers, path)
	}

	base := filepath.Dir(path)
	for i := range specs {
		if specs[i].Path != "" && !filepath.IsAbs(specs[i].Path) {
			specs[i].Path = filepath.Join(base, specs[i].Path)
		}
	}

	return specs, nil
}
