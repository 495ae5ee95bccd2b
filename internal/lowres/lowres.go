// Package lowres bundles coarse country and state outlines so that boundary lookups work
// without any external data. The outlines cover Australia and New Zealand at a few dozen
// vertices per region; they are good enough to tell states apart away from their borders.
package lowres

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/hestia/internal/boundary"
)

const nameField = "NAME"

var (
	//go:embed data/country.geojson
	countryGeoJSON []byte

	//go:embed data/state.geojson
	stateGeoJSON []byte
)

var load = sync.OnceValues(func() ([]*boundary.Map, error) {
	log := slog.New(slog.DiscardHandler)
	layers := []struct {
		data []byte
		spec boundary.LayerSpec
	}{
		{countryGeoJSON, boundary.LayerSpec{Name: "lowres-country", Level: "country", NameField: nameField}},
		{stateGeoJSON, boundary.LayerSpec{Name: "lowres-state", Level: "state", NameField: nameField}},
	}

	maps := make([]*boundary.Map, 0, len(layers))
	for _, layer := range layers {
		m, err := boundary.ParseGeoJSON(log, layer.data, layer.spec)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bundled map %s: %w", layer.spec.Name, err)
		}
		maps = append(maps, m)
	}

	return maps, nil
})

// Maps returns the bundled boundary maps in lookup order. They are parsed on first use
// and shared afterwards; callers must not modify the slice.
func Maps() ([]*boundary.Map, error) {
	return load()
}
