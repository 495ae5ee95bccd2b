package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotspots = `latitude,longitude,brightness,acq_date,acq_time
-33.8688,151.2093,330.1,2025-01-10,0342
-37.8136,144.9631,318.4,2025-01-10,0342
200,151.2093,301.0,2025-01-10,0342
`

const lgaLayer = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"NAME":"Sydney Basin"},
 "geometry":{"type":"Polygon","coordinates":[[[150,-35],[152,-35],[152,-33],[150,-33],[150,-35]]]}}
]}`

func testConfig() *config.Config {
	return &config.Config{
		Env:           envLocal,
		Provider:      config.ProviderConfig{Type: "photon", RateLimit: 1, Retries: 0},
		Workers:       2,
		RemoteTimeout: time.Second,
		InvalidPolicy: "skip",
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand(cfg, slog.New(slog.DiscardHandler))
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestLowresCommand(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	input := filepath.Join(dir, "hotspots.csv")
	filet.File(t, input, hotspots)
	export := filepath.Join(dir, "out.csv")

	out, err := execute(t, testConfig(), "lowres", "--input", input, "--csv", export)

	require.NoError(t, err)
	assert.Contains(t, out, "Method: lowres")
	assert.Contains(t, out, "New South Wales")
	assert.Contains(t, out, "Victoria")
	assert.Contains(t, out, "invalid_coordinate")
	assert.True(t, filet.Exists(t, export))
}

func TestCustomCommand(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	input := filepath.Join(dir, "hotspots.csv")
	filet.File(t, input, hotspots)
	filet.File(t, filepath.Join(dir, "lga.geojson"), lgaLayer)
	layers := filepath.Join(dir, "layers.yaml")
	filet.File(t, layers, `
layers:
  - name: basin
    level: lga
    path: lga.geojson
    name_field: NAME
`)

	t.Run("annotates from configured layers", func(t *testing.T) {
		out, err := execute(t, testConfig(), "custom", "--input", input, "--layers", layers, "--workers", "3")

		require.NoError(t, err)
		assert.Contains(t, out, "Method: custom")
		assert.Contains(t, out, "Sydney Basin")
		assert.Contains(t, out, "not_found")
	})

	t.Run("requires a layers file", func(t *testing.T) {
		_, err := execute(t, testConfig(), "custom", "--input", input)

		require.ErrorIs(t, err, errNoLayers)
	})
}

func TestCompareWithoutRemote(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	input := filepath.Join(dir, "hotspots.csv")
	filet.File(t, input, hotspots)

	out, err := execute(t, testConfig(), "compare", "--input", input, "--skip-remote")

	require.NoError(t, err)
	assert.Contains(t, out, "Method: lowres")
	assert.NotContains(t, out, "Method: remote")
	assert.Contains(t, out, "Summary")
}

func TestBatchCommandErrors(t *testing.T) {
	t.Run("missing input flag", func(t *testing.T) {
		_, err := execute(t, testConfig(), "lowres")

		require.Error(t, err)
	})

	t.Run("unknown policy", func(t *testing.T) {
		cfg := testConfig()

		_, err := execute(t, cfg, "lowres", "--input", "whatever.csv", "--policy", "ignore")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ignore")
	})

	t.Run("runs without storage", func(t *testing.T) {
		_, err := execute(t, testConfig(), "runs")

		require.Error(t, err)
	})
}

func TestSetupLogger(t *testing.T) {
	for _, env := range []string{envLocal, envDev, envProd, "staging"} {
		assert.NotNil(t, setupLogger(env), env)
	}
}
