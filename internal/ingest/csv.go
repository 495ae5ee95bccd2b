// Package ingest reads hotspot observations from CSV exports such as NASA FIRMS.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/jszwec/csvutil"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("required column missing")

// ErrUnknownPolicy is returned for an unrecognised invalid-row policy.
var ErrUnknownPolicy = errors.New("unknown invalid row policy")

// Policy decides what happens to rows with invalid coordinates.
type Policy string

const (
	// PolicySkip keeps the row in the batch flagged as invalid.
	PolicySkip Policy = "skip"
	// PolicyReject fails the whole load on the first invalid row.
	PolicyReject Policy = "reject"
)

// ParsePolicy maps a configuration value to a Policy. Empty means skip.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

var requiredColumns = []string{"latitude", "longitude"}

// record is one CSV line. Numbers are decoded as text so that a malformed value
// flags its row instead of aborting the decoder.
type record struct {
	Latitude   string `csv:"latitude"`
	Longitude  string `csv:"longitude"`
	AcqDate    string `csv:"acq_date,omitempty"`
	AcqTime    string `csv:"acq_time,omitempty"`
	Brightness string `csv:"brightness,omitempty"`
	BrightTI4  string `csv:"bright_ti4,omitempty"`
	FRP        string `csv:"frp,omitempty"`
}

// columns maps a ragged row onto a record by header position.
var columns = map[string]func(*record) *string{
	"latitude":   func(r *record) *string { return &r.Latitude },
	"longitude":  func(r *record) *string { return &r.Longitude },
	"acq_date":   func(r *record) *string { return &r.AcqDate },
	"acq_time":   func(r *record) *string { return &r.AcqTime },
	"brightness": func(r *record) *string { return &r.Brightness },
	"bright_ti4": func(r *record) *string { return &r.BrightTI4 },
	"frp":        func(r *record) *string { return &r.FRP },
}

// raggedRecord fills a record from a row whose field count differs from the header.
// Columns past the end of the row stay empty.
func raggedRecord(header, fields []string) record {
	var rec record
	for i, name := range header {
		field, ok := columns[name]
		if !ok || i >= len(fields) {
			continue
		}
		*field(&rec) = fields[i]
	}

	return rec
}

// LoadFile reads observations from the CSV file at path.
func LoadFile(log *slog.Logger, path string, policy Policy) ([]models.Observation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer file.Close()

	observations, err := Read(log, file, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return observations, nil
}

// Read decodes observations from CSV with a header line. Header names are matched
// case-insensitively and unknown columns are ignored.
func Read(log *slog.Logger, r io.Reader, policy Policy) ([]models.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}
	for _, column := range requiredColumns {
		if !containsColumn(header, column) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	var observations []models.Observation
	var invalid int
	for row := 0; ; row++ {
		var rec record
		if err = dec.Decode(&rec); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return finish(log, observations, invalid), nil
			case errors.Is(err, csvutil.ErrFieldCount):
				log.Debug("Row field count differs from header", "row", row+1, "fields", len(dec.Record()))
				rec = raggedRecord(header, dec.Record())
			default:
				return nil, fmt.Errorf("failed to read row %d: %w", row+1, err)
			}
		}

		obs := rec.observation(row)
		if obs.Err != nil {
			if policy == PolicyReject {
				return nil, fmt.Errorf("row %d: %w", row+1, obs.Err)
			}
			invalid++
			log.Debug("Invalid coordinate in input", "row", row+1, "error", obs.Err)
		}
		observations = append(observations, obs)
	}
}

func finish(log *slog.Logger, observations []models.Observation, invalid int) []models.Observation {
	if invalid > 0 {
		log.Warn("Input contains rows with invalid coordinates", "rows", invalid, "total", len(observations))
	}

	return observations
}

func (rec record) observation(row int) models.Observation {
	obs := models.Observation{Row: row, AcquiredAt: strings.TrimSpace(rec.AcqDate + " " + rec.AcqTime)}

	lat, err := parseFloat("latitude", rec.Latitude)
	if err != nil {
		obs.Err = err
		return obs
	}
	lon, err := parseFloat("longitude", rec.Longitude)
	if err != nil {
		obs.Err = err
		return obs
	}

	obs.Coordinates = models.Coordinates{Latitude: lat, Longitude: lon}
	obs.Err = obs.Coordinates.Validate()

	obs.Intensity = rec.intensity()

	return obs
}

// intensity prefers the MODIS brightness, then the VIIRS I-4 brightness, then the
// fire radiative power. Zero when none parses.
func (rec record) intensity() float64 {
	for _, value := range []string{rec.Brightness, rec.BrightTI4, rec.FRP} {
		if intensity, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return intensity
		}
	}

	return 0
}

func parseFloat(column, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", models.ErrInvalidCoordinate, column, value)
	}

	return f, nil
}

func containsColumn(header []string, column string) bool {
	for _, name := range header {
		if name == column {
			return true
		}
	}

	return false
}
