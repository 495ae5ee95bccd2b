package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const schema = `
	CREATE TABLE IF NOT EXISTS geocoding_runs (
		run_id      UUID PRIMARY KEY,
		method      TEXT NOT NULL,
		input_name  TEXT NOT NULL,
		row_count   INTEGER NOT NULL,
		elapsed_ms  BIGINT NOT NULL,
		summary     JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS hotspot_annotations (
		run_id        UUID NOT NULL REFERENCES geocoding_runs (run_id) ON DELETE CASCADE,
		row_index     INTEGER NOT NULL,
		latitude      DOUBLE PRECISION,
		longitude     DOUBLE PRECISION,
		location_ewkb BYTEA,
		acquired_at   TEXT,
		intensity     DOUBLE PRECISION,
		country       TEXT,
		state         TEXT,
		lga           TEXT,
		status        TEXT NOT NULL,
		error         TEXT,
		PRIMARY KEY (run_id, row_index)
	);
`

const insertRunQuery = `
	INSERT INTO geocoding_runs (run_id, method, input_name, row_count, elapsed_ms, summary)
	VALUES ($1, $2, $3, $4, $5, $6::jsonb);
`

const listRunsQuery = `
	SELECT run_id, method, input_name, row_count, elapsed_ms, created_at
	FROM geocoding_runs
	ORDER BY created_at DESC
	LIMIT $1;
`

var annotationColumns = []string{
	"run_id", "row_index", "latitude", "longitude", "location_ewkb", "acquired_at", "intensity",
	"country", "state", "lga", "status", "error",
}

// RunSummary describes one stored batch.
type RunSummary struct {
	ID        uuid.UUID
	Method    string
	Input     string
	Rows      int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// EnsureSchema creates the result tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveBatch stores one batch result in a single transaction: a geocoding_runs row and one
// hotspot_annotations row per observation, copied in bulk. Rows with invalid coordinates
// are stored without a location.
func (r *Repository) SaveBatch(ctx context.Context, input string, result *models.BatchResult) (uuid.UUID, error) {
	runID := uuid.New()

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	rows := make([][]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		values, errRow := annotationRow(runID, row)
		if errRow != nil {
			return uuid.Nil, errRow
		}
		rows = append(rows, values)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(ctx, insertRunQuery,
		runID, result.Method, input, len(result.Rows), result.Elapsed.Milliseconds(), string(summary))
	if err != nil {
		r.rollback(ctx, tx)
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"hotspot_annotations"}, annotationColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.rollback(ctx, tx)
		return uuid.Nil, fmt.Errorf("failed to copy annotations: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}

	r.log.DebugContext(ctx, "Batch stored", "run", runID, "method", result.Method, "rows", copied)

	return runID, nil
}

// ListRuns returns the most recent runs first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(ctx, listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var elapsedMS int64
		if errScan := rows.Scan(&run.ID, &run.Method, &run.Input, &run.Rows, &elapsedMS, &run.CreatedAt); errScan != nil {
			return nil, fmt.Errorf("failed to scan run: %w", errScan)
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return runs, nil
}

func (r *Repository) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to roll back transaction", "error", err)
	}
}

func annotationRow(runID uuid.UUID, row models.RowResult) ([]any, error) {
	obs := row.Observation

	var lat, lon, location any
	if obs.Valid() == nil {
		point := geom.NewPointFlat(geom.XY, []float64{obs.Coordinates.Longitude, obs.Coordinates.Latitude}).SetSRID(4326)
		encoded, err := ewkb.Marshal(point, ewkb.NDR)
		if err != nil {
			return nil, fmt.Errorf("failed to encode location of row %d: %w", row.Index, err)
		}
		lat, lon, location = obs.Coordinates.Latitude, obs.Coordinates.Longitude, encoded
	}

	var errText any
	if row.Err != nil {
		errText = row.Err.Error()
	}

	return []any{
		runID, row.Index, lat, lon, location, nullable(obs.AcquiredAt), obs.Intensity,
		level(row.Annotation, models.LevelCountry),
		level(row.Annotation, models.LevelState),
		level(row.Annotation, models.LevelLGA),
		string(row.Status), errText,
	}, nil
}

func level(annotation models.PlaceAnnotation, lvl models.AdminLevel) any {
	if name, ok := annotation.Get(lvl); ok {
		return name
	}

	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}

	return value
}
