package models

import "time"

// RowStatus is the outcome of annotating a single observation.
type RowStatus string

const (
	StatusOK                RowStatus = "ok"
	StatusNotFound          RowStatus = "not_found"
	StatusInvalidCoordinate RowStatus = "invalid_coordinate"
	StatusRemoteFailure     RowStatus = "remote_failure"
	StatusWorkerFailure     RowStatus = "worker_failure"
	StatusCancelled         RowStatus = "cancelled"
)

// Statuses returns every row status in reporting order.
func Statuses() []RowStatus {
	return []RowStatus{
		StatusOK,
		StatusNotFound,
		StatusInvalidCoordinate,
		StatusRemoteFailure,
		StatusWorkerFailure,
		StatusCancelled,
	}
}

// RowResult holds the annotation of one observation.
type RowResult struct {
	Index       int
	Observation Observation
	Annotation  PlaceAnnotation
	Status      RowStatus
	Err         error
}

// Summary counts rows per status.
type Summary map[RowStatus]int

// BatchResult is the output of one method over one batch.
type BatchResult struct {
	Method  string
	Rows    []RowResult
	Elapsed time.Duration
	Summary Summary
}

// NewBatchResult builds a result and its summary from rows already ordered by index.
func NewBatchResult(method string, rows []RowResult, elapsed time.Duration) *BatchResult {
	summary := make(Summary, len(Statuses()))
	for _, row := range rows {
		summary[row.Status]++
	}

	return &BatchResult{Method: method, Rows: rows, Elapsed: elapsed, Summary: summary}
}

// StatusFor derives the row status from a lookup outcome.
func StatusFor(annotation PlaceAnnotation) RowStatus {
	if annotation.Found() {
		return StatusOK
	}

	return StatusNotFound
}
