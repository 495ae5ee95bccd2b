package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/jszwec/csvutil"
	"github.com/tealeg/xlsx/v2"
)

// Record is one exported row.
type Record struct {
	Method     string  `csv:"method"`
	Row        int     `csv:"row"`
	Latitude   float64 `csv:"latitude"`
	Longitude  float64 `csv:"longitude"`
	AcquiredAt string  `csv:"acq_date"`
	Intensity  float64 `csv:"brightness"`
	Country    string  `csv:"country"`
	State      string  `csv:"state"`
	LGA        string  `csv:"lga"`
	Status     string  `csv:"status"`
	Error      string  `csv:"error,omitempty"`
}

var recordHeaders = []string{
	"method", "row", "latitude", "longitude", "acq_date", "brightness", "country", "state", "lga", "status", "error",
}

// Records flattens results into exportable rows, method by method.
func Records(results []*models.BatchResult) []Record {
	var records []Record
	for _, result := range results {
		for _, row := range result.Rows {
			records = append(records, newRecord(result.Method, row))
		}
	}

	return records
}

func newRecord(method string, row models.RowResult) Record {
	rec := Record{
		Method:     method,
		Row:        row.Index + 1,
		Latitude:   row.Observation.Coordinates.Latitude,
		Longitude:  row.Observation.Coordinates.Longitude,
		AcquiredAt: row.Observation.AcquiredAt,
		Intensity:  row.Observation.Intensity,
		Country:    row.Annotation.Display(models.LevelCountry),
		State:      row.Annotation.Display(models.LevelState),
		LGA:        row.Annotation.Display(models.LevelLGA),
		Status:     string(row.Status),
	}
	if row.Err != nil {
		rec.Error = row.Err.Error()
	}

	return rec
}

// WriteCSV writes every row of every method with a header line.
func WriteCSV(w io.Writer, results []*models.BatchResult) error {
	writer := csv.NewWriter(w)
	enc := csvutil.NewEncoder(writer)

	for _, rec := range Records(results) {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	return nil
}

// SaveCSV writes the CSV export to path.
func SaveCSV(path string, results []*models.BatchResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err = WriteCSV(file, results); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

// SaveXLSX writes a workbook with one sheet per method and a summary sheet.
func SaveXLSX(path string, results []*models.BatchResult) error {
	file := xlsx.NewFile()

	for _, result := range results {
		sheet, err := file.AddSheet(sheetName(result.Method))
		if err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", result.Method, err)
		}
		addStrings(sheet.AddRow(), recordHeaders...)
		for _, row := range result.Rows {
			rec := newRecord(result.Method, row)
			xrow := sheet.AddRow()
			xrow.AddCell().SetString(rec.Method)
			xrow.AddCell().SetInt(rec.Row)
			xrow.AddCell().SetFloat(rec.Latitude)
			xrow.AddCell().SetFloat(rec.Longitude)
			xrow.AddCell().SetString(rec.AcquiredAt)
			xrow.AddCell().SetFloat(rec.Intensity)
			addStrings(xrow, rec.Country, rec.State, rec.LGA, rec.Status, rec.Error)
		}
	}

	summary, err := file.AddSheet("summary")
	if err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	header := []string{"method", "rows", "elapsed_seconds"}
	for _, status := range models.Statuses() {
		header = append(header, string(status))
	}
	addStrings(summary.AddRow(), header...)
	for _, result := range results {
		xrow := summary.AddRow()
		xrow.AddCell().SetString(result.Method)
		xrow.AddCell().SetInt(len(result.Rows))
		xrow.AddCell().SetFloat(result.Elapsed.Seconds())
		for _, status := range models.Statuses() {
			xrow.AddCell().SetInt(result.Summary[status])
		}
	}

	if err = file.Save(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	return nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// sheetName keeps within the 31 character limit of sheet names and clear of the summary sheet.
func sheetName(method string) string {
	const maxSheetName = 31
	if len(method) > maxSheetName {
		return method[:maxSheetName]
	}
	if method == "summary" {
		return "method-summary"
	}

	return method
}
