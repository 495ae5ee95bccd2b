// Package report renders batch results as terminal tables and exports them to CSV and XLSX.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var rowHeaders = []string{"Row", "Latitude", "Longitude", "Country", "State", "LGA", "Status"}

// Options tune the terminal rendering.
type Options struct {
	MaxRows int // Rows shown per method; 0 shows every row.
}

// Render writes one table per method followed by the timing summary.
func Render(w io.Writer, results []*models.BatchResult, opts Options) error {
	for _, result := range results {
		if _, err := fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Method: %s", result.Method))); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if _, err := fmt.Fprintln(w, RowsTable(result, opts.MaxRows)); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if hidden := len(result.Rows) - shownRows(len(result.Rows), opts.MaxRows); hidden > 0 {
			if _, err := fmt.Fprintf(w, "... %d more rows\n", hidden); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}
	}

	if _, err := fmt.Fprintln(w, titleStyle.Render("Summary")); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if _, err := fmt.Fprintln(w, SummaryTable(results)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// RowsTable renders the per-row annotations of one method.
func RowsTable(result *models.BatchResult, maxRows int) string {
	rows := make([][]string, 0, shownRows(len(result.Rows), maxRows))
	for _, row := range result.Rows[:shownRows(len(result.Rows), maxRows)] {
		rows = append(rows, rowCells(row))
	}

	return newTable(rowHeaders, rows)
}

// SummaryTable renders elapsed time and status counts per method.
func SummaryTable(results []*models.BatchResult) string {
	headers := []string{"Method", "Rows", "Elapsed", "Rows/s"}
	for _, status := range models.Statuses() {
		headers = append(headers, string(status))
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		cells := []string{
			result.Method,
			strconv.Itoa(len(result.Rows)),
			result.Elapsed.Round(time.Microsecond).String(),
			throughput(len(result.Rows), result.Elapsed),
		}
		for _, status := range models.Statuses() {
			cells = append(cells, strconv.Itoa(result.Summary[status]))
		}
		rows = append(rows, cells)
	}

	return newTable(headers, rows)
}

func newTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.String()
}

func rowCells(row models.RowResult) []string {
	coords := row.Observation.Coordinates
	return []string{
		strconv.Itoa(row.Index + 1),
		formatCoordinate(coords.Latitude),
		formatCoordinate(coords.Longitude),
		row.Annotation.Display(models.LevelCountry),
		row.Annotation.Display(models.LevelState),
		row.Annotation.Display(models.LevelLGA),
		string(row.Status),
	}
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func throughput(rows int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-"
	}

	return strconv.FormatFloat(float64(rows)/elapsed.Seconds(), 'f', 1, 64)
}

func shownRows(total, maxRows int) int {
	if maxRows <= 0 || maxRows > total {
		return total
	}

	return maxRows
}
