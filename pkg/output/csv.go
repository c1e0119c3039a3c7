// Package output provides the report sinks: incremental CSV files and
// rendered summary tables.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

// URLStyle selects how the Execution URL column is rendered.
type URLStyle string

const (
	// URLStyleLink writes the plain URL.
	URLStyleLink URLStyle = "link"

	// URLStyleFormula writes a spreadsheet HYPERLINK formula so the cell
	// is clickable when the CSV is opened in Excel or Sheets.
	URLStyleFormula URLStyle = "formula"
)

// Columns is the fixed output column set, in order.
var Columns = []string{
	"Pipeline",
	"Project ID",
	"Execution URL",
	"Service Name",
	"End Time",
	"Start Time",
	"Environment Name",
	"Status",
	"Duration",
}

// CSVWriter writes record batches to a CSV file incrementally. The first
// batch creates the file and writes the header; later batches append.
// Batches flushed before a run aborts stay on disk.
type CSVWriter struct {
	path        string
	style       URLStyle
	initialized bool
	logger      zerolog.Logger
}

// NewCSVWriter creates a CSV sink for the given path.
func NewCSVWriter(path string, style URLStyle) *CSVWriter {
	if style == "" {
		style = URLStyleLink
	}
	return &CSVWriter{
		path:   path,
		style:  style,
		logger: log.With().Str("component", "csv-writer").Logger(),
	}
}

// Write implements fetch.Sink. An empty batch is a no-op.
func (w *CSVWriter) Write(records []extract.Record) error {
	if len(records) == 0 {
		return nil
	}

	flags := os.O_WRONLY | os.O_CREATE
	if w.initialized {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)

	if !w.initialized {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for _, r := range records {
		if err := cw.Write(w.row(r)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}

	if w.initialized {
		w.logger.Info().
			Str("path", w.path).
			Int("records", len(records)).
			Msg("Appended records")
	} else {
		w.logger.Info().
			Str("path", w.path).
			Int("records", len(records)).
			Msg("Created CSV file")
	}

	w.initialized = true
	return nil
}

// Path returns the output file path.
func (w *CSVWriter) Path() string {
	return w.path
}

// row renders one record in column order.
func (w *CSVWriter) row(r extract.Record) []string {
	return []string{
		r.Pipeline,
		r.ProjectID,
		w.renderURL(r),
		r.ServiceName,
		r.EndTime,
		r.StartTime,
		r.EnvironmentName,
		r.Status,
		r.Duration,
	}
}

// renderURL applies the configured URL style.
func (w *CSVWriter) renderURL(r extract.Record) string {
	if w.style != URLStyleFormula {
		return r.ExecutionURL
	}

	label := r.Pipeline
	if label == "" {
		label = "Open"
	}
	return fmt.Sprintf(`=HYPERLINK(%s,%s)`, formulaQuote(r.ExecutionURL), formulaQuote(label))
}

// formulaQuote quotes a string for a spreadsheet formula argument, doubling
// embedded double quotes.
func formulaQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
