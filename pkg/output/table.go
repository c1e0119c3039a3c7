package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

// TableWriter buffers record batches and renders them as one table at the
// end of a run. Unlike the CSV sink it cannot flush incrementally; a table
// interleaved with log output would be unreadable.
type TableWriter struct {
	records []extract.Record
}

// NewTableWriter creates a table sink.
func NewTableWriter() *TableWriter {
	return &TableWriter{}
}

// Write implements fetch.Sink.
func (w *TableWriter) Write(records []extract.Record) error {
	w.records = append(w.records, records...)
	return nil
}

// Len returns the number of buffered records.
func (w *TableWriter) Len() int {
	return len(w.records)
}

// Render writes the buffered records as an ASCII table.
func (w *TableWriter) Render(out io.Writer) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(Columns)
	table.SetAutoWrapText(false)

	for _, r := range w.records {
		table.Append([]string{
			r.Pipeline,
			r.ProjectID,
			r.ExecutionURL,
			r.ServiceName,
			r.EndTime,
			r.StartTime,
			r.EnvironmentName,
			r.Status,
			r.Duration,
		})
	}

	table.Render()
}
