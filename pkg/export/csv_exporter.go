package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content. Rows are keyed by header name so
// exporters stay independent of column ordering at the call site.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// record projects a row onto the header order. Cells without a value
// render empty; timetable rows are assembled in-process, so a missing
// key is a column the caller chose to leave blank, not an error.
func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// CSVExporter renders Dataset records into CSV bytes. The title is not
// emitted; CSV consumers expect the header row first.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := w.Write(data.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
