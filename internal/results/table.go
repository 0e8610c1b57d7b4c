package results

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/fsutil"
)

// TableWriter renders rows as a tab-separated table.
type TableWriter struct {
	schema  *campaign.Schema
	classes []Class
	unit    string
}

// NewTableWriter returns a TableWriter for one sweep kind.
func NewTableWriter(profile *campaign.Profile) *TableWriter {
	return &TableWriter{
		schema:  profile.Schema,
		classes: Classes(profile.Extraction),
		unit:    profile.Extraction.MetricUnit,
	}
}

// Header returns the column names: identifier keys in schema order, then
// count, mean and peak for each class.
func (w *TableWriter) Header() []string {
	header := w.schema.Keys()
	for _, c := range w.classes {
		header = append(header,
			c.Name+"_count",
			c.Name+"_ave_"+w.unit,
			c.Name+"_peak_"+w.unit)
	}
	return header
}

// Record formats one row in header order.
func (w *TableWriter) Record(row Row) []string {
	rec := make([]string, 0, len(w.schema.Fields)+3*len(w.classes))
	for _, f := range w.schema.Fields {
		rec = append(rec, row.Params.Value(f.Param))
	}
	for i := range w.classes {
		var m Metrics
		if i < len(row.Metrics) {
			m = row.Metrics[i]
		}
		rec = append(rec,
			fmt.Sprintf("%d", m.Count),
			fmt.Sprintf("%.6f", m.Mean),
			fmt.Sprintf("%.6f", m.Peak))
	}
	return rec
}

// Encode renders the header and rows, in the given order.
func (w *TableWriter) Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = '\t'
	if err := cw.Write(w.Header()); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := cw.Write(w.Record(row)); err != nil {
			return nil, fmt.Errorf("row %s: %w", row.Identifier, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with the encoded table in a single write.
func (w *TableWriter) WriteFile(fsys fsutil.FileSystem, path string, rows []Row) error {
	data, err := w.Encode(rows)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	if err := fsys.Replace(path, data, 0o644); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}
	return nil
}
