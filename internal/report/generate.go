package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/monitoring"
	"github.com/scale-lab/la-core/internal/results"
)

// Generate summarizes rows and writes <kind>_peak.png, <kind>_mean.png and
// <kind>.html under dir. It returns the written paths.
func Generate(fsys fsutil.FileSystem, dir string, profile *campaign.Profile, rows []results.Row) ([]string, error) {
	series, err := Summarize(results.Classes(profile.Extraction), rows)
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	title := string(profile.Kind)
	unit := profile.Extraction.MetricUnit
	var written []string
	write := func(name string, render func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := fsys.Replace(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	for _, st := range []Stat{StatPeak, StatMean} {
		o := PlotOptions{Title: fmt.Sprintf("%s %s rate", title, st), Unit: unit, Stat: st}
		name := fmt.Sprintf("%s_%s.png", title, st)
		if err := write(name, func(b *bytes.Buffer) error { return WritePNG(b, series, o) }); err != nil {
			return written, err
		}
	}
	if err := write(title+".html", func(b *bytes.Buffer) error { return WriteHTML(b, title, unit, series) }); err != nil {
		return written, err
	}

	monitoring.Logf("[report] %d rows, %d sizes, wrote %d files to %s", len(rows), len(Sizes(series)), len(written), dir)
	return written, nil
}
