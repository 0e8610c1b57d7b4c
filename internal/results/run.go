package results

import (
	"fmt"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/monitoring"
)

// Options controls Collect.
type Options struct {
	OutputDir string
	// SkipEmpty leaves artifacts without any measurement out of the rows.
	SkipEmpty bool
}

// Summary counts what Collect did.
type Summary struct {
	Scanned int
	Skipped int
	Empty   int
	Rows    int
	// Unreadable artifacts matched the grammar but could not be read.
	Unreadable int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d artifacts scanned, %d rows, %d skipped names, %d empty, %d unreadable",
		s.Scanned, s.Rows, s.Skipped, s.Empty, s.Unreadable)
}

// Collect scans the output directory and aggregates every artifact into a
// row, in scan order. Unreadable and misnamed artifacts reduce the row count
// but do not stop the scan.
func Collect(fsys fsutil.FileSystem, profile *campaign.Profile, opts Options) ([]Row, Summary, error) {
	scanner := NewScanner(fsys, opts.OutputDir, profile.Schema)
	artifacts, skips, err := scanner.Scan()
	if err != nil {
		return nil, Summary{}, err
	}

	sum := Summary{Scanned: len(artifacts) + len(skips), Skipped: len(skips)}
	extractor := NewExtractor(profile.Extraction)
	aggregator := NewAggregator(profile.Extraction)

	var rows []Row
	for _, a := range artifacts {
		ms, stats, err := extractArtifact(fsys, extractor, a.Path)
		if err != nil {
			monitoring.Logf("[aggregate] %s: %v", a.Path, err)
			sum.Unreadable++
			continue
		}
		if stats.Extra > 0 {
			monitoring.Logf("[aggregate] %s: %d lines had more than two values; kept the first", a.Path, stats.Extra)
		}
		row := aggregator.Aggregate(a.Identifier, a.Params, ms)
		if row.Empty {
			sum.Empty++
			monitoring.Logf("[aggregate] %s: no measurement lines in %d lines (%d marker lines); job may still be running or was killed",
				a.Path, stats.Lines, stats.MarkerLines)
			if opts.SkipEmpty {
				continue
			}
		}
		rows = append(rows, row)
	}
	sum.Rows = len(rows)
	return rows, sum, nil
}

func extractArtifact(fsys fsutil.FileSystem, x *Extractor, path string) ([]Measurement, ExtractStats, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, ExtractStats{}, err
	}
	defer f.Close()
	return x.Extract(f)
}
