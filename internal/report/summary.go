// Package report turns aggregated campaign rows into per-class rate curves
// over problem size and renders them as PNG plots and an HTML chart page.
package report

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/results"
)

// Point summarizes one class at one problem size across every configuration
// that produced measurements for it.
type Point struct {
	Size int
	// Configs is the number of configurations that contributed.
	Configs int
	// Mean is the mean of the per-configuration mean rates.
	Mean float64
	// StdDev is the spread of the per-configuration means; zero with a single
	// configuration.
	StdDev float64
	// Peak is the best rate any configuration reached.
	Peak float64
}

// Series is the curve of one measurement class.
type Series struct {
	Class  string
	Points []Point
}

// Summarize groups rows by problem size and reduces each class per size.
// Rows whose class count is zero do not contribute to that class, so a size
// appears in a series only when at least one configuration measured it.
func Summarize(classes []results.Class, rows []results.Row) ([]Series, error) {
	type samples struct{ means, peaks []float64 }
	bySize := make([]map[int]*samples, len(classes))
	for i := range bySize {
		bySize[i] = make(map[int]*samples)
	}

	for _, row := range rows {
		size, err := ProblemSize(row.Params)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.Identifier, err)
		}
		for i := range classes {
			if i >= len(row.Metrics) || row.Metrics[i].Count == 0 {
				continue
			}
			s := bySize[i][size]
			if s == nil {
				s = &samples{}
				bySize[i][size] = s
			}
			s.means = append(s.means, row.Metrics[i].Mean)
			s.peaks = append(s.peaks, row.Metrics[i].Peak)
		}
	}

	out := make([]Series, len(classes))
	for i, c := range classes {
		out[i].Class = c.Name
		sizes := make([]int, 0, len(bySize[i]))
		for size := range bySize[i] {
			sizes = append(sizes, size)
		}
		sort.Ints(sizes)
		for _, size := range sizes {
			s := bySize[i][size]
			p := Point{
				Size:    size,
				Configs: len(s.means),
				Mean:    stat.Mean(s.means, nil),
				Peak:    floats.Max(s.peaks),
			}
			if len(s.means) > 1 {
				p.StdDev = stat.StdDev(s.means, nil)
			}
			out[i].Points = append(out[i].Points, p)
		}
	}
	return out, nil
}

// ProblemSize returns the workload size of a configuration. Kinds that sweep
// a log size derive it as a power of two.
func ProblemSize(ps campaign.ParameterSet) (int, error) {
	if _, ok := ps.Get(campaign.ParamSize); ok {
		return ps.Int(campaign.ParamSize)
	}
	log, err := ps.Int(campaign.ParamLogSize)
	if err != nil {
		return 0, err
	}
	if log < 0 || log > 62 {
		return 0, &campaign.ConfigError{Key: campaign.ParamLogSize, Value: fmt.Sprint(log), Reason: "out of range"}
	}
	return 1 << log, nil
}

// Sizes returns the union of sizes across series, ascending.
func Sizes(series []Series) []int {
	seen := make(map[int]bool)
	for _, s := range series {
		for _, p := range s.Points {
			seen[p.Size] = true
		}
	}
	out := make([]int, 0, len(seen))
	for size := range seen {
		out = append(out, size)
	}
	sort.Ints(out)
	return out
}

func log2(n int) float64 {
	return math.Log2(float64(n))
}
