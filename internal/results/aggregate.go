package results

import "github.com/scale-lab/la-core/internal/campaign"

// Accumulator is the running reduction of one class.
type Accumulator struct {
	Count int
	Sum   float64
	Max   float64
}

// Add folds v into the accumulator.
func (a *Accumulator) Add(v float64) {
	if a.Count == 0 || v > a.Max {
		a.Max = v
	}
	a.Count++
	a.Sum += v
}

// Metrics are the reported statistics of one class, rescaled by the
// profile divisor.
type Metrics struct {
	Count int
	Mean  float64
	Peak  float64
}

// Metrics rescales the accumulator. An empty accumulator yields zeros.
func (a Accumulator) Metrics(divisor float64) Metrics {
	if a.Count == 0 {
		return Metrics{}
	}
	if divisor == 0 {
		divisor = 1
	}
	return Metrics{
		Count: a.Count,
		Mean:  a.Sum / float64(a.Count) / divisor,
		Peak:  a.Max / divisor,
	}
}

// Row is the aggregated result of one artifact.
type Row struct {
	Identifier string
	Params     campaign.ParameterSet
	// Metrics follows the order of the aggregator's classes.
	Metrics []Metrics
	// Empty is set when the artifact held no measurement at all.
	Empty bool
}

// Aggregator reduces the measurements of one artifact to a Row.
type Aggregator struct {
	classes []Class
	divisor float64
}

// NewAggregator returns an Aggregator for profile.
func NewAggregator(profile campaign.Extraction) *Aggregator {
	return &Aggregator{classes: Classes(profile), divisor: profile.Divisor}
}

// Classes returns the aggregator's classes in column order.
func (g *Aggregator) Classes() []Class {
	return g.classes
}

// Aggregate reduces ms into one Metrics per class.
func (g *Aggregator) Aggregate(id string, params campaign.ParameterSet, ms []Measurement) Row {
	acc := make([]Accumulator, len(g.classes))
	for _, m := range ms {
		for i, c := range g.classes {
			if c.Reference == m.Reference && c.Transposed == m.Transposed {
				acc[i].Add(m.Value)
				break
			}
		}
	}
	row := Row{Identifier: id, Params: params, Metrics: make([]Metrics, len(g.classes)), Empty: len(ms) == 0}
	for i, a := range acc {
		row.Metrics[i] = a.Metrics(g.divisor)
	}
	return row
}
