package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RateSample is one measurement class of one configuration.
type RateSample struct {
	Identifier string
	Class      string
	Count      int
	Mean       float64
	Peak       float64
}

// WriteRateTextfile writes samples in the Prometheus text exposition format,
// suitable for the node exporter's textfile collector. The file is replaced
// atomically.
func WriteRateTextfile(path, namespace string, samples []RateSample) error {
	reg := prometheus.NewRegistry()

	rate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "campaign",
		Name:      "rate_gflops",
		Help:      "Aggregated benchmark rate per configuration and measurement class.",
	}, []string{"identifier", "class", "stat"})
	count := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "campaign",
		Name:      "measurements",
		Help:      "Number of measurements aggregated per configuration and class.",
	}, []string{"identifier", "class"})

	if err := reg.Register(rate); err != nil {
		return fmt.Errorf("register rate gauge: %w", err)
	}
	if err := reg.Register(count); err != nil {
		return fmt.Errorf("register count gauge: %w", err)
	}

	for _, s := range samples {
		rate.WithLabelValues(s.Identifier, s.Class, "mean").Set(s.Mean)
		rate.WithLabelValues(s.Identifier, s.Class, "peak").Set(s.Peak)
		count.WithLabelValues(s.Identifier, s.Class).Set(float64(s.Count))
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write textfile %s: %w", path, err)
	}
	return nil
}
