// Package results reads the artifacts written by campaign jobs back into a
// single table: one row per configuration, with count, mean and peak for
// every measurement class.
package results

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/scale-lab/la-core/internal/campaign"
)

// maxLineBytes bounds a single artifact line. Simulator logs can carry long
// statistics dumps.
const maxLineBytes = 1 << 20

// Class is a measurement classification, e.g. the reference library's
// transposed runs.
type Class struct {
	Name       string
	Reference  bool
	Transposed bool
}

// Classes returns the classes of an extraction profile in column order:
// primary before reference, normal before transposed.
func Classes(e campaign.Extraction) []Class {
	split := len(e.TransposeMarkers) > 0
	var out []Class
	for _, ref := range []bool{false, true} {
		label := e.PrimaryLabel
		if ref {
			label = e.ReferenceLabel
		}
		if !split {
			out = append(out, Class{Name: label, Reference: ref})
			continue
		}
		out = append(out,
			Class{Name: label + "_norm", Reference: ref},
			Class{Name: label + "_trns", Reference: ref, Transposed: true})
	}
	return out
}

// Measurement is one value read from an artifact line, in the artifact's
// raw unit.
type Measurement struct {
	Value      float64
	Reference  bool
	Transposed bool
	Line       int
}

// ExtractStats counts what Extract saw.
type ExtractStats struct {
	Lines       int
	MarkerLines int
	// Unmatched marker lines carried no value followed by the unit.
	Unmatched int
	// Extra marker lines carried more than two values; only the first was
	// kept.
	Extra int
}

// Extractor pulls measurements out of artifact text.
type Extractor struct {
	profile campaign.Extraction
	value   *regexp.Regexp
}

// NewExtractor compiles the value pattern for profile: a decimal number, a
// single space and the unit token.
func NewExtractor(profile campaign.Extraction) *Extractor {
	pattern := `(?:^|[^\d.])(\d+(?:\.\d*)?|\.\d+) ` + regexp.QuoteMeta(profile.Unit)
	return &Extractor{profile: profile, value: regexp.MustCompile(pattern)}
}

// Extract scans r line by line. Only lines starting with the profile marker
// are considered, and a considered line without a match is skipped rather
// than treated as malformed. The first value on a line belongs to the
// implementation under test; a second value, present only when the line has
// exactly two, belongs to the reference library.
func (x *Extractor) Extract(r io.Reader) ([]Measurement, ExtractStats, error) {
	var (
		out   []Measurement
		stats ExtractStats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		stats.Lines++
		line := sc.Text()
		if !strings.HasPrefix(line, x.profile.Marker) {
			continue
		}
		stats.MarkerLines++

		values := x.values(line)
		if len(values) == 0 {
			stats.Unmatched++
			continue
		}
		transposed := x.transposed(line)
		out = append(out, Measurement{Value: values[0], Transposed: transposed, Line: stats.Lines})
		switch {
		case len(values) == 2:
			out = append(out, Measurement{Value: values[1], Reference: true, Transposed: transposed, Line: stats.Lines})
		case len(values) > 2:
			stats.Extra++
		}
	}
	if err := sc.Err(); err != nil {
		return out, stats, fmt.Errorf("reading line %d: %w", stats.Lines+1, err)
	}
	return out, stats, nil
}

func (x *Extractor) values(line string) []float64 {
	matches := x.value.FindAllStringSubmatch(line, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (x *Extractor) transposed(line string) bool {
	for _, marker := range x.profile.TransposeMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
