package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scale-lab/la-core/internal/campaign"
)

// maxValues caps a single generated dimension.
const maxValues = 10000

// IntRangeSpec defines an integer dimension range. When Factor is non-zero the
// range is geometric (Min, Min*Factor, ...) and Step is ignored.
type IntRangeSpec struct {
	Min    int
	Max    int
	Step   int
	Factor int
}

// ParseIntRangeSpec parses "min:max:step" or "min:max:xF" into an IntRangeSpec.
// The second form multiplies by F, so "32:1024:x2" yields the powers of two
// from 32 to 1024.
func ParseIntRangeSpec(s string) (IntRangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return IntRangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step or min:max:xfactor", s)
	}

	min, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return IntRangeSpec{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}

	max, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return IntRangeSpec{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}

	last := strings.TrimSpace(parts[2])
	if f, ok := strings.CutPrefix(last, "x"); ok {
		factor, err := strconv.Atoi(f)
		if err != nil {
			return IntRangeSpec{}, fmt.Errorf("invalid factor %q: %w", last, err)
		}
		if factor < 2 {
			return IntRangeSpec{}, fmt.Errorf("factor must be at least 2, got %d", factor)
		}
		if min <= 0 {
			return IntRangeSpec{}, fmt.Errorf("geometric range needs a positive min, got %d", min)
		}
		return IntRangeSpec{Min: min, Max: max, Factor: factor}, nil
	}

	step, err := strconv.Atoi(last)
	if err != nil {
		return IntRangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}
	if step <= 0 {
		return IntRangeSpec{}, fmt.Errorf("step must be positive, got %d", step)
	}

	return IntRangeSpec{Min: min, Max: max, Step: step}, nil
}

// Values expands the range, inclusive of Max. An inverted or oversized
// range expands to nil.
func (r IntRangeSpec) Values() []int {
	if r.Min > r.Max {
		return nil
	}
	if r.Factor > 1 {
		var out []int
		for v := r.Min; v > 0 && v <= r.Max; v *= r.Factor {
			out = append(out, v)
			if v > r.Max/r.Factor {
				break
			}
		}
		return out
	}
	if r.Step <= 0 {
		return nil
	}
	expected := (r.Max-r.Min)/r.Step + 1
	if expected > maxValues || expected < 0 {
		return nil
	}
	out := make([]int, 0, expected)
	for v := r.Min; v <= r.Max; v += r.Step {
		out = append(out, v)
	}
	return out
}

// ParseIntParamList parses a comma-separated list of integers or a range
// specification. A string containing a colon is treated as a range.
func ParseIntParamList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if strings.Contains(s, ":") {
		spec, err := ParseIntRangeSpec(s)
		if err != nil {
			return nil, err
		}
		values := spec.Values()
		if len(values) == 0 {
			return nil, fmt.Errorf("range %q is empty or exceeds %d values", s, maxValues)
		}
		return values, nil
	}
	return ParseCSVInts(s)
}

// ParseCSVInts parses a comma-separated list of integers, ignoring blanks.
func ParseCSVInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseToggleList parses a comma-separated list of YES/NO values. Case is
// normalised; anything else is an error.
func ParseToggleList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p != campaign.Yes && p != campaign.No {
			return nil, fmt.Errorf("invalid toggle %q: want %s or %s", p, campaign.Yes, campaign.No)
		}
		out = append(out, p)
	}
	return out, nil
}
