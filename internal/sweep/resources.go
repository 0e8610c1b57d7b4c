package sweep

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/scale-lab/la-core/internal/campaign"
)

var (
	memoryPattern = regexp.MustCompile(`^\d+[KMGT]$`)
	timePattern   = regexp.MustCompile(`^(\d+-)?\d{2}:[0-5]\d:[0-5]\d$`)
)

// Tables maps a discriminating parameter value (e.g. the problem size) to
// the memory and wall-clock ceilings requested from the scheduler.
type Tables struct {
	Memory map[string]string `json:"memory" yaml:"memory"`
	Time   map[string]string `json:"time" yaml:"time"`
}

// Validate checks that every memory value looks like "64G", every time value
// like "01:00:00" or "1-00:00:00", and that both tables share the same keys.
func (t Tables) Validate() error {
	for k, v := range t.Memory {
		if !memoryPattern.MatchString(v) {
			return &campaign.ConfigError{Key: "resources.memory." + k, Value: v, Reason: "want <n>[KMGT]"}
		}
		if _, ok := t.Time[k]; !ok {
			return &campaign.ConfigError{Key: "resources.time", Value: k, Reason: "no time limit for this key"}
		}
	}
	for k, v := range t.Time {
		if !timePattern.MatchString(v) {
			return &campaign.ConfigError{Key: "resources.time." + k, Value: v, Reason: "want [D-]HH:MM:SS"}
		}
		if _, ok := t.Memory[k]; !ok {
			return &campaign.ConfigError{Key: "resources.memory", Value: k, Reason: "no memory limit for this key"}
		}
	}
	return nil
}

// Keys returns the table keys, numerically sorted where possible.
func (t Tables) Keys() []string {
	keys := make([]string, 0, len(t.Memory))
	for k := range t.Memory {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Request is the resource ceiling of one job.
type Request struct {
	Memory string
	Time   string
}

// Estimator derives a Request by exact-match lookup. There is no fallback:
// a value missing from either table fails the leaf.
type Estimator struct {
	key    string
	tables Tables
}

// NewEstimator returns an Estimator looking up the parameter named key.
func NewEstimator(key string, tables Tables) *Estimator {
	return &Estimator{key: key, tables: tables}
}

// Estimate returns the request for ps or a ConfigError naming the unmapped
// key and value.
func (e *Estimator) Estimate(ps campaign.ParameterSet) (Request, error) {
	v, ok := ps.Get(e.key)
	if !ok {
		return Request{}, &campaign.ConfigError{Key: e.key, Reason: "missing from parameter set; cannot size job"}
	}
	mem, ok := e.tables.Memory[v]
	if !ok {
		return Request{}, &campaign.ConfigError{Key: e.key, Value: v, Reason: "no memory table entry"}
	}
	limit, ok := e.tables.Time[v]
	if !ok {
		return Request{}, &campaign.ConfigError{Key: e.key, Value: v, Reason: "no time table entry"}
	}
	return Request{Memory: mem, Time: limit}, nil
}

func (r Request) String() string {
	return fmt.Sprintf("mem=%s time=%s", r.Memory, r.Time)
}
