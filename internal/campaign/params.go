// Package campaign defines the vocabulary shared by the sweep generator and
// the result aggregator: parameter sets, the identifier codec that names every
// configuration, and the per-benchmark sweep kinds.
package campaign

import (
	"strconv"
	"strings"
)

// Toggle values used by structural parameters.
const (
	Yes = "YES"
	No  = "NO"
)

// ParameterSet is an ordered mapping from parameter name to value. The zero
// value is empty and ready to use.
//
// With returns a new set and never mutates the receiver, so sibling sweep
// branches built from the same parent cannot see each other's keys.
type ParameterSet struct {
	keys   []string
	values map[string]string
}

// NewParameterSet builds a set from alternating key, value pairs.
// It panics on an odd number of arguments.
func NewParameterSet(kv ...string) ParameterSet {
	if len(kv)%2 != 0 {
		panic("campaign: NewParameterSet needs key/value pairs")
	}
	var ps ParameterSet
	for i := 0; i < len(kv); i += 2 {
		ps = ps.With(kv[i], kv[i+1])
	}
	return ps
}

// With returns a copy of ps with key set to value. An existing key keeps its
// position; a new key is appended.
func (ps ParameterSet) With(key, value string) ParameterSet {
	out := ParameterSet{
		keys:   make([]string, len(ps.keys), len(ps.keys)+1),
		values: make(map[string]string, len(ps.values)+1),
	}
	copy(out.keys, ps.keys)
	for k, v := range ps.values {
		out.values[k] = v
	}
	if _, ok := out.values[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

// WithInt is With for integer values.
func (ps ParameterSet) WithInt(key string, value int) ParameterSet {
	return ps.With(key, strconv.Itoa(value))
}

// Get returns the value for key and whether it is present.
func (ps ParameterSet) Get(key string) (string, bool) {
	v, ok := ps.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (ps ParameterSet) Value(key string) string {
	return ps.values[key]
}

// Int returns the value for key parsed as an integer.
func (ps ParameterSet) Int(key string) (int, error) {
	v, ok := ps.values[key]
	if !ok {
		return 0, &ConfigError{Key: key, Reason: "missing parameter"}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Value: v, Reason: "not an integer"}
	}
	return n, nil
}

// Enabled reports whether the toggle key is set to YES.
func (ps ParameterSet) Enabled(key string) bool {
	return ps.values[key] == Yes
}

// Keys returns the keys in insertion order.
func (ps ParameterSet) Keys() []string {
	out := make([]string, len(ps.keys))
	copy(out, ps.keys)
	return out
}

// Len returns the number of parameters.
func (ps ParameterSet) Len() int {
	return len(ps.keys)
}

// Equal reports whether both sets hold the same keys in the same order with
// the same values.
func (ps ParameterSet) Equal(other ParameterSet) bool {
	if len(ps.keys) != len(other.keys) {
		return false
	}
	for i, k := range ps.keys {
		if other.keys[i] != k || other.values[k] != ps.values[k] {
			return false
		}
	}
	return true
}

// Restrict returns a set holding only the given keys, in the given order.
// Keys missing from ps are skipped.
func (ps ParameterSet) Restrict(keys []string) ParameterSet {
	var out ParameterSet
	for _, k := range keys {
		if v, ok := ps.values[k]; ok {
			out = out.With(k, v)
		}
	}
	return out
}

func (ps ParameterSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range ps.keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(ps.values[k])
	}
	b.WriteByte('}')
	return b.String()
}
