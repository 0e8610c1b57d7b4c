package campaign

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PairSeparator joins key=value pairs inside an identifier.
	PairSeparator = "_"
	// KeyValueSeparator splits a pair into key and value.
	KeyValueSeparator = "="
)

// ErrMalformedIdentifier is wrapped by every Parse failure.
var ErrMalformedIdentifier = errors.New("malformed configuration identifier")

// Field maps a parameter name to the short key it is written under in an
// identifier, e.g. use_scratch -> useSCH.
type Field struct {
	Key   string
	Param string
}

// Schema is the versioned, ordered field list that turns a ParameterSet into
// a configuration identifier and back. The identifier is used as the batch job
// name and as the artifact filename, so Build and Parse must stay exact
// inverses for a given schema version.
type Schema struct {
	Version int
	Fields  []Field
}

// Validate checks that field keys are unique, non-empty and free of the
// key/value separator and path characters. A key may contain PairSeparator.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("identifier schema has no fields")
	}
	seenKeys := make(map[string]bool, len(s.Fields))
	seenParams := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Key == "" || f.Param == "" {
			return fmt.Errorf("identifier schema field %+v is incomplete", f)
		}
		if strings.ContainsAny(f.Key, KeyValueSeparator+"/") {
			return fmt.Errorf("identifier key %q contains a separator", f.Key)
		}
		if seenKeys[f.Key] {
			return fmt.Errorf("identifier key %q repeated", f.Key)
		}
		if seenParams[f.Param] {
			return fmt.Errorf("identifier parameter %q repeated", f.Param)
		}
		seenKeys[f.Key] = true
		seenParams[f.Param] = true
	}
	return nil
}

// Keys returns the identifier keys in schema order.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Key
	}
	return out
}

// Params returns the parameter names in schema order.
func (s *Schema) Params() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Param
	}
	return out
}

// GlobPattern matches artifact names produced with this schema.
func (s *Schema) GlobPattern() string {
	return s.Fields[0].Key + KeyValueSeparator + "*"
}

// Build formats ps as key=value pairs joined by PairSeparator. A missing
// parameter, an empty value, or a value containing a separator or a path
// separator is a ConfigError naming the offending parameter.
func (s *Schema) Build(ps ParameterSet) (string, error) {
	var b strings.Builder
	for i, f := range s.Fields {
		v, ok := ps.Get(f.Param)
		if !ok {
			return "", &ConfigError{Key: f.Param, Reason: "missing from parameter set"}
		}
		if v == "" {
			return "", &ConfigError{Key: f.Param, Reason: "empty value"}
		}
		if strings.ContainsAny(v, PairSeparator+KeyValueSeparator+"/") {
			return "", configErrorf(f.Param, v, "value contains a reserved character (%q, %q or %q)",
				PairSeparator, KeyValueSeparator, "/")
		}
		if i > 0 {
			b.WriteString(PairSeparator)
		}
		b.WriteString(f.Key)
		b.WriteString(KeyValueSeparator)
		b.WriteString(v)
	}
	return b.String(), nil
}

// Parse decodes an identifier into a ParameterSet keyed by parameter name.
// The identifier must carry exactly the schema's keys in schema order. Keys
// may contain PairSeparator (log_size); values never do, so each value ends
// at the next PairSeparator.
func (s *Schema) Parse(id string) (ParameterSet, error) {
	var ps ParameterSet
	rest := id
	for i, f := range s.Fields {
		prefix := f.Key + KeyValueSeparator
		if i > 0 {
			prefix = PairSeparator + prefix
		}
		if !strings.HasPrefix(rest, prefix) {
			return ParameterSet{}, fmt.Errorf("%w %q: field %d is not %q",
				ErrMalformedIdentifier, id, i, f.Key)
		}
		rest = rest[len(prefix):]

		value := rest
		if j := strings.Index(rest, PairSeparator); j >= 0 {
			value = rest[:j]
		}
		rest = rest[len(value):]
		if value == "" || strings.Contains(value, KeyValueSeparator) {
			return ParameterSet{}, fmt.Errorf("%w %q: bad value %q for %s",
				ErrMalformedIdentifier, id, value, f.Key)
		}
		ps = ps.With(f.Param, value)
	}
	if rest != "" {
		return ParameterSet{}, fmt.Errorf("%w %q: trailing %q after %d fields",
			ErrMalformedIdentifier, id, rest, len(s.Fields))
	}
	return ps, nil
}
