package results

import (
	"fmt"
	"path/filepath"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/monitoring"
)

// Artifact is one job output whose name decoded into a configuration.
type Artifact struct {
	Path       string
	Identifier string
	Params     campaign.ParameterSet
}

// Skip is a file that matched the glob but not the identifier grammar.
type Skip struct {
	Path string
	Err  error
}

// Scanner enumerates artifacts in an output directory.
type Scanner struct {
	fs     fsutil.FileSystem
	dir    string
	schema *campaign.Schema
}

// NewScanner returns a Scanner over dir.
func NewScanner(fsys fsutil.FileSystem, dir string, schema *campaign.Schema) *Scanner {
	return &Scanner{fs: fsys, dir: dir, schema: schema}
}

// Scan lists every artifact in glob order. Files whose names do not parse
// under the schema are logged and returned as skips; they never fail the scan.
// A missing directory is an empty campaign, not an error.
func (s *Scanner) Scan() ([]Artifact, []Skip, error) {
	names, err := s.fs.Glob(filepath.Join(s.dir, s.schema.GlobPattern()))
	if err != nil {
		return nil, nil, fmt.Errorf("listing artifacts in %s: %w", s.dir, err)
	}

	var (
		artifacts []Artifact
		skips     []Skip
	)
	for _, name := range names {
		id := filepath.Base(name)
		params, err := s.schema.Parse(id)
		if err != nil {
			monitoring.Logf("[scan] skipping %s: %v", name, err)
			skips = append(skips, Skip{Path: name, Err: err})
			continue
		}
		artifacts = append(artifacts, Artifact{Path: name, Identifier: id, Params: params})
	}
	return artifacts, skips, nil
}

// Identifiers returns the identifiers of artifacts.
func Identifiers(artifacts []Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Identifier
	}
	return out
}
