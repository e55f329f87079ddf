// Package partialgraph builds the full project dependency graph by
// walking every build-definition file under a root rather than starting
// from a caller-supplied set of seed targets.
package partialgraph

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/parser"
)

// ProjectWalker enumerates every build-definition file under a project
// root. Concrete implementations (e.g. a godirwalk-backed one) live
// outside this package; partialgraph only consumes the interface so it
// never has an opinion on how the filesystem is walked.
type ProjectWalker interface {
	// WalkBuildFiles calls visit once per discovered build-definition
	// file path, in an implementation-defined order.
	WalkBuildFiles(root, buildFileName string, visit func(path string) error) error
}

// CreateFullGraph walks every build-definition file under root via
// walker, parses each one, then resolves every declared target as a
// seed so the resulting graph is the full project's dependency graph.
//
// A single bad build file does not abort discovery of the rest: parse
// errors are collected into a multierror and only returned once the walk
// has finished, so a caller sees every broken build file in one pass
// instead of bailing out on the first.
func CreateFullGraph(p *parser.Parser, walker ProjectWalker, root, buildFileName string, defaultIncludes []string) (*buildgraph.Graph, error) {
	var parseErrs *multierror.Error
	var discovered []string

	walkErr := walker.WalkBuildFiles(root, buildFileName, func(path string) error {
		discovered = append(discovered, path)
		if err := p.ParseBuildFile(path, defaultIncludes); err != nil {
			parseErrs = multierror.Append(parseErrs, err)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if err := parseErrs.ErrorOrNil(); err != nil {
		return nil, err
	}

	names := p.KnownTargetNames()
	seeds := make([]string, len(names))
	for i, tn := range names {
		seeds[i] = tn.FQN()
	}
	sort.Strings(seeds) // deterministic seed order for a full-project walk

	return p.ParseForTargets(seeds, defaultIncludes)
}
