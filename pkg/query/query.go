// Package query implements the read-only filters layered on top of an
// already-resolved graph: rule-type restriction, "affected by file"
// traversal, alias resolution, and sorted/JSON output.
package query

import (
	"fmt"
	"sort"

	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/usererror"
)

// Filter selects the subset of a graph's nodes a targets invocation wants.
// An empty Types or ReferencedFiles means "no restriction on this axis".
type Filter struct {
	Types           []string
	ReferencedFiles []string
}

// UnknownTypeError reports a --type tag that names no registered rule
// type.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string { return fmt.Sprintf("unknown rule type: %q", e.Tag) }

// UserFacing implements usererror.Error.
func (e *UnknownTypeError) UserFacing() bool { return true }

var _ usererror.Error = (*UnknownTypeError)(nil)

// ValidateTypes fails on the first tag in types that registry has no
// factory for, so an invocation of --type with a typo'd tag is rejected
// up front rather than silently matching nothing.
func ValidateTypes(registry *ruleregistry.Registry, types []string) error {
	for _, t := range types {
		if _, err := registry.Lookup(t); err != nil {
			return &UnknownTypeError{Tag: t}
		}
	}
	return nil
}

// Run applies f to graph and returns the matching FQNs in ascending order.
func Run(graph *buildgraph.Graph, f Filter) []string {
	candidates := graph.Nodes()

	if len(f.Types) > 0 {
		allowed := make(map[string]bool, len(f.Types))
		for _, t := range f.Types {
			allowed[normalizeType(t)] = true
		}
		filtered := candidates[:0:0]
		for _, n := range candidates {
			if allowed[normalizeType(n.Type)] {
				filtered = append(filtered, n)
			}
		}
		candidates = filtered
	}

	if len(f.ReferencedFiles) > 0 {
		affected := affectedByFiles(graph, f.ReferencedFiles)
		filtered := candidates[:0:0]
		for _, n := range candidates {
			if affected[n.FQN()] {
				filtered = append(filtered, n)
			}
		}
		candidates = filtered
	}

	fqns := make([]string, len(candidates))
	for i, n := range candidates {
		fqns[i] = n.FQN()
	}
	sort.Strings(fqns)
	return fqns
}

// affectedByFiles computes the set of FQNs affected by any of files: a
// rule is affected if one of its declared inputs equals a referenced file
// (direct producer), or it has an outgoing edge to another affected rule
// (transitive consumer). The graph is walked bottom-up, in build order,
// so that a dependent's deps are already resolved by the time it's
// visited.
func affectedByFiles(graph *buildgraph.Graph, files []string) map[string]bool {
	want := make(map[string]bool, len(files))
	for _, f := range files {
		want[f] = true
	}

	affected := map[string]bool{}
	for _, rule := range graph.NodesInBuildOrder() {
		if isDirectProducer(rule, want) {
			affected[rule.FQN()] = true
			continue
		}
		for _, dep := range graph.DepFQNs(rule.FQN()) {
			if affected[dep] {
				affected[rule.FQN()] = true
				break
			}
		}
	}
	return affected
}

func isDirectProducer(rule *buildgraph.BuiltRule, want map[string]bool) bool {
	for _, in := range rule.Inputs {
		if want[in] {
			return true
		}
	}
	return false
}

func normalizeType(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
