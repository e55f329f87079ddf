package query

import (
	"sort"

	"github.com/please-build/depcore/pkg/buildgraph"
)

// Deps returns the transitive dependency set of fqn within graph, sorted
// and excluding fqn itself.
func Deps(graph *buildgraph.Graph, fqn string) []string {
	seen := map[string]bool{}
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range graph.DepFQNs(cur) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			walk(dep)
		}
	}
	walk(fqn)
	return sortedKeys(seen)
}

// ReverseDeps returns every rule in graph that transitively depends on
// fqn, sorted and excluding fqn itself. Unlike Deps, this isn't a graph
// invariant: it's derived on demand by inverting the forward edges, and
// is never consulted during resolution.
func ReverseDeps(graph *buildgraph.Graph, fqn string) []string {
	reverse := map[string][]string{}
	for _, rule := range graph.Nodes() {
		for _, dep := range graph.DepFQNs(rule.FQN()) {
			reverse[dep] = append(reverse[dep], rule.FQN())
		}
	}

	seen := map[string]bool{}
	var walk func(string)
	walk = func(cur string) {
		for _, dependent := range reverse[cur] {
			if seen[dependent] {
				continue
			}
			seen[dependent] = true
			walk(dependent)
		}
	}
	walk(fqn)
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
