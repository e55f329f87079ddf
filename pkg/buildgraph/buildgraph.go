// Package buildgraph holds the fully materialized BuiltRule type and the
// DependencyGraph that post-order traversal threads them into.
package buildgraph

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/please-build/depcore/pkg/targetname"
)

// BuiltRule is a fully materialized rule: a resolved type, resolved
// declared inputs, and its fully resolved set of dependency BuiltRules.
type BuiltRule struct {
	Name   targetname.TargetName
	Type   string
	Inputs []string
	deps   []*BuiltRule
}

// NewBuiltRule constructs a BuiltRule. deps must already be built (i.e.
// produced by a post-order traversal).
func NewBuiltRule(name targetname.TargetName, ruleType string, inputs []string, deps []*BuiltRule) *BuiltRule {
	return &BuiltRule{Name: name, Type: ruleType, Inputs: inputs, deps: deps}
}

// FQN returns the rule's fully qualified name.
func (r *BuiltRule) FQN() string { return r.Name.FQN() }

// Deps returns the rule's fully resolved dependencies, identity-equal to
// the entries used to build it.
func (r *BuiltRule) Deps() []*BuiltRule { return r.deps }

// Hash returns a content digest of the rule's FQN, type, and declared
// inputs. It has no bearing on graph construction; it exists purely so the
// query layer and determinism tests have a cheap way to compare two
// BuiltRules for equivalence without a deep comparison.
func (r *BuiltRule) Hash() uint64 {
	h := xxhash.New()
	h.WriteString(r.FQN())
	h.WriteString("\x00")
	h.WriteString(r.Type)
	for _, in := range r.Inputs {
		h.WriteString("\x00")
		h.WriteString(in)
	}
	return h.Sum64()
}

// Graph is a directed acyclic graph of BuiltRule nodes with edges
// rule -> dep. Nodes are added either with their outgoing edges, or, for
// dep-less rules, as isolated nodes, so that dep-less roots are never lost.
type Graph struct {
	nodes map[string]*BuiltRule
	edges map[string][]string
	// order records the sequence nodes were added in, which by construction
	// (see depresolver) is the DFS post-order: a node's deps always appear
	// before it. Query filters that need a bottom-up walk reuse this order
	// instead of recomputing a topological sort.
	order []string
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: map[string]*BuiltRule{},
		edges: map[string][]string{},
	}
}

// AddNode adds rule to the graph as an isolated node if it isn't already
// present. Used for dep-less rules so they aren't lost when no edge would
// otherwise introduce them.
func (g *Graph) AddNode(rule *BuiltRule) {
	if _, ok := g.nodes[rule.FQN()]; ok {
		return
	}
	g.nodes[rule.FQN()] = rule
	g.order = append(g.order, rule.FQN())
}

// AddEdge adds an edge from -> dep, inserting either endpoint that isn't
// already a node. Edges imply their endpoints: AddNode need not be called
// separately for a rule added via AddEdge.
func (g *Graph) AddEdge(from, dep *BuiltRule) {
	g.AddNode(dep)
	g.AddNode(from)
	g.edges[from.FQN()] = append(g.edges[from.FQN()], dep.FQN())
}

// Node returns the node with the given FQN, if present.
func (g *Graph) Node(fqn string) (*BuiltRule, bool) {
	r, ok := g.nodes[fqn]
	return r, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// DepFQNs returns the FQNs of the direct dependencies of fqn, in the order
// they were added.
func (g *Graph) DepFQNs(fqn string) []string { return g.edges[fqn] }

// Nodes returns all nodes in ascending FQN order.
func (g *Graph) Nodes() []*BuiltRule {
	ret := make([]*BuiltRule, 0, len(g.nodes))
	for _, n := range g.nodes {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].FQN() < ret[j].FQN() })
	return ret
}

// NodesInBuildOrder returns all nodes in the order they were added to the
// graph, i.e. every node's deps precede it. See the order field doc.
func (g *Graph) NodesInBuildOrder() []*BuiltRule {
	ret := make([]*BuiltRule, len(g.order))
	for i, fqn := range g.order {
		ret[i] = g.nodes[fqn]
	}
	return ret
}
