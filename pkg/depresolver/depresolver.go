// Package depresolver implements the depth-first post-order traversal that
// resolves transitive dependencies, detects cycles, and threads builders
// into fully materialized BuiltRules.
//
// The walk is an explicit stack of (node, childIterator) frames with
// inProgress/completed sets, rather than recursion, so a build graph of
// arbitrary depth can't blow the call stack and cycles are caught exactly
// rather than approximately.
package depresolver

import (
	"fmt"
	"strings"

	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/parser"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/targetname"
	"github.com/please-build/depcore/pkg/usererror"
)

// NoSuchBuildTargetError reports a dep or seed string naming a target that
// isn't declared in its predicted build file.
type NoSuchBuildTargetError struct {
	FQN    string
	Reason string
}

func (e *NoSuchBuildTargetError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no such build target %s: %s", e.FQN, e.Reason)
	}
	return fmt.Sprintf("no such build target: %s", e.FQN)
}

// UserFacing implements usererror.Error.
func (e *NoSuchBuildTargetError) UserFacing() bool { return true }

// CycleError reports a dependency cycle discovered during traversal, with
// the back-edge's full path from the node that was re-entered.
type CycleError struct {
	Cycle []targetname.TargetName
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, tn := range e.Cycle {
		names[i] = tn.FQN()
	}
	return "dependency cycle found:\n" + strings.Join(names, "\n -> ")
}

// UserFacing implements usererror.Error.
func (e *CycleError) UserFacing() bool { return true }

var (
	_ usererror.Error = (*NoSuchBuildTargetError)(nil)
	_ usererror.Error = (*CycleError)(nil)
)

// Resolver implements parser.Resolver. It holds no state of its own beyond
// a single call's worth of traversal bookkeeping: the same Resolver value
// can be reused across independent parseForTargets calls.
type Resolver struct{}

// New constructs a Resolver.
func New() *Resolver { return &Resolver{} }

var _ parser.Resolver = (*Resolver)(nil)

// stackFrame is one level of the explicit-stack DFS: the builder for this
// node, its unresolved dep strings, and how far through them we've gotten.
type stackFrame struct {
	tn      targetname.TargetName
	builder ruleregistry.RuleBuilder
	deps    []string
	idx     int
}

// Resolve walks each seed to a fixed point, building a single shared
// graph and rule index across all of them so that a target reachable
// from more than one seed is only ever built once.
func (r *Resolver) Resolve(p *parser.Parser, seeds []targetname.TargetName, defaultIncludes []string) (*buildgraph.Graph, error) {
	graph := buildgraph.New()
	ruleIndex := map[string]*buildgraph.BuiltRule{}
	inProgress := map[string]bool{}
	completed := map[string]bool{}

	for _, seed := range seeds {
		if completed[seed.FQN()] {
			continue
		}
		if err := r.walk(p, seed, defaultIncludes, graph, ruleIndex, inProgress, completed); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// walk runs the explicit-stack post-order DFS rooted at root.
func (r *Resolver) walk(p *parser.Parser, root targetname.TargetName, defaultIncludes []string, graph *buildgraph.Graph, ruleIndex map[string]*buildgraph.BuiltRule, inProgress, completed map[string]bool) error {
	if completed[root.FQN()] {
		return nil
	}
	builder, err := r.lookupOrLoad(p, root, defaultIncludes)
	if err != nil {
		return err
	}

	stack := []*stackFrame{{tn: root, builder: builder, deps: builder.Deps()}}
	chain := []targetname.TargetName{root}
	inProgress[root.FQN()] = true

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.idx >= len(top.deps) {
			// Post-order action: every dep is already in ruleIndex.
			built, err := top.builder.Build(ruleIndex)
			if err != nil {
				return err
			}
			fqn := top.tn.FQN()
			ruleIndex[fqn] = built
			if len(built.Deps()) == 0 {
				graph.AddNode(built)
			} else {
				for _, dep := range built.Deps() {
					graph.AddEdge(built, dep)
				}
			}
			delete(inProgress, fqn)
			completed[fqn] = true

			stack = stack[:len(stack)-1]
			chain = chain[:len(chain)-1]
			continue
		}

		depStr := top.deps[top.idx]
		top.idx++

		childTN, err := p.TargetNameParser().Parse(depStr, targetname.ForBaseName(top.tn.BasePath))
		if err != nil {
			return err
		}
		childFQN := childTN.FQN()
		if completed[childFQN] {
			continue // diamond: already fully built elsewhere, no-op
		}
		if inProgress[childFQN] {
			start := 0
			for i, tn := range chain {
				if tn.FQN() == childFQN {
					start = i
					break
				}
			}
			cycle := make([]targetname.TargetName, 0, len(chain)-start+1)
			cycle = append(cycle, chain[start:]...)
			cycle = append(cycle, childTN)
			return &CycleError{Cycle: cycle}
		}

		childBuilder, err := r.lookupOrLoad(p, childTN, defaultIncludes)
		if err != nil {
			return err
		}
		stack = append(stack, &stackFrame{tn: childTN, builder: childBuilder, deps: childBuilder.Deps()})
		chain = append(chain, childTN)
		inProgress[childFQN] = true
	}
	return nil
}

// lookupOrLoad implements the missing-target policy: if the raw-mode
// latch is set, a miss is immediately NoSuchBuildTarget (no filesystem
// access is permitted once primed from in-memory rules); otherwise, if
// the predicted build file was already parsed and the target is still
// absent, that's a stronger "parsed but not found" message; otherwise
// the build file is loaded and the lookup is retried once.
func (r *Resolver) lookupOrLoad(p *parser.Parser, tn targetname.TargetName, defaultIncludes []string) (ruleregistry.RuleBuilder, error) {
	if b, ok := p.Builder(tn.FQN()); ok {
		return b, nil
	}
	if p.IsRawMode() {
		return nil, &NoSuchBuildTargetError{FQN: tn.FQN()}
	}
	if p.HasParsed(tn.BuildFilePath) {
		return nil, &NoSuchBuildTargetError{
			FQN:    tn.FQN(),
			Reason: fmt.Sprintf("%s was parsed but does not declare this target", tn.BuildFilePath),
		}
	}
	if err := p.ParseBuildFile(tn.BuildFilePath, defaultIncludes); err != nil {
		return nil, err
	}
	if b, ok := p.Builder(tn.FQN()); ok {
		return b, nil
	}
	return nil, &NoSuchBuildTargetError{FQN: tn.FQN()}
}
