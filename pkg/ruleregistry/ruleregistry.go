// Package ruleregistry maps rule-type tags to rule-builder factories.
//
// The registry is a closed, built-in table constructed once at startup: a
// fixed set of rule types rather than a user-extensible plugin system.
package ruleregistry

import (
	"fmt"
	iofs "io/fs"

	"github.com/please-build/depcore/pkg/buildfile"
	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/targetname"
	"github.com/please-build/depcore/pkg/usererror"
)

// RuleBuilder is a half-constructed rule: its unresolved dep strings as
// written in the build file, and a Build step that may only run once all
// of those deps are present in the supplied index.
type RuleBuilder interface {
	// Deps returns the unresolved dep strings as written in the build file.
	Deps() []string
	// Build materializes this builder into a BuiltRule. ruleIndex maps FQN
	// to already-built rules; by the post-order discipline, every one of
	// this builder's deps is present in it.
	Build(ruleIndex map[string]*buildgraph.BuiltRule) (*buildgraph.BuiltRule, error)
}

// FactoryParams is what a RuleBuilderFactory receives to construct a
// RuleBuilder for one raw rule.
type FactoryParams struct {
	RawAttrs          buildfile.RawRule
	ProjectFilesystem iofs.FS
	BuildFileTree     buildfile.Tree
	TargetNameParser  *targetname.Parser
	Target            targetname.TargetName
}

// Factory constructs a RuleBuilder from a raw rule's attributes.
type Factory func(FactoryParams) (RuleBuilder, error)

// UnknownRuleTypeError reports a raw rule whose type tag has no registered
// factory. This is a fatal misconfiguration, not a per-target user error:
// it aborts the whole parse.
type UnknownRuleTypeError struct {
	Tag string
}

func (e *UnknownRuleTypeError) Error() string {
	return fmt.Sprintf("unknown rule type: %q", e.Tag)
}

var _ error = (*UnknownRuleTypeError)(nil)

// Registry is a closed, case-insensitive table from rule-type tag to
// factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry constructs an empty registry. Use Register to populate it,
// or see Builtins() for the demonstration rule set this repo ships with.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory for the given rule-type tag. Intended to be
// called only at startup, when the fixed table is built; it panics on a
// duplicate tag since that's a programming error in the table itself, not
// a runtime condition a caller should need to recover from.
func (r *Registry) Register(tag string, f Factory) {
	key := normalizeTag(tag)
	if _, ok := r.factories[key]; ok {
		panic(fmt.Sprintf("ruleregistry: duplicate registration for rule type %q", tag))
	}
	r.factories[key] = f
}

// Lookup returns the factory registered for tag (case-insensitive), or an
// UnknownRuleTypeError if none is registered.
func (r *Registry) Lookup(tag string) (Factory, error) {
	if f, ok := r.factories[normalizeTag(tag)]; ok {
		return f, nil
	}
	return nil, &UnknownRuleTypeError{Tag: tag}
}

func normalizeTag(tag string) string {
	b := []byte(tag)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

var _ usererror.Error = (*UnknownRuleTypeError)(nil)

// UserFacing implements usererror.Error. An unknown rule type is a fatal
// misconfiguration of the registry table, not a recoverable per-target
// mistake, so it is never user-facing.
func (e *UnknownRuleTypeError) UserFacing() bool { return false }
