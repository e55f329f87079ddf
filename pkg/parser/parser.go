// Package parser orchestrates lazy build-file loading, deduplication, and
// builder registration. There is exactly one Parser per process invocation,
// it runs synchronously on a single goroutine, and every build file it
// loads is loaded at most once.
package parser

import (
	"fmt"
	iofs "io/fs"

	"github.com/please-build/depcore/pkg/buildfile"
	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/targetname"
	"github.com/please-build/depcore/pkg/usererror"
)

// DuplicateTargetError reports two build files (or two rules in a single
// in-memory rule list) both claiming the same fully qualified name.
type DuplicateTargetError struct {
	FQN string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %s is declared more than once", e.FQN)
}

// UserFacing implements usererror.Error. This is treated as fatal rather
// than a recoverable user typo: it guards against two build files both
// claiming the same target, an invariant violation in the declared data
// itself.
func (e *DuplicateTargetError) UserFacing() bool { return false }

var _ usererror.Error = (*DuplicateTargetError)(nil)

// Resolver is the interface the Parser delegates graph construction to.
// It's defined here (rather than the Parser importing depresolver
// directly) so that depresolver can depend on parser without a cycle;
// cmd/targets wires a concrete depresolver.Resolver in at startup.
type Resolver interface {
	Resolve(p *Parser, seeds []targetname.TargetName, defaultIncludes []string) (*buildgraph.Graph, error)
}

// Parser holds all process-scoped parsing state: the registered builders
// and target names known so far, which build files have been loaded, and
// the one-way populatedFromRaw latch set once the parser has been primed
// directly from an in-memory rule list rather than the filesystem.
type Parser struct {
	tnParser *targetname.Parser
	registry *ruleregistry.Registry
	loader   buildfile.Loader
	tree     buildfile.Tree
	fs       iofs.FS
	resolver Resolver

	knownBuilders    map[string]ruleregistry.RuleBuilder
	knownNames       map[string]targetname.TargetName
	parsedBuildFiles map[string]struct{}
	populatedFromRaw bool
}

// New constructs a Parser. fsys may be nil if the registry's rule factories
// don't need filesystem access (e.g. no glob expansion).
func New(tnParser *targetname.Parser, registry *ruleregistry.Registry, loader buildfile.Loader, tree buildfile.Tree, fsys iofs.FS, resolver Resolver) *Parser {
	return &Parser{
		tnParser:         tnParser,
		registry:         registry,
		loader:           loader,
		tree:             tree,
		fs:               fsys,
		resolver:         resolver,
		knownBuilders:    map[string]ruleregistry.RuleBuilder{},
		knownNames:       map[string]targetname.TargetName{},
		parsedBuildFiles: map[string]struct{}{},
	}
}

// TargetNameParser returns the target-name parser this Parser was
// constructed with, for collaborators (e.g. depresolver) that need to
// parse dep strings under a ParseContext.
func (p *Parser) TargetNameParser() *targetname.Parser { return p.tnParser }

// IsRawMode reports whether the raw-mode latch (populatedFromRaw) is set.
func (p *Parser) IsRawMode() bool { return p.populatedFromRaw }

// HasParsed reports whether the given build file path has already been
// loaded.
func (p *Parser) HasParsed(path string) bool {
	_, ok := p.parsedBuildFiles[path]
	return ok
}

// Builder looks up the builder registered for fqn, if any.
func (p *Parser) Builder(fqn string) (ruleregistry.RuleBuilder, bool) {
	b, ok := p.knownBuilders[fqn]
	return b, ok
}

// KnownTargetNames returns every TargetName registered so far, in no
// particular order; callers that need determinism should sort by FQN.
func (p *Parser) KnownTargetNames() []targetname.TargetName {
	ret := make([]targetname.TargetName, 0, len(p.knownNames))
	for _, tn := range p.knownNames {
		ret = append(ret, tn)
	}
	return ret
}

// ParseBuildFile loads path via the configured Loader and registers each
// declared rule's builder, unless path has already been parsed, in which
// case this is a no-op.
func (p *Parser) ParseBuildFile(path string, defaultIncludes []string) error {
	if p.HasParsed(path) {
		return nil
	}
	rawRules, err := p.loader.Load(p.tnParser.Config().ProjectRoot, path, defaultIncludes)
	if err != nil {
		return err
	}
	for _, raw := range rawRules {
		if _, err := p.register(raw); err != nil {
			return err
		}
	}
	p.parsedBuildFiles[path] = struct{}{}
	return nil
}

// ParseForTargets is the entry point for a single build invocation: it
// loads the build files backing the given seed strings (unless the parser
// was primed via ParseRawRules) and delegates graph construction to the
// configured Resolver.
func (p *Parser) ParseForTargets(seeds []string, defaultIncludes []string) (*buildgraph.Graph, error) {
	seedNames := make([]targetname.TargetName, 0, len(seeds))
	for _, s := range seeds {
		tn, err := p.tnParser.Parse(s, targetname.ParseContext{})
		if err != nil {
			return nil, err
		}
		seedNames = append(seedNames, tn)
	}
	if !p.populatedFromRaw {
		loaded := map[string]bool{}
		for _, tn := range seedNames {
			if loaded[tn.BuildFilePath] || p.HasParsed(tn.BuildFilePath) {
				loaded[tn.BuildFilePath] = true
				continue
			}
			loaded[tn.BuildFilePath] = true
			if err := p.ParseBuildFile(tn.BuildFilePath, defaultIncludes); err != nil {
				return nil, err
			}
		}
	}
	return p.resolver.Resolve(p, seedNames, defaultIncludes)
}

// ParseRawRules sets the raw-mode latch and registers each of rawRules as
// in parseBuildFile, but without touching the filesystem. If filter is
// non-nil, it returns the TargetNames matching it, in input order;
// otherwise it returns nil.
func (p *Parser) ParseRawRules(rawRules []buildfile.RawRule, filter func(targetname.TargetName) bool) ([]targetname.TargetName, error) {
	p.populatedFromRaw = true
	var matches []targetname.TargetName
	for _, raw := range rawRules {
		tn, err := p.register(raw)
		if err != nil {
			return nil, err
		}
		if filter != nil && filter(tn) {
			matches = append(matches, tn)
		}
	}
	if filter == nil {
		return nil, nil
	}
	return matches, nil
}

// register looks up the factory for raw's type, constructs the
// TargetName, asks the factory for a builder, and inserts it into
// knownBuilders under the fully qualified name, failing if that name is
// already claimed.
func (p *Parser) register(raw buildfile.RawRule) (targetname.TargetName, error) {
	basePath := "//" + raw.BuckBasePath()
	tn := targetname.TargetName{
		BasePath:      basePath,
		ShortName:     raw.Name(),
		BuildFilePath: p.tnParser.BuildFilePath(basePath),
	}
	factory, err := p.registry.Lookup(raw.Type())
	if err != nil {
		return tn, err
	}
	builder, err := factory(ruleregistry.FactoryParams{
		RawAttrs:          raw,
		ProjectFilesystem: p.fs,
		BuildFileTree:     p.tree,
		TargetNameParser:  p.tnParser,
		Target:            tn,
	})
	if err != nil {
		return tn, err
	}
	fqn := tn.FQN()
	if _, exists := p.knownBuilders[fqn]; exists {
		return tn, &DuplicateTargetError{FQN: fqn}
	}
	p.knownBuilders[fqn] = builder
	p.knownNames[fqn] = tn
	return tn, nil
}
