package ruleregistry

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/targetname"
)

// Builtins returns the fixed set of demonstration rule types this repo
// ships with: a trimmed attribute surface of srcs/deps (dropping things
// like Tools, Data, Visibility, and TestOnly that a full rule-type
// catalog would carry) covering generic library/binary/test rules and
// plain file groups. They give the targets command something real to
// dispatch over in place of a full, user-extensible rule-type catalog.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("generic_library", newGenericBuilder)
	r.Register("generic_binary", newGenericBuilder)
	r.Register("generic_test", newGenericBuilder)
	r.Register("file_group", newFileGroupBuilder)
	return r
}

// genericBuilder covers generic_library, generic_binary, and generic_test:
// all three share the same srcs/deps shape and differ only in Type.
type genericBuilder struct {
	name     targetname.TargetName
	ruleType string
	deps     []string
	inputs   []string
	tnParser *targetname.Parser
}

func newGenericBuilder(p FactoryParams) (RuleBuilder, error) {
	deps, err := stringListAttr(p.RawAttrs, "deps")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Target, err)
	}
	srcs, err := stringListAttr(p.RawAttrs, "srcs")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Target, err)
	}
	inputs, err := expandSources(p, srcs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Target, err)
	}
	return &genericBuilder{name: p.Target, ruleType: p.RawAttrs.Type(), deps: deps, inputs: inputs, tnParser: p.TargetNameParser}, nil
}

func (b *genericBuilder) Deps() []string { return b.deps }

func (b *genericBuilder) Build(ruleIndex map[string]*buildgraph.BuiltRule) (*buildgraph.BuiltRule, error) {
	built, err := resolveBuiltDeps(b.tnParser, b.name, b.deps, ruleIndex)
	if err != nil {
		return nil, err
	}
	return buildgraph.NewBuiltRule(b.name, b.ruleType, b.inputs, built), nil
}

// fileGroupBuilder covers file_group, which has no deps of its own beyond
// the files (or other targets) it groups and no srcs globbing.
type fileGroupBuilder struct {
	name     targetname.TargetName
	deps     []string
	inputs   []string
	tnParser *targetname.Parser
}

func newFileGroupBuilder(p FactoryParams) (RuleBuilder, error) {
	srcs, err := stringListAttr(p.RawAttrs, "srcs")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Target, err)
	}
	var deps, inputs []string
	for _, s := range srcs {
		if looksLikeTargetRef(s) {
			deps = append(deps, s)
		} else {
			inputs = append(inputs, path.Join(targetRelPath(p.Target), s))
		}
	}
	return &fileGroupBuilder{name: p.Target, deps: deps, inputs: inputs, tnParser: p.TargetNameParser}, nil
}

func (b *fileGroupBuilder) Deps() []string { return b.deps }

func (b *fileGroupBuilder) Build(ruleIndex map[string]*buildgraph.BuiltRule) (*buildgraph.BuiltRule, error) {
	built, err := resolveBuiltDeps(b.tnParser, b.name, b.deps, ruleIndex)
	if err != nil {
		return nil, err
	}
	return buildgraph.NewBuiltRule(b.name, "file_group", b.inputs, built), nil
}

// resolveBuiltDeps resolves each raw dep string (as written in the build
// file, possibly relative) to its FQN under name's own base path before
// indexing into ruleIndex, which is always keyed by FQN rather than by a
// dep's as-written form.
func resolveBuiltDeps(tnParser *targetname.Parser, name targetname.TargetName, deps []string, ruleIndex map[string]*buildgraph.BuiltRule) ([]*buildgraph.BuiltRule, error) {
	built := make([]*buildgraph.BuiltRule, 0, len(deps))
	for _, d := range deps {
		tn, err := tnParser.Parse(d, targetname.ForBaseName(name.BasePath))
		if err != nil {
			return nil, err
		}
		dep, ok := ruleIndex[tn.FQN()]
		if !ok {
			return nil, fmt.Errorf("%s: dependency %s not yet built", name, tn.FQN())
		}
		built = append(built, dep)
	}
	return built, nil
}

// expandSources resolves a srcs list into declared-input paths relative to
// the project root, expanding doublestar glob patterns against the real
// filesystem (when one is supplied). Target references (":foo",
// "//other:bar") are skipped: they become neither inputs nor deps.
func expandSources(p FactoryParams, srcs []string) ([]string, error) {
	var inputs []string
	dir := targetRelPath(p.Target)
	for _, s := range srcs {
		if looksLikeTargetRef(s) {
			continue
		}
		if p.ProjectFilesystem == nil || !doublestar.ValidatePattern(s) || !containsGlobMeta(s) {
			inputs = append(inputs, path.Join(dir, s))
			continue
		}
		matches, err := doublestar.Glob(p.ProjectFilesystem, path.Join(dir, s))
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", s, err)
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

func containsGlobMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func looksLikeTargetRef(s string) bool {
	return len(s) > 0 && (s[0] == ':' || (len(s) > 1 && s[0] == '/' && s[1] == '/'))
}

func targetRelPath(t targetname.TargetName) string {
	rel := t.BasePath
	if len(rel) >= 2 && rel[:2] == "//" {
		rel = rel[2:]
	}
	return rel
}

// stringListAttr reads a []string-shaped attribute (tolerating the
// []any shape a JSON-decoded raw rule will actually have).
func stringListAttr(attrs map[string]any, key string) ([]string, error) {
	v, ok := attrs[key]
	if !ok {
		return nil, nil
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("attribute %q: expected string list, found %T element", key, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("attribute %q: expected string list, found %T", key, v)
	}
}
