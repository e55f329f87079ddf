package query

import (
	"fmt"
	"strings"

	"github.com/please-build/depcore/pkg/parser"
	"github.com/please-build/depcore/pkg/targetname"
	"github.com/please-build/depcore/pkg/usererror"
)

// AliasMap maps a short alias name to the fully qualified target it stands
// for.
type AliasMap map[string]string

// UnknownAliasError reports an argument that isn't a "//"-prefixed fully
// qualified name and has no entry in the alias map.
type UnknownAliasError struct {
	Name string
}

func (e *UnknownAliasError) Error() string { return fmt.Sprintf("unknown alias: %q", e.Name) }

// UserFacing implements usererror.Error.
func (e *UnknownAliasError) UserFacing() bool { return true }

// UnresolvedTargetError reports a "//"-prefixed argument whose containing
// build file, once parsed, doesn't declare the named target.
type UnresolvedTargetError struct {
	FQN string
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("no such build target: %s", e.FQN)
}

// UserFacing implements usererror.Error.
func (e *UnresolvedTargetError) UserFacing() bool { return true }

var (
	_ usererror.Error = (*UnknownAliasError)(nil)
	_ usererror.Error = (*UnresolvedTargetError)(nil)
)

// AliasResolver resolves --resolvealias positional arguments: a "//"
// prefixed string must name a declared target, anything else is looked up
// in Aliases.
type AliasResolver struct {
	Parser          *parser.Parser
	Aliases         AliasMap
	DefaultIncludes []string
}

// Resolve resolves every entry in args, in order, failing on the first
// unresolvable one.
func (r *AliasResolver) Resolve(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		fqn, err := r.resolveOne(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, fqn)
	}
	return out, nil
}

func (r *AliasResolver) resolveOne(arg string) (string, error) {
	if !strings.HasPrefix(arg, "//") {
		fqn, ok := r.Aliases[arg]
		if !ok {
			return "", &UnknownAliasError{Name: arg}
		}
		return fqn, nil
	}

	tn, err := r.Parser.TargetNameParser().Parse(arg, targetname.ParseContext{})
	if err != nil {
		return "", err
	}
	if !r.Parser.HasParsed(tn.BuildFilePath) && !r.Parser.IsRawMode() {
		if err := r.Parser.ParseBuildFile(tn.BuildFilePath, r.DefaultIncludes); err != nil {
			return "", err
		}
	}
	if _, ok := r.Parser.Builder(tn.FQN()); !ok {
		return "", &UnresolvedTargetError{FQN: tn.FQN()}
	}
	return tn.FQN(), nil
}
