package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/depcore/pkg/buildfile"
	"github.com/please-build/depcore/pkg/depresolver"
	"github.com/please-build/depcore/pkg/parser"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/targetname"
)

func rawLibrary(name, basePath string, deps, srcs []string) buildfile.RawRule {
	return rawRule("generic_library", name, basePath, deps, srcs)
}

func rawRule(ruleType, name, basePath string, deps, srcs []string) buildfile.RawRule {
	return buildfile.RawRule{
		"type":           ruleType,
		"name":           name,
		"buck_base_path": basePath,
		"deps":           deps,
		"srcs":           srcs,
	}
}

type fakeLoader struct {
	files map[string][]buildfile.RawRule
}

func (f *fakeLoader) Load(projectRoot, buildFilePath string, defaultIncludes []string) ([]buildfile.RawRule, error) {
	return f.files[buildFilePath], nil
}

func newGraph(t *testing.T, files map[string][]buildfile.RawRule, seeds []string) (*parser.Parser, *fakeLoader) {
	t.Helper()
	tnParser := targetname.NewParser(targetname.Config{ProjectRoot: "/repo", BuildFileName: "BUCK"})
	loader := &fakeLoader{files: files}
	p := parser.New(tnParser, ruleregistry.Builtins(), loader, nil, nil, depresolver.New())
	return p, loader
}

func TestRunFiltersByType(t *testing.T) {
	p, _ := newGraph(t, map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("core", "lib", nil, []string{"Core.java"})},
		"/repo/app/BUCK": {rawRule("generic_binary", "bin", "app", []string{"//lib:core"}, nil)},
	}, nil)
	graph, err := p.ParseForTargets([]string{"//app:bin", "//lib:core"}, nil)
	require.NoError(t, err)

	matches := Run(graph, Filter{Types: []string{"GENERIC_LIBRARY"}})
	assert.Equal(t, []string{"//lib:core"}, matches)
}

func TestRunFiltersByReferencedFiles(t *testing.T) {
	p, _ := newGraph(t, map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("core", "lib", nil, []string{"Core.java"})},
		"/repo/app/BUCK": {rawLibrary("bin", "app", []string{"//lib:core"}, nil)},
	}, nil)
	graph, err := p.ParseForTargets([]string{"//app:bin"}, nil)
	require.NoError(t, err)

	matches := Run(graph, Filter{ReferencedFiles: []string{"lib/Core.java"}})
	assert.Equal(t, []string{"//app:bin", "//lib:core"}, matches)
}

func TestDepsAndReverseDeps(t *testing.T) {
	p, _ := newGraph(t, map[string][]buildfile.RawRule{
		"/repo/a/BUCK": {rawLibrary("a", "a", []string{"//b:b"}, nil)},
		"/repo/b/BUCK": {rawLibrary("b", "b", []string{"//c:c"}, nil)},
		"/repo/c/BUCK": {rawLibrary("c", "c", nil, nil)},
	}, nil)
	graph, err := p.ParseForTargets([]string{"//a:a"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"//b:b", "//c:c"}, Deps(graph, "//a:a"))
	assert.Equal(t, []string{"//a:a", "//b:b"}, ReverseDeps(graph, "//c:c"))
}

func TestAliasResolverFQNMustExist(t *testing.T) {
	p, _ := newGraph(t, map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("core", "lib", nil, nil)},
	}, nil)
	r := &AliasResolver{Parser: p}
	resolved, err := r.Resolve([]string{"//lib:core"})
	require.NoError(t, err)
	assert.Equal(t, []string{"//lib:core"}, resolved)

	_, err = r.Resolve([]string{"//lib:missing"})
	require.Error(t, err)
	var unresolved *UnresolvedTargetError
	require.ErrorAs(t, err, &unresolved)
	assert.True(t, unresolved.UserFacing())
}

func TestAliasResolverUnknownAlias(t *testing.T) {
	p, _ := newGraph(t, nil, nil)
	r := &AliasResolver{Parser: p, Aliases: AliasMap{"core": "//lib:core"}}
	resolved, err := r.Resolve([]string{"core"})
	require.NoError(t, err)
	assert.Equal(t, []string{"//lib:core"}, resolved)

	_, err = r.Resolve([]string{"nope"})
	require.Error(t, err)
	var unknown *UnknownAliasError
	require.ErrorAs(t, err, &unknown)
	assert.True(t, unknown.UserFacing())
}

func TestJSONOutputReReadsBuildFile(t *testing.T) {
	p, loader := newGraph(t, map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("core", "lib", nil, []string{"Core.java"})},
	}, nil)
	_, err := p.ParseForTargets([]string{"//lib:core"}, nil)
	require.NoError(t, err)

	out, err := JSONOutput(loader, p.TargetNameParser(), nil, []string{"//lib:core"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"name": "core"`)
}

func TestValidateTypesAcceptsRegisteredTags(t *testing.T) {
	err := ValidateTypes(ruleregistry.Builtins(), []string{"generic_library", "FILE_GROUP"})
	assert.NoError(t, err)
}

func TestValidateTypesRejectsUnknownTag(t *testing.T) {
	err := ValidateTypes(ruleregistry.Builtins(), []string{"generic_library", "bogus_type"})
	require.Error(t, err)
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bogus_type", unknown.Tag)
	assert.True(t, unknown.UserFacing())
}
