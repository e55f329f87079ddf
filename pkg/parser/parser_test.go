package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/depcore/pkg/buildfile"
	"github.com/please-build/depcore/pkg/buildgraph"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/targetname"
)

type fakeLoader struct {
	files map[string][]buildfile.RawRule
	loads []string
}

func (f *fakeLoader) Load(projectRoot, buildFilePath string, defaultIncludes []string) ([]buildfile.RawRule, error) {
	f.loads = append(f.loads, buildFilePath)
	return f.files[buildFilePath], nil
}

type fakeResolver struct {
	seeds []targetname.TargetName
}

func (f *fakeResolver) Resolve(p *Parser, seeds []targetname.TargetName, defaultIncludes []string) (*buildgraph.Graph, error) {
	f.seeds = seeds
	g := buildgraph.New()
	for _, s := range seeds {
		builder, ok := p.Builder(s.FQN())
		if !ok {
			continue
		}
		built, err := builder.Build(nil)
		if err != nil {
			return nil, err
		}
		g.AddNode(built)
	}
	return g, nil
}

func newTestParser(files map[string][]buildfile.RawRule) (*Parser, *fakeLoader, *fakeResolver) {
	tnParser := targetname.NewParser(targetname.Config{ProjectRoot: "/repo", BuildFileName: "BUCK"})
	loader := &fakeLoader{files: files}
	resolver := &fakeResolver{}
	p := New(tnParser, ruleregistry.Builtins(), loader, nil, nil, resolver)
	return p, loader, resolver
}

func rawLibrary(name, basePath string, deps []string) buildfile.RawRule {
	return buildfile.RawRule{
		"type":           "generic_library",
		"name":           name,
		"buck_base_path": basePath,
		"deps":           deps,
	}
}

func TestParseBuildFileRegistersBuilders(t *testing.T) {
	p, _, _ := newTestParser(map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("a", "lib", nil)},
	})
	require.NoError(t, p.ParseBuildFile("/repo/lib/BUCK", nil))
	_, ok := p.Builder("//lib:a")
	assert.True(t, ok)
	assert.True(t, p.HasParsed("/repo/lib/BUCK"))
}

func TestParseBuildFileIsIdempotent(t *testing.T) {
	p, loader, _ := newTestParser(map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("a", "lib", nil)},
	})
	require.NoError(t, p.ParseBuildFile("/repo/lib/BUCK", nil))
	require.NoError(t, p.ParseBuildFile("/repo/lib/BUCK", nil))
	assert.Len(t, loader.loads, 1)
}

func TestDuplicateFQNAcrossBuildFilesFails(t *testing.T) {
	p, _, _ := newTestParser(map[string][]buildfile.RawRule{
		"/repo/lib/BUCK":  {rawLibrary("a", "lib", nil)},
		"/repo/lib2/BUCK": {rawLibrary("a", "lib", nil)}, // same FQN //lib:a via buck_base_path "lib"
	})
	require.NoError(t, p.ParseBuildFile("/repo/lib/BUCK", nil))
	err := p.ParseBuildFile("/repo/lib2/BUCK", nil)
	require.Error(t, err)
	var dup *DuplicateTargetError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "//lib:a", dup.FQN)
	assert.False(t, dup.UserFacing())
}

func TestParseRawRulesSetsLatchAndNeverLoadsFiles(t *testing.T) {
	p, loader, _ := newTestParser(nil)
	matches, err := p.ParseRawRules([]buildfile.RawRule{rawLibrary("a", "lib", nil)}, func(tn targetname.TargetName) bool {
		return tn.ShortName == "a"
	})
	require.NoError(t, err)
	assert.True(t, p.IsRawMode())
	assert.Equal(t, []targetname.TargetName{{BasePath: "//lib", ShortName: "a", BuildFilePath: "/repo/lib/BUCK"}}, matches)
	assert.Empty(t, loader.loads)
}

func TestParseRawRulesWithoutFilterReturnsNil(t *testing.T) {
	p, _, _ := newTestParser(nil)
	matches, err := p.ParseRawRules([]buildfile.RawRule{rawLibrary("a", "lib", nil)}, nil)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestParseForTargetsLoadsEachBuildFileOnce(t *testing.T) {
	p, loader, resolver := newTestParser(map[string][]buildfile.RawRule{
		"/repo/lib/BUCK": {rawLibrary("a", "lib", nil), rawLibrary("b", "lib", nil)},
	})
	graph, err := p.ParseForTargets([]string{"//lib:a", "//lib:b"}, nil)
	require.NoError(t, err)
	assert.Len(t, loader.loads, 1)
	assert.Equal(t, 2, graph.Len())
	assert.Len(t, resolver.seeds, 2)
}
