package defaultfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestTreeBasePathForFindsNearestAncestor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "BUCK"), "[]")

	tree := &Tree{Root: root, BuildFileName: "BUCK"}
	base, err := tree.BasePathFor("/lib/sub/file.go")
	require.NoError(t, err)
	assert.Equal(t, "//lib", base)
}

func TestTreeBasePathForNoOwner(t *testing.T) {
	root := t.TempDir()
	tree := &Tree{Root: root, BuildFileName: "BUCK"}
	_, err := tree.BasePathFor("/nowhere/file.go")
	require.Error(t, err)
	var noOwner *NoOwningPackageError
	require.ErrorAs(t, err, &noOwner)
	assert.True(t, noOwner.UserFacing())
}

func TestWalkerSkipsBuckOut(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "BUCK"), "[]")
	writeFile(t, filepath.Join(root, "buck-out", "gen", "BUCK"), "[]")

	var found []string
	err := Walker{}.WalkBuildFiles(root, "BUCK", func(path string) error {
		found = append(found, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "lib", "BUCK")}, found)
}

func TestJSONLoaderDecodesRules(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "lib", "BUCK")
	writeFile(t, path, `[{"type":"generic_library","name":"a","buck_base_path":"lib","deps":["//other:b"]}]`)

	rules, err := JSONLoader{}.Load(root, path, nil)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "a", rules[0].Name())
	assert.Equal(t, "generic_library", rules[0].Type())
}

func TestJSONLoaderMissingFileIsEmpty(t *testing.T) {
	root := t.TempDir()
	rules, err := JSONLoader{}.Load(root, filepath.Join(root, "nope", "BUCK"), nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestJSONLoaderMalformedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "lib", "BUCK")
	writeFile(t, path, "not json")

	_, err := JSONLoader{}.Load(root, path, nil)
	require.Error(t, err)
	var ioErr *IOFailureError
	require.ErrorAs(t, err, &ioErr)
	assert.False(t, ioErr.UserFacing())
}
