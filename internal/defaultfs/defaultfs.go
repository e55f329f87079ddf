// Package defaultfs provides the default, swappable implementations of
// the external collaborators the core consumes through interfaces:
// buildfile.Tree (nearest-ancestor build-file lookup), partialgraph's
// ProjectWalker (whole-project build-file discovery), and buildfile.Loader
// (a minimal declarative build-file reader).
//
// None of these are part of the core's invariants; a caller embedding the
// core in a different repo layout is free to swap in its own.
package defaultfs

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/please-build/depcore/pkg/buildfile"
)

// Tree is the default buildfile.Tree: it finds the nearest ancestor
// directory (starting from the path itself and walking up to root) that
// contains a file named buildFileName.
type Tree struct {
	Root          string
	BuildFileName string
}

// NoOwningPackageError reports a path with no ancestor directory (up to
// the project root) containing a build-definition file.
type NoOwningPackageError struct {
	Path string
}

func (e *NoOwningPackageError) Error() string {
	return "no build-definition file owns path: " + e.Path
}

// UserFacing implements usererror.Error.
func (e *NoOwningPackageError) UserFacing() bool { return true }

var _ buildfile.Tree = (*Tree)(nil)

// BasePathFor returns the "//"-prefixed base path of the nearest ancestor
// directory of relPath (relative to Root) that owns a build file.
func (t *Tree) BasePathFor(relPath string) (string, error) {
	dir := path.Clean(relPath)
	if !path.IsAbs(dir) {
		dir = "/" + dir
	}
	for {
		candidate := filepath.Join(t.Root, dir, t.BuildFileName)
		if _, err := os.Stat(candidate); err == nil {
			return "//" + strings.TrimPrefix(dir, "/"), nil
		}
		if dir == "/" || dir == "." {
			break
		}
		dir = path.Dir(dir)
	}
	return "", &NoOwningPackageError{Path: relPath}
}

// Walker is the default partialgraph.ProjectWalker, backed by godirwalk
// for its lower allocation overhead versus filepath.Walk on large trees.
type Walker struct{}

// WalkBuildFiles walks root and calls visit once per file named
// buildFileName, skipping any directory named "buck-out" (the
// conventional output directory, never a source tree to parse).
func (Walker) WalkBuildFiles(root, buildFileName string, visit func(path string) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, info *godirwalk.Dirent) error {
			if info.IsDir() && filepath.Base(osPathname) == "buck-out" {
				return filepath.SkipDir
			}
			if info.IsDir() || filepath.Base(osPathname) != buildFileName {
				return nil
			}
			return visit(osPathname)
		},
		Unsorted: false,
	})
}
