// Package buildfile declares the external collaborators the core consumes:
// the raw build-file evaluator (Loader) and the filesystem abstraction that
// maps a path to the nearest build file that owns it (Tree). Concrete
// implementations live in internal/defaultfs; this package only fixes the
// contract.
package buildfile

// RawRule is an attribute map decoded from a build file. Required keys are
// "type", "name", and "buck_base_path"; everything else is opaque to the
// core and forwarded verbatim to the rule factory (and, for --json output,
// back out to the caller).
type RawRule map[string]any

// Type returns the rule's type tag, or "" if absent/wrong type.
func (r RawRule) Type() string { return r.str("type") }

// Name returns the rule's name attribute, or "" if absent/wrong type.
func (r RawRule) Name() string { return r.str("name") }

// BuckBasePath returns the rule's buck_base_path attribute, which may be
// empty for a rule declared at the project root.
func (r RawRule) BuckBasePath() string { return r.str("buck_base_path") }

func (r RawRule) str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Loader is the consumed raw-rule contract: given a project root, a
// build-file path, and the default includes for that parse, it returns the
// list of attribute maps declared in that file. The core never inspects
// how a build file is evaluated; it only consumes this list.
type Loader interface {
	Load(projectRoot, buildFilePath string, defaultIncludes []string) ([]RawRule, error)
}

// Tree is the consumed build-file-tree contract: given an arbitrary path
// under the project, it returns the base path ("//foo/bar" form) of the
// nearest ancestor directory that owns a build file. The core only hands it
// to rule factories (ruleregistry.FactoryParams.BuildFileTree); target
// resolution itself never needs it, since a TargetName's build file is
// always derived from its own basePath.
type Tree interface {
	BasePathFor(path string) (string, error)
}
