package defaultfs

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/please-build/depcore/pkg/buildfile"
)

// JSONLoader is the default buildfile.Loader. The real build-definition
// language is a starlark-like DSL and is treated as an out-of-scope
// external collaborator; this loader instead reads a build file as a
// plain JSON array of rule attribute maps, giving the rest of the core
// something real to parse end to end without reimplementing a DSL
// evaluator.
type JSONLoader struct{}

// IOFailureError wraps an underlying filesystem or decode error
// encountered while loading a build file.
type IOFailureError struct {
	Path string
	Err  error
}

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOFailureError) Unwrap() error { return e.Err }

// UserFacing implements usererror.Error: a malformed or unreadable build
// file is propagated as-is and treated as fatal, not as a recoverable
// user typo.
func (e *IOFailureError) UserFacing() bool { return false }

var _ buildfile.Loader = JSONLoader{}

// Load reads buildFilePath and decodes it as a JSON array of rule
// attribute maps. defaultIncludes is accepted for interface compatibility
// with loaders that preload macro/include files before parsing, but is
// unused here: this loader has no macro/include mechanism.
func (JSONLoader) Load(projectRoot, buildFilePath string, defaultIncludes []string) ([]buildfile.RawRule, error) {
	data, err := os.ReadFile(buildFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailureError{Path: buildFilePath, Err: err}
	}

	var rules []buildfile.RawRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, &IOFailureError{Path: buildFilePath, Err: err}
	}
	return rules, nil
}
