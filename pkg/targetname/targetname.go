// Package targetname implements the canonical representation of a build
// target reference and the rules for parsing a dep string into one.
//
// A TargetName is always absolute once parsed: relative references like
// ":foo" are resolved against a ParseContext before a TargetName is ever
// constructed, mirroring how please's core.BuildLabel is always absolute.
package targetname

import (
	"fmt"
	"path"
	"strings"

	"github.com/please-build/depcore/pkg/usererror"
)

// Config carries the process-wide settings that affect how a TargetName is
// derived from a dep string. It's threaded through construction rather than
// held as a package-level singleton, so tests (and multiple repos in the
// same process) can use different values.
type Config struct {
	// ProjectRoot is the filesystem path that "//" is relative to.
	ProjectRoot string
	// BuildFileName is the name of the build-definition file, e.g. "BUCK".
	BuildFileName string
}

// TargetName is an immutable triple (buildFilePath, basePath, shortName).
type TargetName struct {
	BuildFilePath string
	BasePath      string
	ShortName     string
}

// FQN returns the fully qualified name, "//basePath:shortName".
func (t TargetName) FQN() string {
	return t.BasePath + ":" + t.ShortName
}

// String implements fmt.Stringer as the FQN.
func (t TargetName) String() string {
	return t.FQN()
}

// ParseContext supplies the base name used to resolve a relative dep
// string such as ":foo".
type ParseContext struct {
	BaseName string
}

// ForBaseName constructs a ParseContext rooted at the given base path,
// e.g. ForBaseName("//app") lets ":bin" resolve to "//app:bin".
func ForBaseName(baseName string) ParseContext {
	return ParseContext{BaseName: baseName}
}

// BadlyFormattedError reports a dep string that doesn't match any of the
// legal target-reference forms.
type BadlyFormattedError struct {
	Target string
}

func (e *BadlyFormattedError) Error() string {
	return fmt.Sprintf("badly formatted target: %q", e.Target)
}

// UserFacing implements usererror.Error.
func (e *BadlyFormattedError) UserFacing() bool { return true }

var _ usererror.Error = (*BadlyFormattedError)(nil)

// Parser parses dep strings into TargetNames under a Config.
type Parser struct {
	cfg Config
}

// NewParser constructs a Parser bound to the given config.
func NewParser(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Config returns the parser's config, for callers (e.g. the loader) that
// need the same BuildFileName/ProjectRoot values.
func (p *Parser) Config() Config { return p.cfg }

// Parse parses a single dep string under ctx:
//
//  1. If s contains ':' but doesn't start with "//": a leading ':' is
//     resolved against ctx.BaseName; otherwise it's badly formatted.
//  2. The resulting absolute form must start with "//"; it's split into
//     basePath and shortName on the last ':'. Both must be non-empty
//     (and basePath must still start with "//").
//  3. buildFilePath is derived from basePath and the configured build
//     file name; no filesystem check is performed here.
func (p *Parser) Parse(s string, ctx ParseContext) (TargetName, error) {
	abs := s
	switch {
	case strings.HasPrefix(s, "//"):
		// already absolute
	case strings.Contains(s, ":"):
		if !strings.HasPrefix(s, ":") {
			return TargetName{}, &BadlyFormattedError{Target: s}
		}
		abs = ctx.BaseName + s
	default:
		return TargetName{}, &BadlyFormattedError{Target: s}
	}
	if !strings.HasPrefix(abs, "//") {
		return TargetName{}, &BadlyFormattedError{Target: s}
	}
	idx := strings.LastIndex(abs, ":")
	if idx < 0 {
		return TargetName{}, &BadlyFormattedError{Target: s}
	}
	basePath, shortName := abs[:idx], abs[idx+1:]
	if shortName == "" || !strings.HasPrefix(basePath, "//") {
		return TargetName{}, &BadlyFormattedError{Target: s}
	}
	return TargetName{
		BuildFilePath: p.BuildFilePath(basePath),
		BasePath:      basePath,
		ShortName:     shortName,
	}, nil
}

// BuildFilePath derives the path of the build file that must declare
// targets under basePath: basePath with the leading "//" replaced by the
// project root, joined with the configured build file name.
func (p *Parser) BuildFilePath(basePath string) string {
	rel := strings.TrimPrefix(basePath, "//")
	return path.Join(p.cfg.ProjectRoot, rel, p.cfg.BuildFileName)
}
