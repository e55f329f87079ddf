// Package config loads the process-wide configuration that the core's
// external collaborators consume: the build-definition file name, the
// buck-out output-directory overrides, and the alias map the query layer
// resolves --resolvealias arguments against.
//
// Loading mirrors please's own two-tier shape: a checked-in repo config
// file parsed with gcfg, plus a lightweight per-invocation --config
// override parsed with ini.v1, applied on top.
package config

import (
	"os"

	"github.com/please-build/gcfg"
	"gopkg.in/ini.v1"
)

// FileName is the default repo config file name, mirroring
// please's ConfigFileName.
const FileName = ".depcoreconfig"

// Configuration is the gcfg-decoded shape of a repo config file.
type Configuration struct {
	Parse struct {
		BuildFileName []string `help:"Names Please-style build-definition files may use, tried in order. Defaults to BUCK."`
	}
	Build struct {
		AndroidDir    string `help:"buck-out subdirectory for Android outputs."`
		GenDir        string `help:"buck-out subdirectory for generated sources."`
		BinDir        string `help:"buck-out subdirectory for binaries."`
		AnnotationDir string `help:"buck-out subdirectory for annotation processor outputs."`
	}
	Aliases map[string]string `help:"Alias name to fully qualified target string, resolved by the targets query's --resolvealias flag."`
}

// DefaultConfiguration returns the configuration used when no config file
// is present on disk.
func DefaultConfiguration() *Configuration {
	c := &Configuration{}
	c.Parse.BuildFileName = []string{"BUCK"}
	c.Build.AndroidDir = "buck-out/android"
	c.Build.GenDir = "buck-out/gen"
	c.Build.BinDir = "buck-out/bin"
	c.Build.AnnotationDir = "buck-out/annotation"
	c.Aliases = map[string]string{}
	return c
}

// PrimaryBuildFileName returns the first configured build-file name, the
// one TargetName parsing uses to derive a target's build file path.
func (c *Configuration) PrimaryBuildFileName() string {
	if len(c.Parse.BuildFileName) == 0 {
		return "BUCK"
	}
	return c.Parse.BuildFileName[0]
}

// ReadConfigFiles reads each file in filenames in turn, merging into a
// configuration seeded with defaults; later files override earlier
// ones. A missing file is not an error: a repo need not carry every
// config tier.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	return config, nil
}

func readConfigFile(config *Configuration, filename string) error {
	if err := gcfg.ReadFileInto(config, filename); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if gcfg.FatalOnly(err) != nil {
			return err
		}
	}
	return nil
}

// Override is a single "section.key=value"-shaped --config flag value,
// applied after the repo config files via ApplyOverrides.
type Override struct {
	Section string
	Key     string
	Value   string
}

// ApplyOverrides layers per-invocation --config overrides on top of an
// already-loaded Configuration. Each Override is already split (see
// ParseOverride, which does the ini.v1 parsing); nothing is read from disk
// here.
//
// Only the fields a targets invocation plausibly needs to tweak
// per-run are supported: build-file name and the buck-out subdirectory
// overrides. Any other section/key pair is ignored.
func ApplyOverrides(config *Configuration, overrides []Override) error {
	for _, o := range overrides {
		switch {
		case o.Section == "parse" && o.Key == "buildfilename":
			config.Parse.BuildFileName = []string{o.Value}
		case o.Section == "build" && o.Key == "androiddir":
			config.Build.AndroidDir = o.Value
		case o.Section == "build" && o.Key == "gendir":
			config.Build.GenDir = o.Value
		case o.Section == "build" && o.Key == "bindir":
			config.Build.BinDir = o.Value
		case o.Section == "build" && o.Key == "annotationdir":
			config.Build.AnnotationDir = o.Value
		}
	}
	return nil
}

// ParseOverride splits a raw "--config section.key=value" flag value into
// an Override, using ini.v1 to parse the "key=value" half so malformed
// input is rejected the same way a real ini file's body would be.
func ParseOverride(raw string) (Override, error) {
	dotIdx, eqIdx := -1, -1
	for i, c := range raw {
		if c == '.' && dotIdx == -1 {
			dotIdx = i
		}
		if c == '=' {
			eqIdx = i
			break
		}
	}
	if dotIdx == -1 || eqIdx == -1 || dotIdx > eqIdx {
		return Override{}, &MalformedOverrideError{Raw: raw}
	}
	section := raw[:dotIdx]
	body := raw[dotIdx+1:]

	f, err := ini.Load([]byte(body))
	if err != nil {
		return Override{}, &MalformedOverrideError{Raw: raw}
	}
	for _, key := range f.Section("").Keys() {
		return Override{Section: section, Key: key.Name(), Value: key.Value()}, nil
	}
	return Override{}, &MalformedOverrideError{Raw: raw}
}

// MalformedOverrideError reports a --config value that isn't valid
// "section.key=value" syntax.
type MalformedOverrideError struct {
	Raw string
}

func (e *MalformedOverrideError) Error() string {
	return "malformed --config value (want section.key=value): " + e.Raw
}

// UserFacing implements usererror.Error.
func (e *MalformedOverrideError) UserFacing() bool { return true }
