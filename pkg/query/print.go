package query

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/please-build/depcore/pkg/buildfile"
	"github.com/please-build/depcore/pkg/targetname"
)

// JSONOutput re-reads the build files backing fqns and renders each
// target's raw attribute map as a pretty-printed JSON array. The core
// never retains raw attribute maps past builder construction, so both
// --json output and query print always go back to the Loader; this also
// means raw-mode parsers (primed via ParseRawRules, with no build files
// on disk to re-read) cannot serve either.
func JSONOutput(loader buildfile.Loader, tnParser *targetname.Parser, defaultIncludes []string, fqns []string) ([]byte, error) {
	raw, err := rawRulesByFQN(loader, tnParser, defaultIncludes, fqns)
	if err != nil {
		return nil, err
	}
	out := make([]buildfile.RawRule, len(fqns))
	for i, fqn := range fqns {
		r, ok := raw[fqn]
		if !ok {
			return nil, fmt.Errorf("query: %s not found while re-reading its build file", fqn)
		}
		out[i] = r
	}
	// encoding/json sorts map keys when marshaling, satisfying the
	// "keys sorted" requirement without a custom encoder.
	return json.MarshalIndent(out, "", "  ")
}

// Print renders fqns as a build-file-source-like reconstruction: one
// rule() call per target, attributes in sorted-key order, for debugging a
// resolved rule without re-deriving it from the graph.
func Print(loader buildfile.Loader, tnParser *targetname.Parser, defaultIncludes []string, fqns []string) (string, error) {
	raw, err := rawRulesByFQN(loader, tnParser, defaultIncludes, fqns)
	if err != nil {
		return "", err
	}
	var out string
	for _, fqn := range fqns {
		r, ok := raw[fqn]
		if !ok {
			return "", fmt.Errorf("query: %s not found while re-reading its build file", fqn)
		}
		out += renderRule(r)
	}
	return out, nil
}

func renderRule(r buildfile.RawRule) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := fmt.Sprintf("%s(\n", r.Type())
	for _, k := range keys {
		if k == "type" {
			continue
		}
		out += fmt.Sprintf("    %s = %#v,\n", k, r[k])
	}
	out += ")\n\n"
	return out
}

func rawRulesByFQN(loader buildfile.Loader, tnParser *targetname.Parser, defaultIncludes []string, fqns []string) (map[string]buildfile.RawRule, error) {
	namesByFile := map[string]map[string]bool{}
	for _, fqn := range fqns {
		tn, err := tnParser.Parse(fqn, targetname.ParseContext{})
		if err != nil {
			return nil, err
		}
		wanted, ok := namesByFile[tn.BuildFilePath]
		if !ok {
			wanted = map[string]bool{}
			namesByFile[tn.BuildFilePath] = wanted
		}
		wanted[tn.ShortName] = true
	}

	result := map[string]buildfile.RawRule{}
	for path, wanted := range namesByFile {
		rawRules, err := loader.Load(tnParser.Config().ProjectRoot, path, defaultIncludes)
		if err != nil {
			return nil, err
		}
		for _, r := range rawRules {
			if !wanted[r.Name()] {
				continue
			}
			result["//"+r.BuckBasePath()+":"+r.Name()] = r
		}
	}
	return result, nil
}

