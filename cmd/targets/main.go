// Command targets wires the core parser, resolver, and query layer
// together into a runnable CLI, mirroring please's own single-binary
// command surface in miniature.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/thought-machine/go-flags"

	"github.com/please-build/depcore/internal/config"
	"github.com/please-build/depcore/internal/defaultfs"
	"github.com/please-build/depcore/internal/logging"
	"github.com/please-build/depcore/pkg/depresolver"
	"github.com/please-build/depcore/pkg/parser"
	"github.com/please-build/depcore/pkg/partialgraph"
	"github.com/please-build/depcore/pkg/query"
	"github.com/please-build/depcore/pkg/ruleregistry"
	"github.com/please-build/depcore/pkg/targetname"
	"github.com/please-build/depcore/pkg/usererror"
)

var log = logging.Log

var opts struct {
	Usage string `usage:"targets queries the dependency graph of a project's build-definition files."`

	Root          string   `long:"root" description:"Root of the project to query." default:"."`
	BuildFileName string   `long:"build_file_name" description:"Name of the build-definition file. Defaults to the config file's parse.buildfilename (BUCK)."`
	Config        []string `long:"config" description:"Per-invocation config override, e.g. build.gendir=out/gen"`
	Verbosity     string   `short:"v" long:"verbosity" description:"Log verbosity (debug, info, warning, error)" default:"warning"`

	Type            []string `long:"type" description:"Restrict output to these rule types."`
	ReferencedFiles []string `long:"referenced_files" description:"Restrict output to rules affected by these files."`
	JSON            bool     `long:"json" description:"Emit matching targets as a JSON array of attribute maps."`
	ResolveAlias    bool     `long:"resolvealias" description:"Print the resolved FQN for each positional argument and exit."`

	Args struct {
		Targets []string `positional-arg-name:"target" description:"Alias names or fully qualified targets (only with --resolvealias)."`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run())
}

func run() int {
	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	setVerbosity(opts.Verbosity)

	if err := execute(); err != nil {
		log.Error("%s", err)
		if usererror.IsUserFacing(err) {
			return 1
		}
		return 2
	}
	return 0
}

func setVerbosity(v string) {
	switch v {
	case "debug":
		logging.InitLogging(logging.DEBUG)
	case "info":
		logging.InitLogging(logging.INFO)
	case "error":
		logging.InitLogging(logging.ERROR)
	default:
		logging.InitLogging(logging.WARNING)
	}
}

func execute() error {
	cfg, err := config.ReadConfigFiles([]string{filepath.Join(opts.Root, config.FileName)})
	if err != nil {
		return err
	}
	for _, raw := range opts.Config {
		override, err := config.ParseOverride(raw)
		if err != nil {
			return err
		}
		if err := config.ApplyOverrides(cfg, []config.Override{override}); err != nil {
			return err
		}
	}
	buildFileName := opts.BuildFileName
	if buildFileName == "" {
		buildFileName = cfg.PrimaryBuildFileName()
	}

	registry := ruleregistry.Builtins()
	tnParser := targetname.NewParser(targetname.Config{ProjectRoot: opts.Root, BuildFileName: buildFileName})
	tree := &defaultfs.Tree{Root: opts.Root, BuildFileName: buildFileName}
	loader := defaultfs.JSONLoader{}
	p := parser.New(tnParser, registry, loader, tree, os.DirFS(opts.Root), depresolver.New())

	if opts.ResolveAlias {
		return resolveAliases(p, cfg)
	}

	if err := query.ValidateTypes(registry, opts.Type); err != nil {
		return err
	}

	graph, err := partialgraph.CreateFullGraph(p, defaultfs.Walker{}, opts.Root, buildFileName, nil)
	if err != nil {
		return err
	}

	filter := query.Filter{Types: opts.Type, ReferencedFiles: opts.ReferencedFiles}
	matches := query.Run(graph, filter)

	if opts.JSON {
		out, err := query.JSONOutput(loader, tnParser, nil, matches)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, fqn := range matches {
		fmt.Println(fqn)
	}
	log.Notice("%s matched out of %s in the graph", humanize.Comma(int64(len(matches))), humanize.Comma(int64(graph.Len())))
	return nil
}

func resolveAliases(p *parser.Parser, cfg *config.Configuration) error {
	resolver := &query.AliasResolver{Parser: p, Aliases: query.AliasMap(cfg.Aliases)}
	resolved, err := resolver.Resolve(opts.Args.Targets)
	if err != nil {
		return err
	}
	for _, fqn := range resolved {
		fmt.Println(fqn)
	}
	return nil
}
