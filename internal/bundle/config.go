package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/evanw/esbuild/pkg/api"
	"gopkg.in/yaml.v3"
)

// Options are the project-level pipeline settings. They describe where the
// UI sources live and where artifacts go; the per-invocation knobs (minify,
// sourcemaps, target) are derived from Flags by Select.
type Options struct {
	// Client bundle entry point (browser target)
	ClientEntry string `yaml:"client_entry"`
	// SSR bundle entry point (node target)
	ServerEntry string `yaml:"server_entry"`
	// Output directory for the client bundle and its chunks
	Outdir string `yaml:"outdir"`
	// Output file for the single-file SSR bundle
	ServerOutfile string `yaml:"server_outfile"`
	// Asset globs resolved at runtime rather than bundled (fonts, images)
	Externals []string `yaml:"externals"`
	// Additional module resolution paths
	NodePaths []string `yaml:"node_paths"`
	// Node engine version the SSR bundle targets
	NodeVersion string `yaml:"node_version"`
}

// DefaultOptions returns the conventional project layout.
func DefaultOptions() Options {
	return Options{
		ClientEntry:   "ui/app.tsx",
		ServerEntry:   "ui/ssr.tsx",
		Outdir:        "public/assets",
		ServerOutfile: "dist/ssr/ssr.js",
		Externals:     []string{"/fonts/*", "/images/*", "*.svg", "*.woff2"},
		NodePaths:     []string{"node_modules"},
		NodeVersion:   "18",
	}
}

// LoadOptions reads overrides from a yaml file, falling back to defaults for
// any field the file omits. A missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return opts, nil
	}
	if err != nil {
		return opts, err
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return opts, nil
}

// Config is a fully resolved build target. Exactly one Config is active per
// invocation; it is constructed fresh by Select and never mutated afterwards.
type Config struct {
	// Target name used in logs ("client" or "ssr")
	Name string

	EntryPoint string
	// Outdir is set for the client target, Outfile for the ssr target
	Outdir  string
	Outfile string

	Platform  api.Platform
	Format    api.Format
	Target    api.Target
	Engines   []api.Engine
	Splitting bool

	Minify    bool
	Sourcemap api.SourceMap

	Externals []string
	NodePaths []string
	Plugins   []api.Plugin

	// MetafilePath, when set, receives the esbuild metafile after every
	// successful build (including watch-mode rebuilds)
	MetafilePath string

	// OnRebuild is invoked after every build completes; err is non-nil when
	// the build produced errors. Used by the dev server for live reload.
	OnRebuild func(err error)
}

// MetafileName is the metafile written alongside the client bundle.
const MetafileName = "meta.json"

// ClientConfig builds the browser target configuration.
func ClientConfig(opts Options, f Flags) Config {
	return Config{
		Name:         "client",
		EntryPoint:   opts.ClientEntry,
		Outdir:       opts.Outdir,
		Platform:     api.PlatformBrowser,
		Format:       api.FormatESModule,
		Target:       api.ES2020,
		Splitting:    true,
		Minify:       f.Deploy,
		Sourcemap:    sourcemap(f),
		Externals:    slices.Clone(opts.Externals),
		NodePaths:    slices.Clone(opts.NodePaths),
		MetafilePath: filepath.Join(opts.Outdir, MetafileName),
	}
}

// ServerConfig builds the node SSR target configuration. The SSR bundle only
// ever runs inside a trusted render process, so it is never minified, even
// for deploy builds.
func ServerConfig(opts Options, f Flags) Config {
	return Config{
		Name:       "ssr",
		EntryPoint: opts.ServerEntry,
		Outfile:    opts.ServerOutfile,
		Platform:   api.PlatformNode,
		Format:     api.FormatCommonJS,
		Engines:    []api.Engine{{Name: api.EngineNode, Version: opts.NodeVersion}},
		Minify:     false,
		Sourcemap:  sourcemap(f),
		Externals:  slices.Clone(opts.Externals),
		NodePaths:  slices.Clone(opts.NodePaths),
	}
}

func sourcemap(f Flags) api.SourceMap {
	if f.Watch {
		return api.SourceMapInline
	}
	return api.SourceMapNone
}
