package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

// Esbuild runs build targets through the esbuild API.
type Esbuild struct {
	logger zerolog.Logger
}

// NewEsbuild creates a Bundler backed by esbuild.
func NewEsbuild(logger zerolog.Logger) *Esbuild {
	return &Esbuild{logger: logger}
}

var _ Bundler = (*Esbuild)(nil)

// Build runs a single build and returns an error if esbuild reported any.
func (e *Esbuild) Build(ctx context.Context, cfg Config) error {
	e.logger.Info().
		Str("target", cfg.Name).
		Str("entrypoint", cfg.EntryPoint).
		Bool("minify", cfg.Minify).
		Msg("Building bundle")

	result := api.Build(e.buildOptions(cfg))
	return e.resultError(cfg, result.Errors)
}

// Watch opens a persistent build context for the config and registers a
// file-change watch. The initial build runs asynchronously; results are
// reported through cfg.OnRebuild and the log.
func (e *Esbuild) Watch(ctx context.Context, cfg Config) (*WatchHandle, error) {
	buildCtx, ctxErr := api.Context(e.buildOptions(cfg))
	if ctxErr != nil {
		if err := e.resultError(cfg, ctxErr.Errors); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create watch context for %s", cfg.Name)
	}

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		buildCtx.Dispose()
		return nil, fmt.Errorf("failed to start watch for %s: %w", cfg.Name, err)
	}

	e.logger.Info().
		Str("target", cfg.Name).
		Str("entrypoint", cfg.EntryPoint).
		Msg("Watching for changes")

	return NewWatchHandle(buildCtx.Dispose), nil
}

func (e *Esbuild) buildOptions(cfg Config) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints: []string{cfg.EntryPoint},
		Bundle:      true,
		Write:       true,
		JSX:         api.JSXAutomatic,
		Outdir:      cfg.Outdir,
		Outfile:     cfg.Outfile,
		Platform:    cfg.Platform,
		Format:      cfg.Format,
		Target:      cfg.Target,
		Engines:     cfg.Engines,
		Splitting:   cfg.Splitting,
		TreeShaking: api.TreeShakingTrue,

		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
		Sourcemap:         cfg.Sourcemap,

		External:  cfg.Externals,
		NodePaths: cfg.NodePaths,
		Metafile:  cfg.MetafilePath != "",
		LogLevel:  api.LogLevelSilent,
	}

	opts.Plugins = append(opts.Plugins, cfg.Plugins...)
	if cfg.MetafilePath != "" || cfg.OnRebuild != nil {
		opts.Plugins = append(opts.Plugins, e.resultPlugin(cfg))
	}

	return opts
}

// resultPlugin persists the metafile and fires the rebuild hook after every
// build, so watch-mode rebuilds behave the same as one-shot builds.
func (e *Esbuild) resultPlugin(cfg Config) api.Plugin {
	return api.Plugin{
		Name: "pingboard-result",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				err := e.resultError(cfg, result.Errors)

				if err == nil && cfg.MetafilePath != "" {
					if werr := writeMetafile(cfg.MetafilePath, result.Metafile); werr != nil {
						e.logger.Error().Err(werr).Msg("Failed to write metafile")
					}
				}

				if cfg.OnRebuild != nil {
					cfg.OnRebuild(err)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (e *Esbuild) resultError(cfg Config, msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	for _, msg := range msgs {
		evt := e.logger.Error().Str("target", cfg.Name).Str("error", msg.Text)
		if msg.Location != nil {
			evt = evt.Str("file", msg.Location.File).Int("line", msg.Location.Line)
		}
		evt.Msg("Build error")
	}
	return fmt.Errorf("esbuild failed with %d errors", len(msgs))
}

func writeMetafile(path, metafile string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(metafile), 0o600)
}
