package assets

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"pingboard/internal/bundle"
)

// Pipeline builds the client bundle and serves manifest queries to the page
// renderer. It only ever drives the client target; the SSR bundle is built by
// the assets CLI and consumed by an external render process.
type Pipeline struct {
	bundler bundle.Bundler
	opts    bundle.Options
	logger  zerolog.Logger

	mu       sync.RWMutex
	manifest *Manifest
}

// NewPipeline creates a pipeline over the given bundler.
func NewPipeline(bundler bundle.Bundler, opts bundle.Options, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		bundler: bundler,
		opts:    opts,
		logger:  logger,
	}
}

// Build runs a one-shot client build and loads the resulting manifest.
func (p *Pipeline) Build(ctx context.Context) error {
	cfg := bundle.ClientConfig(p.opts, bundle.Flags{})
	if err := p.bundler.Build(ctx, cfg); err != nil {
		return err
	}
	return p.reload(cfg.MetafilePath)
}

// Watch starts a client watch session. After every successful rebuild the
// manifest is reloaded and onRebuild is invoked; failed rebuilds are passed
// through so the caller can decide whether to notify.
func (p *Pipeline) Watch(ctx context.Context, onRebuild func(err error)) (*bundle.WatchHandle, error) {
	cfg := bundle.ClientConfig(p.opts, bundle.Flags{Watch: true})
	cfg.OnRebuild = func(err error) {
		if err == nil {
			if rerr := p.reload(cfg.MetafilePath); rerr != nil {
				p.logger.Error().Err(rerr).Msg("Failed to reload manifest after rebuild")
				err = rerr
			}
		}
		if onRebuild != nil {
			onRebuild(err)
		}
	}
	return p.bundler.Watch(ctx, cfg)
}

// Load reads a previously built manifest from disk. Used when the server
// runs against artifacts produced by `assets --deploy`.
func (p *Pipeline) Load() error {
	return p.reload(filepath.Join(p.opts.Outdir, bundle.MetafileName))
}

func (p *Pipeline) reload(metafilePath string) error {
	manifest, err := LoadManifest(metafilePath)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.manifest = manifest
	p.mu.Unlock()

	p.logger.Debug().Str("version", manifest.Version()).Msg("Asset manifest loaded")
	return nil
}

// Version returns the current asset fingerprint, or "" before the first
// successful build.
func (p *Pipeline) Version() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.manifest == nil {
		return ""
	}
	return p.manifest.Version()
}

// Scripts returns the URL paths of the scripts needed to boot the client
// entry point, in load order.
func (p *Pipeline) Scripts() ([]string, error) {
	return p.urls(func(m *Manifest) ([]string, error) {
		return m.Scripts(p.opts.ClientEntry)
	})
}

// Styles returns the URL paths of the css bundles for the client entry point.
func (p *Pipeline) Styles() ([]string, error) {
	return p.urls(func(m *Manifest) ([]string, error) {
		return m.Styles(p.opts.ClientEntry)
	})
}

func (p *Pipeline) urls(query func(*Manifest) ([]string, error)) ([]string, error) {
	p.mu.RLock()
	manifest := p.manifest
	p.mu.RUnlock()

	if manifest == nil {
		return nil, errors.New("assets not built yet")
	}

	paths, err := query(manifest)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(paths))
	for _, path := range paths {
		urls = append(urls, p.urlFor(path))
	}
	return urls, nil
}

// urlFor maps a metafile output path (relative to the working directory,
// e.g. "public/assets/app.js") to the URL it is served under ("/assets/app.js").
func (p *Pipeline) urlFor(outputPath string) string {
	rel, err := filepath.Rel(p.opts.Outdir, outputPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/" + outputPath
	}
	return MountPath + filepath.ToSlash(rel)
}

// MountPath is where the server mounts the client bundle output directory.
const MountPath = "/assets/"
