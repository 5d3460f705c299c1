package commands

import (
	"context"
	"fmt"

	"pingboard/internal/bundle"
	"pingboard/internal/logger"
)

// BuildCmd selects and runs one build target. With --watch it holds a
// persistent build context open until interrupted; otherwise it builds once
// and exits, non-zero if the build failed.
type BuildCmd struct {
	Watch  bool   `help:"Rebuild on source change and emit inline source maps."`
	Deploy bool   `help:"Minify the client bundle for deployment."`
	SSR    bool   `help:"Build the server-rendering bundle instead of the client bundle." name:"ssr"`
	Config string `help:"Path to the asset pipeline options file." default:"assets.yaml" env:"PINGBOARD_ASSETS_CONFIG"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	opts, err := bundle.LoadOptions(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load asset options: %w", err)
	}

	runner := &bundle.Runner{
		Bundler: bundle.NewEsbuild(log),
		Options: opts,
		Logger:  log,
	}

	return runner.Run(ctx, bundle.Flags{
		Watch:  c.Watch,
		Deploy: c.Deploy,
		SSR:    c.SSR,
	})
}
