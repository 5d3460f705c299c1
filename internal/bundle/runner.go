package bundle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Runner ties flag selection to a Bundler. In watch mode it blocks until the
// context is cancelled, then tears the watch session down; in one-shot mode
// a build failure is returned to the caller so the process can exit non-zero.
type Runner struct {
	Bundler Bundler
	Options Options
	Logger  zerolog.Logger
}

// Run selects the active target from the flags and executes it.
func (r *Runner) Run(ctx context.Context, f Flags) error {
	cfg, mode := Select(r.Options, f)

	r.Logger.Debug().
		Str("target", cfg.Name).
		Str("mode", mode.String()).
		Bool("deploy", f.Deploy).
		Msg("Selected build target")

	if mode == ModeWatch {
		handle, err := r.Bundler.Watch(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create watch context: %w", err)
		}
		defer handle.Stop()

		<-ctx.Done()
		r.Logger.Info().Str("target", cfg.Name).Msg("Stopping watch")
		return nil
	}

	if err := r.Bundler.Build(ctx, cfg); err != nil {
		return fmt.Errorf("build failed for %s: %w", cfg.Name, err)
	}
	return nil
}
