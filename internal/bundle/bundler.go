package bundle

import (
	"context"
	"sync"
)

// Bundler is the capability interface the selector runs against. The real
// implementation is Esbuild; tests substitute a fake.
type Bundler interface {
	// Build performs a single synchronous build of the config
	Build(ctx context.Context, cfg Config) error
	// Watch opens a persistent build context that rebuilds on source change.
	// It returns once the initial watch is registered; rebuilds happen in
	// the background until the handle is stopped.
	Watch(ctx context.Context, cfg Config) (*WatchHandle, error)
}

// WatchHandle controls a running watch session. Stop is idempotent and
// blocks until the underlying build context is released.
type WatchHandle struct {
	once sync.Once
	stop func()
}

// NewWatchHandle wraps a stop function. The function is called at most once.
func NewWatchHandle(stop func()) *WatchHandle {
	return &WatchHandle{stop: stop}
}

// Stop tears down the watch session.
func (h *WatchHandle) Stop() {
	h.once.Do(func() {
		if h.stop != nil {
			h.stop()
		}
	})
}
