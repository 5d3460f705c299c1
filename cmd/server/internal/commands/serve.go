package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/csrf"

	"pingboard/internal/assets"
	"pingboard/internal/bundle"
	httpmiddleware "pingboard/internal/http"
	"pingboard/internal/inertia"
	"pingboard/internal/livereload"
	"pingboard/internal/logger"
	"pingboard/internal/web"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"localhost:8080" env:"PINGBOARD_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"PINGBOARD_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"PINGBOARD_TLS_KEY"`

	// Asset pipeline configuration
	Config      string `help:"path to the asset pipeline options file" default:"assets.yaml" env:"PINGBOARD_ASSETS_CONFIG"`
	TemplateDir string `help:"directory holding the HTML shell template" default:"ui/html" env:"PINGBOARD_TEMPLATE_DIR"`
	Title       string `help:"document title for the HTML shell" default:"Pingboard"`

	// Rendering modes
	Dev    bool   `help:"development mode - rebuild the client bundle on change and push live reloads" default:"false" env:"PINGBOARD_DEV"`
	SSRURL string `help:"base URL of the SSR render server, empty disables server rendering" default:"" env:"PINGBOARD_SSR_URL"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("dev", c.Dev).Msg("Starting server")

	opts, err := bundle.LoadOptions(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load asset options: %w", err)
	}

	pipeline := assets.NewPipeline(bundle.NewEsbuild(log), opts, log)
	mux := http.NewServeMux()

	if c.Dev {
		hub := livereload.NewHub(log)
		defer hub.Close()

		// esbuild watches the JS module graph and rebuilds; the template
		// watcher covers the HTML shell, which esbuild never sees
		handle, err := pipeline.Watch(ctx, func(err error) {
			if err == nil {
				hub.Broadcast()
			}
		})
		if err != nil {
			return fmt.Errorf("failed to start asset watch: %w", err)
		}
		defer handle.Stop()

		watcher, err := livereload.NewWatcher([]string{c.TemplateDir}, func(string) {
			hub.Broadcast()
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create template watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()

		mux.Handle("/livereload", hub)
	} else {
		if err := pipeline.Load(); err != nil {
			return fmt.Errorf("no asset manifest found, run `assets --deploy` first: %w", err)
		}
	}

	rendererOpts := []inertia.Option{inertia.WithTitle(c.Title)}
	if c.Dev {
		rendererOpts = append(rendererOpts, inertia.WithTemplateReload(), inertia.WithLiveReload())
	}

	if c.SSRURL != "" {
		gateway := inertia.NewSSRGateway(c.SSRURL, log)
		rendererOpts = append(rendererOpts, inertia.WithSSR(gateway))

		// serve client-rendered pages while the render server comes up
		go func() {
			if err := gateway.Probe(ctx); err != nil {
				log.Warn().Err(err).Msg("SSR disabled, staying on client-side rendering")
			}
		}()
	}

	renderer, err := inertia.New(pipeline, filepath.Join(c.TemplateDir, "root.html"), log, rendererOpts...)
	if err != nil {
		return err
	}

	pages := web.NewPages(renderer, globals.Version)

	mux.Handle(assets.MountPath, httpmiddleware.Gzip(
		http.StripPrefix(assets.MountPath, http.FileServer(http.Dir(opts.Outdir)))))
	mux.HandleFunc("/", pages.Home)
	mux.HandleFunc("/about", pages.About)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// CSRF protection applies to HTML pages; assets and the reload socket
	// are exempt
	protected := csrf.New().Handler(mux)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptRoute(r.URL.Path) {
			mux.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	srv := configureHTTPServer(c.Listen, httpmiddleware.RequestLogger(log)(handler))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down server")
		}
	}()

	log.Info().Str("addr", c.Listen).Bool("ssr", c.SSRURL != "").Msg("Listening")

	if c.Cert != "" && c.Key != "" {
		err = srv.ListenAndServeTLS(c.Cert, c.Key)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func isExemptRoute(path string) bool {
	return strings.HasPrefix(path, assets.MountPath) ||
		path == "/livereload" ||
		path == "/healthz"
}
