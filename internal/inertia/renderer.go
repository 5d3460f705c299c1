package inertia

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"
)

// AssetSource answers the renderer's questions about the built client
// bundle. The asset pipeline implements it.
type AssetSource interface {
	// Scripts returns the URL paths of the entry scripts in load order
	Scripts() ([]string, error)
	// Styles returns the URL paths of the entry's css bundles
	Styles() ([]string, error)
	// Version returns the current asset fingerprint
	Version() string
}

// Renderer renders page components through the protocol.
type Renderer struct {
	assets       AssetSource
	templatePath string
	title        string
	logger       zerolog.Logger

	ssr *SSRGateway

	// reparse the shell template on every render (dev mode)
	reload     bool
	livereload bool
	tmpl       *template.Template
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSSR routes first loads through an external render server.
func WithSSR(gateway *SSRGateway) Option {
	return func(r *Renderer) { r.ssr = gateway }
}

// WithTemplateReload reparses the shell template per request, for dev mode.
func WithTemplateReload() Option {
	return func(r *Renderer) { r.reload = true }
}

// WithLiveReload makes the shell embed the live-reload client snippet.
func WithLiveReload() Option {
	return func(r *Renderer) { r.livereload = true }
}

// WithTitle sets the document title used by the shell template.
func WithTitle(title string) Option {
	return func(r *Renderer) { r.title = title }
}

// New creates a Renderer over the given asset source and shell template.
func New(assets AssetSource, templatePath string, logger zerolog.Logger, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		assets:       assets,
		templatePath: templatePath,
		title:        "Pingboard",
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := parseShell(templatePath)
	if err != nil {
		return nil, err
	}
	r.tmpl = tmpl

	return r, nil
}

func parseShell(path string) (*template.Template, error) {
	tmpl, err := template.New("shell").Funcs(template.FuncMap{
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shell template %s: %w", path, err)
	}
	return tmpl, nil
}

// Render writes the response for a page component. Protocol visits get a
// JSON page object; everything else gets the full HTML document. A GET
// protocol visit carrying a stale asset version gets a 409 with the current
// location, which tells the client to perform a full page visit.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, component string, props Props) {
	if props == nil {
		props = Props{}
	}

	page := Page{
		Component: component,
		Props:     props,
		URL:       req.URL.RequestURI(),
		Version:   r.assets.Version(),
	}

	w.Header().Add("Vary", HeaderInertia)

	if req.Header.Get(HeaderInertia) == "true" {
		if req.Method == http.MethodGet && req.Header.Get(HeaderVersion) != page.Version {
			w.Header().Set(HeaderLocation, page.URL)
			w.WriteHeader(http.StatusConflict)
			return
		}
		r.renderJSON(w, page)
		return
	}

	r.renderHTML(w, req, page)
}

func (r *Renderer) renderJSON(w http.ResponseWriter, page Page) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderInertia, "true")

	if err := json.NewEncoder(w).Encode(page); err != nil {
		r.logger.Error().Err(err).Str("component", page.Component).Msg("Failed to encode page object")
	}
}

type shellData struct {
	Title      string
	Page       string
	Scripts    []string
	Styles     []string
	SSRHead    []string
	SSRBody    string
	LiveReload bool
}

func (r *Renderer) renderHTML(w http.ResponseWriter, req *http.Request, page Page) {
	scripts, err := r.assets.Scripts()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to resolve entry scripts")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	styles, err := r.assets.Styles()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to resolve entry styles")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	pageJSON, err := json.Marshal(page)
	if err != nil {
		r.logger.Error().Err(err).Str("component", page.Component).Msg("Failed to marshal page object")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := shellData{
		Title:      r.title,
		Page:       string(pageJSON),
		Scripts:    scripts,
		Styles:     styles,
		LiveReload: r.livereload,
	}

	if r.ssr != nil && r.ssr.Enabled() {
		if rendered, err := r.ssr.Render(req.Context(), page); err != nil {
			// fall back to client-side rendering
			r.logger.Warn().Err(err).Str("component", page.Component).Msg("SSR render failed")
		} else {
			data.SSRHead = rendered.Head
			data.SSRBody = rendered.Body
		}
	}

	tmpl := r.tmpl
	if r.reload {
		if tmpl, err = parseShell(r.templatePath); err != nil {
			r.logger.Error().Err(err).Msg("Failed to reparse shell template")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, filepath.Base(r.templatePath), data); err != nil {
		r.logger.Error().Err(err).Msg("Failed to render shell template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
