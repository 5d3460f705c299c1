// Package web holds the page controllers. A controller is deliberately
// tiny: it names a component and returns its props; the protocol adapter
// does the rest.
package web

import (
	"net/http"
	"time"

	"pingboard/internal/inertia"
)

// Pages is the set of page controllers.
type Pages struct {
	renderer *inertia.Renderer
	version  string
}

// NewPages wires the controllers to a renderer.
func NewPages(renderer *inertia.Renderer, version string) *Pages {
	return &Pages{renderer: renderer, version: version}
}

// Home renders the landing page.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p.renderer.Render(w, r, "Home", inertia.Props{
		"greeting":      "Hello from the server",
		"serverVersion": p.version,
		"renderedAt":    time.Now().UTC().Format(time.RFC3339),
	})
}

// About renders the about page.
func (p *Pages) About(w http.ResponseWriter, r *http.Request) {
	p.renderer.Render(w, r, "About", nil)
}
