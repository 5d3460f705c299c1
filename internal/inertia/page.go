// Package inertia implements the page protocol that lets controllers return
// view data directly: a controller hands the renderer a component name and
// props, and the renderer decides between a full HTML document and a JSON
// page object based on the X-Inertia request header.
package inertia

// Props is the view data a controller returns for a page component.
type Props map[string]any

// Page is the protocol's page object. It is embedded in the HTML shell on
// first load and returned as JSON on subsequent protocol visits.
type Page struct {
	Component string `json:"component"`
	Props     Props  `json:"props"`
	URL       string `json:"url"`
	Version   string `json:"version"`
}

// Protocol headers.
const (
	HeaderInertia  = "X-Inertia"
	HeaderVersion  = "X-Inertia-Version"
	HeaderLocation = "X-Inertia-Location"
)
