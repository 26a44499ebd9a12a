// Package render turns a URL into a fully loaded HTML document. The Chrome
// implementation drives a headless browser and triggers lazy loading before
// capturing the DOM; the Static implementation does a plain fetch for pages
// that do not need script execution.
package render

import "context"

// Renderer fetches pageURL and returns the rendered HTML. The returned
// document must already contain any lazily loaded content the parsers rely
// on. headers carries the request fingerprint to present upstream.
type Renderer interface {
	Render(ctx context.Context, pageURL string, headers map[string]string) (string, error)
}
