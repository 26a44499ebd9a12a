package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// Static fetches pages without script execution. Useful for markup that
// arrives complete on the wire, and for hermetic tests against local
// servers.
type Static struct {
	timeout time.Duration
}

func NewStatic(timeout time.Duration) *Static {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Static{timeout: timeout}
}

func (s *Static) Render(ctx context.Context, pageURL string, headers map[string]string) (string, error) {
	// Fresh collector per render; colly remembers visited URLs and the
	// same search URL is fetched on every run.
	c := colly.NewCollector()
	c.SetRequestTimeout(s.timeout)
	c.Context = ctx

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			// colly only transparently decompresses bodies it asked for.
			if k == "Accept-Encoding" || v == "" {
				continue
			}
			r.Headers.Set(k, v)
		}
	})

	var html string
	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if html == "" {
		return "", fmt.Errorf("fetch %s: empty response", pageURL)
	}
	return html, nil
}
