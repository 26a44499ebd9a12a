package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Chrome renders pages in a headless browser. Each Render call gets a fresh
// browser context so no cookies or storage leak between fetches.
type Chrome struct {
	timeout time.Duration
}

func NewChrome(timeout time.Duration) *Chrome {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Chrome{timeout: timeout}
}

func (c *Chrome) Render(ctx context.Context, pageURL string, headers map[string]string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if ua := headers["User-Agent"]; ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, c.timeout)
	defer cancelRender()

	extra := network.Headers{}
	for k, v := range headers {
		if k == "User-Agent" || v == "" {
			continue
		}
		extra[k] = v
	}

	var html string
	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(extra),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(2 * time.Second),
		scrollForLazyImages(),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	}

	if err := chromedp.Run(renderCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp execution failed: %w", err)
	}
	return html, nil
}

// scrollForLazyImages walks the viewport down the page in steps so lazily
// loaded images materialize before the DOM is captured.
func scrollForLazyImages() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for y := 0; y < 10000; y += 1000 {
			if err := chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.Sleep(500 * time.Millisecond).Do(ctx); err != nil {
				return err
			}
		}
		if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
			return err
		}
		return chromedp.Sleep(time.Second).Do(ctx)
	})
}
