package antibot

import (
	"math/rand"
	"time"
)

var baseHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "es-PE,es;q=0.9,en;q=0.8",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Cache-Control":             "max-age=0",
}

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

var mobileUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36",
}

var referers = []string{
	"https://www.google.com.pe/",
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://www.facebook.com/",
	"", // no referer at all sometimes
}

var secCHUAVariants = []string{
	`"Google Chrome";v="119", "Chromium";v="119", "Not?A_Brand";v="24"`,
	`"Microsoft Edge";v="119", "Chromium";v="119", "Not?A_Brand";v="24"`,
	`"Brave";v="119", "Chromium";v="119", "Not?A_Brand";v="24"`,
}

// HeaderRotator produces a fresh, plausible browser fingerprint per call.
// It keeps no per-call state beyond its random source.
type HeaderRotator struct {
	rng *rand.Rand
}

func NewHeaderRotator() *HeaderRotator {
	return &HeaderRotator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Headers returns the base header set with a rotated User-Agent, a referer
// with 80% probability, and a randomized Sec-CH-UA brand hint with 30%
// probability.
func (h *HeaderRotator) Headers() map[string]string {
	headers := make(map[string]string, len(baseHeaders)+3)
	for k, v := range baseHeaders {
		headers[k] = v
	}

	headers["User-Agent"] = desktopUserAgents[h.rng.Intn(len(desktopUserAgents))]

	if h.rng.Float64() < 0.8 {
		headers["Referer"] = referers[h.rng.Intn(len(referers))]
	}
	if h.rng.Float64() < 0.3 {
		headers["Sec-CH-UA"] = secCHUAVariants[h.rng.Intn(len(secCHUAVariants))]
	}

	return headers
}

// MobileHeaders is the mobile-device variant of Headers.
func (h *HeaderRotator) MobileHeaders() map[string]string {
	headers := make(map[string]string, len(baseHeaders)+2)
	for k, v := range baseHeaders {
		headers[k] = v
	}

	headers["User-Agent"] = mobileUserAgents[h.rng.Intn(len(mobileUserAgents))]
	headers["Sec-CH-UA-Mobile"] = "?1"

	return headers
}
