package antibot

import (
	"math/rand"
	"strings"
	"testing"
)

func seededRotator() *HeaderRotator {
	return &HeaderRotator{rng: rand.New(rand.NewSource(7))}
}

func TestHeaders_BaseSetAlwaysPresent(t *testing.T) {
	h := seededRotator()

	for i := 0; i < 20; i++ {
		headers := h.Headers()
		for _, key := range []string{
			"Accept", "Accept-Language", "Accept-Encoding", "Connection",
			"DNT", "Upgrade-Insecure-Requests", "Sec-Fetch-Dest",
			"Sec-Fetch-Mode", "Sec-Fetch-Site", "User-Agent",
		} {
			if headers[key] == "" && key != "User-Agent" {
				t.Fatalf("missing base header %q", key)
			}
		}
		if headers["User-Agent"] == "" {
			t.Fatal("missing User-Agent")
		}
	}
}

func TestHeaders_RefererAndBrandHintProbabilities(t *testing.T) {
	h := seededRotator()

	const n = 2000
	withReferer, withBrand := 0, 0
	for i := 0; i < n; i++ {
		headers := h.Headers()
		if _, ok := headers["Referer"]; ok {
			withReferer++
		}
		if _, ok := headers["Sec-CH-UA"]; ok {
			withBrand++
		}
	}

	if withReferer < n*70/100 || withReferer > n*90/100 {
		t.Errorf("referer present in %d/%d calls, want ~80%%", withReferer, n)
	}
	if withBrand < n*20/100 || withBrand > n*40/100 {
		t.Errorf("brand hint present in %d/%d calls, want ~30%%", withBrand, n)
	}
}

func TestMobileHeaders(t *testing.T) {
	h := seededRotator()

	headers := h.MobileHeaders()
	if headers["Sec-CH-UA-Mobile"] != "?1" {
		t.Errorf("Sec-CH-UA-Mobile = %q, want ?1", headers["Sec-CH-UA-Mobile"])
	}
	ua := headers["User-Agent"]
	if !strings.Contains(ua, "Mobile") && !strings.Contains(ua, "iPhone") {
		t.Errorf("User-Agent %q does not look mobile", ua)
	}
}
