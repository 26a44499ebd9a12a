// Package falabella scrapes product listings and prices from Falabella Perú
// search result pages. Everything is extracted from the rendered search page
// itself; no per-product requests are made.
package falabella

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dealwatch/pkg/antibot"
	"dealwatch/pkg/logger"
	"dealwatch/pkg/render"
	"dealwatch/pkg/scrapers"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	StoreKey = "falabella"
	BaseURL  = "https://www.falabella.com.pe"
)

type Config struct {
	BaseURL   string // defaults to BaseURL
	Renderer  render.Renderer
	Limiter   *antibot.RateLimiter
	Headers   *antibot.HeaderRotator
	Retry     scrapers.RetryPolicy
	PagePause time.Duration // pause between page fetches of one query
	Log       *logrus.Entry
}

type Scraper struct {
	baseURL   string
	searchURL string
	renderer  render.Renderer
	limiter   *antibot.RateLimiter
	headers   *antibot.HeaderRotator
	retry     scrapers.RetryPolicy
	pagePause time.Duration
	log       *logrus.Entry

	pause func(time.Duration)
}

func New(cfg Config) *Scraper {
	base := cfg.BaseURL
	if base == "" {
		base = BaseURL
	}
	pagePause := cfg.PagePause
	if pagePause == 0 {
		pagePause = 2 * time.Second
	}
	return &Scraper{
		baseURL:   base,
		searchURL: base + "/falabella-pe/search",
		renderer:  cfg.Renderer,
		limiter:   cfg.Limiter,
		headers:   cfg.Headers,
		retry:     cfg.Retry,
		pagePause: pagePause,
		log:       cfg.Log.WithField("store", StoreKey),
		pause:     time.Sleep,
	}
}

func (s *Scraper) StoreName() string { return StoreKey }

// SearchProducts crawls up to maxPages result pages for query. A page that
// yields no accepted listings ends the crawl (end of results); a page that
// fails to render is recorded as an error and the remaining pages are still
// visited. Ids already accepted on an earlier page are dropped.
func (s *Scraper) SearchProducts(ctx context.Context, query string, maxPages int) ([]scrapers.Listing, []error) {
	var listings []scrapers.Listing
	var errs []error
	seen := make(map[string]bool)

	for page := 1; page <= maxPages; page++ {
		pageURL := s.searchPageURL(query, page)
		s.log.WithFields(logrus.Fields{"query": query, "page": page}).Info("scraping search page")

		html, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			s.log.WithError(err).Errorf("failed to fetch page %d", page)
			errs = append(errs, fmt.Errorf("page %d: %w", page, err))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: parse html: %w", page, err))
			continue
		}

		cats := resolveCategories(doc)
		pageListings := s.extractListings(doc, cats)
		if len(pageListings) == 0 {
			s.log.WithField("page", page).Warn("no products on page, treating as end of results")
			break
		}

		fresh := 0
		for _, l := range pageListings {
			if seen[l.Product.ExternalID] {
				logger.Dedup("duplicate skipped (page %d): %s", page, l.Product.ExternalID)
				continue
			}
			seen[l.Product.ExternalID] = true
			listings = append(listings, l)
			fresh++
		}
		s.log.WithFields(logrus.Fields{
			"page":       page,
			"unique":     fresh,
			"duplicates": len(pageListings) - fresh,
		}).Info("page parsed")

		if page < maxPages {
			s.pause(s.pagePause)
		}
	}

	return listings, errs
}

func (s *Scraper) searchPageURL(query string, page int) string {
	u := fmt.Sprintf("%s?Ntt=%s", s.searchURL, url.QueryEscape(query))
	if page > 1 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return u
}

// fetchPage renders one search page, gated by the rate limiter and wrapped
// in the retry policy with a fresh header profile per attempt.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string) (string, error) {
	var html string
	err := s.retry.Do(ctx, func() error {
		s.limiter.WaitIfNeeded()
		var err error
		html, err = s.renderer.Render(ctx, pageURL, s.headers.Headers())
		return err
	})
	return html, err
}
