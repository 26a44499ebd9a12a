// Package scrapers defines the uniform contract every store implementation
// satisfies, the registry that looks implementations up by store key, and
// the orchestrator that turns parsed listings into persisted records.
package scrapers

import (
	"context"

	"dealwatch/pkg/models"
)

// Listing is one extracted (product, price) candidate. Price may be nil when
// a store could not produce an observation for the card.
type Listing struct {
	Product models.Product
	Price   *models.PriceObservation
}

// Store is implemented per store variant: it knows how to crawl one query
// across search result pages and return deduplicated listings. Page-level
// failures are returned alongside whatever listings still came through.
type Store interface {
	StoreName() string
	SearchProducts(ctx context.Context, query string, maxPages int) ([]Listing, []error)
}

// Scraper is the contract exposed to callers (HTTP surface, scheduler): run
// a full multi-query scrape and report a summary. Errors never abort the
// run; they are aggregated into the result.
type Scraper interface {
	StoreName() string
	RunScraping(ctx context.Context, queries []string, maxPages int) *models.ScrapeRunResult
}

// Saver is the slice of the persistence gateway the orchestrator needs.
type Saver interface {
	UpsertProduct(p *models.Product) (int64, error)
	LatestPrice(productID int64) (*models.PriceObservation, error)
	AppendPrice(obs *models.PriceObservation) (int64, error)
}
