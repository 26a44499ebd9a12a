package scrapers

import (
	"context"
	"fmt"
	"math"
	"time"

	"dealwatch/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// priceChangeEpsilon is the relative difference below which a re-observed
// price counts as unchanged and no new observation is appended.
const priceChangeEpsilon = 0.001

// Orchestrator wraps a Store implementation with the shared run loop:
// iterate queries, persist listings, aggregate a run summary. Products are
// upserted unconditionally; price observations only when the price moved.
type Orchestrator struct {
	store Store
	saver Saver
	log   *logrus.Entry
}

func NewOrchestrator(store Store, saver Saver, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		store: store,
		saver: saver,
		log:   log.WithField("store", store.StoreName()),
	}
}

func (o *Orchestrator) StoreName() string {
	return o.store.StoreName()
}

func (o *Orchestrator) RunScraping(ctx context.Context, queries []string, maxPages int) *models.ScrapeRunResult {
	start := time.Now()
	result := &models.ScrapeRunResult{
		RunID:     uuid.NewString(),
		StoreName: o.store.StoreName(),
		Timestamp: start,
	}

	o.log.WithField("run_id", result.RunID).Infof("starting scraping for %d queries", len(queries))

	for _, query := range queries {
		listings, pageErrs := o.store.SearchProducts(ctx, query, maxPages)
		for _, err := range pageErrs {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("query %q: %v", query, err))
		}

		if len(listings) == 0 {
			o.log.WithField("query", query).Warn("no results for query")
			continue
		}
		result.ProductsFound += len(listings)

		for _, listing := range listings {
			saved, err := o.saveListing(listing)
			if err != nil {
				o.log.WithField("product", listing.Product.Name).WithError(err).Error("failed to save product")
				result.Errors++
				result.ErrorMessages = append(result.ErrorMessages, err.Error())
				continue
			}
			if saved {
				result.ProductsSaved++
			}
		}
	}

	result.DurationSeconds = time.Since(start).Seconds()
	o.log.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"found":    result.ProductsFound,
		"saved":    result.ProductsSaved,
		"errors":   result.Errors,
		"duration": result.DurationSeconds,
	}).Info("scraping completed")

	return result
}

// saveListing upserts the product and appends a price observation when the
// price moved by more than 0.1% relative to the latest stored one.
func (o *Orchestrator) saveListing(listing Listing) (bool, error) {
	if listing.Price == nil || listing.Price.Price <= 0 {
		o.log.WithField("product", listing.Product.Name).Warn("no price extracted, skipping")
		return false, nil
	}

	productID, err := o.saver.UpsertProduct(&listing.Product)
	if err != nil {
		return false, fmt.Errorf("upsert %q: %w", listing.Product.Name, err)
	}

	latest, err := o.saver.LatestPrice(productID)
	if err != nil {
		return false, fmt.Errorf("latest price for %q: %w", listing.Product.Name, err)
	}

	if latest != nil && math.Abs(listing.Price.Price-latest.Price)/latest.Price < priceChangeEpsilon {
		o.log.WithField("product", listing.Product.Name).Debug("price unchanged")
		return true, nil
	}

	obs := *listing.Price
	obs.ProductID = productID
	if obs.Currency == "" {
		obs.Currency = models.DefaultCurrency
	}
	if obs.ScrapedAt.IsZero() {
		obs.ScrapedAt = time.Now().UTC()
	}
	if _, err := o.saver.AppendPrice(&obs); err != nil {
		return false, fmt.Errorf("append price for %q: %w", listing.Product.Name, err)
	}

	o.log.WithFields(logrus.Fields{
		"product": listing.Product.Name,
		"price":   obs.Price,
	}).Info("saved price observation")
	return true, nil
}
