// Package analytics derives alerts, deals and trends from recorded price
// history. Everything here is recomputed on demand; nothing is persisted.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"dealwatch/pkg/config"
	"dealwatch/pkg/models"

	"github.com/sirupsen/logrus"
)

// Source is the slice of the storage layer the analyzer reads from.
type Source interface {
	ListProducts(limit int) ([]models.Product, error)
	PriceHistorySince(productID int64, since time.Time) ([]models.PriceObservation, error)
}

type Analyzer struct {
	src Source
	cfg config.Analytics
	log *logrus.Entry

	now func() time.Time
}

func New(src Source, cfg config.Analytics, log *logrus.Entry) *Analyzer {
	return &Analyzer{src: src, cfg: cfg, log: log, now: time.Now}
}

// DetectPriceDrops scans every product for a drop of at least minDiscount
// percent between its two most recent observations. Pass zero to use the
// configured minimum.
func (a *Analyzer) DetectPriceDrops(minDiscount float64) ([]models.PriceAlert, error) {
	if minDiscount <= 0 {
		minDiscount = a.cfg.MinDiscountPct
	}

	products, err := a.src.ListProducts(0)
	if err != nil {
		return nil, fmt.Errorf("detect price drops: %w", err)
	}

	var alerts []models.PriceAlert
	for _, p := range products {
		alert, err := a.analyzeProduct(p, minDiscount)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

// analyzeProduct compares the two newest observations inside the lookback
// window. History arrives most recent first.
func (a *Analyzer) analyzeProduct(p models.Product, minDiscount float64) (*models.PriceAlert, error) {
	since := a.now().AddDate(0, 0, -a.cfg.LookbackDays)
	history, err := a.src.PriceHistorySince(p.ID, since)
	if err != nil {
		return nil, fmt.Errorf("analyze product %d: %w", p.ID, err)
	}
	if len(history) < 2 {
		return nil, nil
	}

	current := history[0]
	previous := history[1]

	discountPct := (previous.Price - current.Price) / previous.Price * 100
	if discountPct < minDiscount {
		return nil, nil
	}

	isReal := a.isRealOffer(history)

	alertType := models.AlertPriceDrop
	if !isReal {
		alertType = models.AlertFakeOffer
	}

	return &models.PriceAlert{
		ProductID:   p.ID,
		ProductName: p.Name,
		OldPrice:    previous.Price,
		NewPrice:    current.Price,
		DiscountPct: math.Round(discountPct*100) / 100,
		IsRealOffer: isReal,
		AlertType:   alertType,
		Message:     alertMessage(p.Name, previous.Price, current.Price, discountPct, isReal),
	}, nil
}

// isRealOffer cross-checks a drop against the product's own history. A
// short history gives the store the benefit of the doubt. An advertised
// list price far above the historical average marks the offer fake, and so
// does a "discounted" price that still sits near that average.
func (a *Analyzer) isRealOffer(history []models.PriceObservation) bool {
	if len(history) < 3 {
		return true
	}

	current := history[0]

	var sum float64
	for _, h := range history[1:] {
		sum += h.Price
	}
	avg := sum / float64(len(history)-1)

	if current.ListPrice > 0 && current.ListPrice > avg*(1+a.cfg.InflationThresholdPct/100) {
		a.log.WithFields(logrus.Fields{
			"product_id": current.ProductID,
			"list_price": current.ListPrice,
			"avg_price":  avg,
		}).Warn("possible fake offer, list price far above historical average")
		return false
	}

	if current.Price > avg*0.95 {
		return false
	}

	return true
}

func alertMessage(name string, oldPrice, newPrice, discount float64, isReal bool) string {
	status := "REAL OFFER"
	if !isReal {
		status = "POSSIBLE FAKE OFFER"
	}
	return fmt.Sprintf("%s: %s now S/ %.2f (was S/ %.2f, -%.1f%%)",
		status, name, newPrice, oldPrice, discount)
}

// bestDealsMinDiscount is stricter than the alert minimum so the deals list
// only surfaces discounts worth acting on.
const bestDealsMinDiscount = 15.0

// GetBestDeals returns the strongest verified discounts, largest first.
func (a *Analyzer) GetBestDeals(limit int) ([]models.Deal, error) {
	alerts, err := a.DetectPriceDrops(bestDealsMinDiscount)
	if err != nil {
		return nil, err
	}

	var real []models.PriceAlert
	for _, alert := range alerts {
		if alert.IsRealOffer {
			real = append(real, alert)
		}
	}

	sort.Slice(real, func(i, j int) bool {
		return real[i].DiscountPct > real[j].DiscountPct
	})

	if limit > 0 && len(real) > limit {
		real = real[:limit]
	}

	deals := make([]models.Deal, len(real))
	for i, alert := range real {
		deals[i] = models.Deal{
			ProductID:   alert.ProductID,
			ProductName: alert.ProductName,
			OldPrice:    alert.OldPrice,
			NewPrice:    alert.NewPrice,
			DiscountPct: alert.DiscountPct,
			Savings:     alert.OldPrice - alert.NewPrice,
		}
	}
	return deals, nil
}

// GetPriceTrend compares the averages of the older and newer halves of the
// window, with a five percent band counting as stable. Pass zero days to
// use the configured window.
func (a *Analyzer) GetPriceTrend(productID int64, days int) (*models.PriceTrend, error) {
	if days <= 0 {
		days = a.cfg.TrendDays
	}

	since := a.now().AddDate(0, 0, -days)
	history, err := a.src.PriceHistorySince(productID, since)
	if err != nil {
		return nil, fmt.Errorf("price trend for product %d: %w", productID, err)
	}
	if len(history) == 0 {
		return &models.PriceTrend{Trend: "unknown", Data: []models.PriceObservation{}}, nil
	}

	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.Price
	}

	trend := "insufficient_data"
	if len(prices) >= 2 {
		// History is most recent first, so the first half is the newer one.
		mid := len(prices) / 2
		newerAvg := mean(prices[:mid])
		olderAvg := mean(prices[mid:])

		switch {
		case newerAvg < olderAvg*0.95:
			trend = "decreasing"
		case newerAvg > olderAvg*1.05:
			trend = "increasing"
		default:
			trend = "stable"
		}
	}

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		minPrice = math.Min(minPrice, p)
		maxPrice = math.Max(maxPrice, p)
	}

	return &models.PriceTrend{
		Trend:        trend,
		CurrentPrice: prices[0],
		AvgPrice:     mean(prices),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Data:         history,
	}, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
