package analytics

import (
	"io"
	"testing"
	"time"

	"dealwatch/pkg/config"
	"dealwatch/pkg/models"

	"github.com/sirupsen/logrus"
)

type fakeSource struct {
	products []models.Product
	history  map[int64][]models.PriceObservation
}

func (f *fakeSource) ListProducts(limit int) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeSource) PriceHistorySince(productID int64, since time.Time) ([]models.PriceObservation, error) {
	return f.history[productID], nil
}

func testAnalyzer(src *fakeSource) *Analyzer {
	l := logrus.New()
	l.SetOutput(io.Discard)
	a := New(src, config.Analytics{
		MinDiscountPct:        10,
		InflationThresholdPct: 20,
		LookbackDays:          7,
		TrendDays:             30,
	}, logrus.NewEntry(l))
	a.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

// observations builds a most-recent-first history from plain prices.
func observations(productID int64, prices ...float64) []models.PriceObservation {
	obs := make([]models.PriceObservation, len(prices))
	for i, p := range prices {
		obs[i] = models.PriceObservation{ProductID: productID, Price: p}
	}
	return obs
}

func TestDetectPriceDrops_RealOffer(t *testing.T) {
	src := &fakeSource{
		products: []models.Product{{ID: 1, Name: "Laptop Lenovo IdeaPad 3"}},
		history:  map[int64][]models.PriceObservation{1: observations(1, 70, 100, 100, 100)},
	}

	alerts, err := testAnalyzer(src).DetectPriceDrops(0)
	if err != nil {
		t.Fatalf("DetectPriceDrops: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}

	a := alerts[0]
	if a.AlertType != models.AlertPriceDrop || !a.IsRealOffer {
		t.Errorf("alert = %+v, want a real price_drop", a)
	}
	if a.DiscountPct != 30 {
		t.Errorf("DiscountPct = %v, want 30", a.DiscountPct)
	}
	if a.OldPrice != 100 || a.NewPrice != 70 {
		t.Errorf("prices = %v -> %v, want 100 -> 70", a.OldPrice, a.NewPrice)
	}
}

func TestDetectPriceDrops_InflatedListPriceIsFake(t *testing.T) {
	history := observations(1, 100, 125, 100, 100)
	history[0].ListPrice = 200 // far above the ~108 historical average

	src := &fakeSource{
		products: []models.Product{{ID: 1, Name: "Laptop HP Pavilion 15"}},
		history:  map[int64][]models.PriceObservation{1: history},
	}

	alerts, err := testAnalyzer(src).DetectPriceDrops(0)
	if err != nil {
		t.Fatalf("DetectPriceDrops: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].AlertType != models.AlertFakeOffer || alerts[0].IsRealOffer {
		t.Errorf("alert = %+v, want fake_offer", alerts[0])
	}
}

func TestDetectPriceDrops_PriceNearAverageIsFake(t *testing.T) {
	// 16% below a spiked previous price, but still above 95% of the
	// historical average.
	src := &fakeSource{
		products: []models.Product{{ID: 1, Name: "Laptop Asus Vivobook 14"}},
		history:  map[int64][]models.PriceObservation{1: observations(1, 105, 125, 100, 100)},
	}

	alerts, err := testAnalyzer(src).DetectPriceDrops(0)
	if err != nil {
		t.Fatalf("DetectPriceDrops: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].IsRealOffer {
		t.Errorf("alert = %+v, want fake", alerts[0])
	}
}

func TestDetectPriceDrops_ShortHistoryIsTrusted(t *testing.T) {
	src := &fakeSource{
		products: []models.Product{{ID: 1, Name: "Laptop Acer Aspire 5"}},
		history:  map[int64][]models.PriceObservation{1: observations(1, 80, 100)},
	}

	alerts, err := testAnalyzer(src).DetectPriceDrops(0)
	if err != nil {
		t.Fatalf("DetectPriceDrops: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].IsRealOffer {
		t.Errorf("alerts = %+v, want one real alert from two observations", alerts)
	}
}

func TestDetectPriceDrops_SmallDropIgnored(t *testing.T) {
	src := &fakeSource{
		products: []models.Product{{ID: 1, Name: "Laptop Dell Inspiron 15"}},
		history:  map[int64][]models.PriceObservation{1: observations(1, 95, 100, 100)},
	}

	alerts, err := testAnalyzer(src).DetectPriceDrops(0)
	if err != nil {
		t.Fatalf("DetectPriceDrops: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("got %d alerts for a 5%% drop, want 0", len(alerts))
	}
}

func TestGetBestDeals_RankedAndLimited(t *testing.T) {
	src := &fakeSource{
		products: []models.Product{
			{ID: 2, Name: "Laptop HP Pavilion 15"},
			{ID: 1, Name: "Laptop Lenovo IdeaPad 3"},
			{ID: 3, Name: "Laptop Acer Aspire 5"},
		},
		history: map[int64][]models.PriceObservation{
			1: observations(1, 75, 100), // 25%
			2: observations(2, 82, 100), // 18%
			3: observations(3, 88, 100), // 12%, below the deals threshold
		},
	}

	deals, err := testAnalyzer(src).GetBestDeals(2)
	if err != nil {
		t.Fatalf("GetBestDeals: %v", err)
	}
	if len(deals) != 2 {
		t.Fatalf("got %d deals, want 2", len(deals))
	}
	if deals[0].ProductID != 1 || deals[1].ProductID != 2 {
		t.Errorf("deal order = [%d %d], want best discount first [1 2]",
			deals[0].ProductID, deals[1].ProductID)
	}
	if deals[0].Savings != 25 {
		t.Errorf("Savings = %v, want 25", deals[0].Savings)
	}
}

func TestGetPriceTrend(t *testing.T) {
	src := &fakeSource{history: map[int64][]models.PriceObservation{
		1: observations(1, 80, 85, 100, 105),
		2: observations(2, 105, 100, 85, 80),
		3: observations(3, 100, 101, 99, 100),
		4: observations(4, 100),
	}}
	a := testAnalyzer(src)

	tests := []struct {
		productID int64
		want      string
	}{
		{1, "decreasing"},
		{2, "increasing"},
		{3, "stable"},
		{4, "insufficient_data"},
		{99, "unknown"},
	}
	for _, tt := range tests {
		trend, err := a.GetPriceTrend(tt.productID, 0)
		if err != nil {
			t.Fatalf("GetPriceTrend(%d): %v", tt.productID, err)
		}
		if trend.Trend != tt.want {
			t.Errorf("trend for product %d = %q, want %q", tt.productID, trend.Trend, tt.want)
		}
	}

	trend, err := a.GetPriceTrend(1, 0)
	if err != nil {
		t.Fatalf("GetPriceTrend: %v", err)
	}
	if trend.CurrentPrice != 80 || trend.MinPrice != 80 || trend.MaxPrice != 105 || trend.AvgPrice != 92.5 {
		t.Errorf("stats = %+v, want current 80, min 80, max 105, avg 92.5", trend)
	}
}
