package models

// AlertType classifies a price movement detected by the analyzer.
type AlertType string

const (
	AlertPriceDrop    AlertType = "price_drop"
	AlertFakeOffer    AlertType = "fake_offer"
	AlertBackToNormal AlertType = "back_to_normal"
)

// PriceAlert is a derived value, recomputed from price history every time
// analytics run. It is never persisted.
type PriceAlert struct {
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	OldPrice    float64   `json:"old_price"`
	NewPrice    float64   `json:"new_price"`
	DiscountPct float64   `json:"discount_percentage"`
	IsRealOffer bool      `json:"is_real_offer"`
	AlertType   AlertType `json:"alert_type"`
	Message     string    `json:"message"`
}

// Deal is a ranked real discount with the absolute savings spelled out.
type Deal struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	OldPrice    float64 `json:"old_price"`
	NewPrice    float64 `json:"new_price"`
	DiscountPct float64 `json:"discount"`
	Savings     float64 `json:"savings"`
}

// PriceTrend reports the direction of a product's price over a window.
type PriceTrend struct {
	Trend        string             `json:"trend"` // increasing, decreasing, stable, insufficient_data, unknown
	CurrentPrice float64            `json:"current_price,omitempty"`
	AvgPrice     float64            `json:"avg_price,omitempty"`
	MinPrice     float64            `json:"min_price,omitempty"`
	MaxPrice     float64            `json:"max_price,omitempty"`
	Data         []PriceObservation `json:"data"`
}
