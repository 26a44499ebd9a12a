package models

import "time"

// Product is one listing of a store's catalog, identified by the pair
// (StoreName, ExternalID). ExternalID is the id the store assigns in its
// product URLs, not our database id.
type Product struct {
	ID             int64     `json:"id,omitempty"`
	StoreName      string    `json:"store_name"`
	ExternalID     string    `json:"product_id"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand,omitempty"`
	Category       string    `json:"category,omitempty"`
	Subcategory    string    `json:"subcategory,omitempty"`
	SubSubcategory string    `json:"sub_subcategory,omitempty"`
	URL            string    `json:"url"`
	ImageURL       string    `json:"image_url,omitempty"`
	InStock        bool      `json:"in_stock"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// PriceObservation is an append-only point-in-time price fact.
// ListPrice is the crossed-out "before" price shown next to the current one,
// when the page exposed it; the analyzer uses it to spot inflated reference
// prices.
type PriceObservation struct {
	ID        int64     `json:"id,omitempty"`
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	ListPrice float64   `json:"list_price,omitempty"`
	Currency  string    `json:"currency"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// DefaultCurrency is used when a store does not report one.
const DefaultCurrency = "PEN"
