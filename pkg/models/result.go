package models

import "time"

// ScrapeRunResult summarizes one orchestrator run over a set of queries for
// a single store.
type ScrapeRunResult struct {
	RunID           string    `json:"run_id"`
	StoreName       string    `json:"store_name"`
	ProductsFound   int       `json:"products_found"`
	ProductsSaved   int       `json:"products_saved"`
	Errors          int       `json:"errors"`
	DurationSeconds float64   `json:"duration_seconds"`
	Timestamp       time.Time `json:"timestamp"`
	ErrorMessages   []string  `json:"error_messages,omitempty"`
}
