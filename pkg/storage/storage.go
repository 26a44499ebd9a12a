// Package storage persists products and their price history in an embedded
// SQLite database. Products are upserted on the (store_name, product_id)
// pair; prices are append-only facts that are never updated in place.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealwatch/pkg/models"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc's driver serializes writes per connection; one connection
	// avoids SQLITE_BUSY under concurrent scrape and API traffic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		store_name      TEXT NOT NULL,
		product_id      TEXT NOT NULL,
		name            TEXT NOT NULL,
		brand           TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		subcategory     TEXT NOT NULL DEFAULT '',
		sub_subcategory TEXT NOT NULL DEFAULT '',
		url             TEXT NOT NULL,
		image_url       TEXT NOT NULL DEFAULT '',
		in_stock        INTEGER NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL,
		UNIQUE (store_name, product_id)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id     INTEGER NOT NULL REFERENCES products(id),
		price          REAL NOT NULL,
		original_price REAL NOT NULL DEFAULT 0,
		currency       TEXT NOT NULL DEFAULT 'PEN',
		scraped_at     DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_product
		ON price_history (product_id, scraped_at);
`

// UpsertProduct inserts the product or refreshes the catalog fields of the
// existing row with the same (store_name, product_id) pair. It returns the
// database id either way.
func (s *Store) UpsertProduct(p *models.Product) (int64, error) {
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO products
			(store_name, product_id, name, brand, category, subcategory,
			 sub_subcategory, url, image_url, in_stock, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(store_name, product_id) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			category = excluded.category,
			subcategory = excluded.subcategory,
			sub_subcategory = excluded.sub_subcategory,
			url = excluded.url,
			image_url = excluded.image_url,
			in_stock = excluded.in_stock,
			updated_at = excluded.updated_at`,
		p.StoreName, p.ExternalID, p.Name, p.Brand, p.Category, p.Subcategory,
		p.SubSubcategory, p.URL, p.ImageURL, p.InStock, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert product %s/%s: %w", p.StoreName, p.ExternalID, err)
	}

	var id int64
	err = s.db.QueryRow(
		`SELECT id FROM products WHERE store_name = ? AND product_id = ?`,
		p.StoreName, p.ExternalID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve product id %s/%s: %w", p.StoreName, p.ExternalID, err)
	}

	p.ID = id
	return id, nil
}

func (s *Store) GetProduct(id int64) (*models.Product, error) {
	row := s.db.QueryRow(
		`SELECT id, store_name, product_id, name, brand, category, subcategory,
		        sub_subcategory, url, image_url, in_stock, created_at, updated_at
		 FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", models.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// ListProducts returns the most recently updated products, all of them when
// limit is zero or negative.
func (s *Store) ListProducts(limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.Query(
		`SELECT id, store_name, product_id, name, brand, category, subcategory,
		        sub_subcategory, url, image_url, in_stock, created_at, updated_at
		 FROM products ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// AppendPrice records one observation and returns its id.
func (s *Store) AppendPrice(obs *models.PriceObservation) (int64, error) {
	if obs.Currency == "" {
		obs.Currency = models.DefaultCurrency
	}
	if obs.ScrapedAt.IsZero() {
		obs.ScrapedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(
		`INSERT INTO price_history (product_id, price, original_price, currency, scraped_at)
		 VALUES (?, ?, ?, ?, ?)`,
		obs.ProductID, obs.Price, obs.ListPrice, obs.Currency, obs.ScrapedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("append price for product %d: %w", obs.ProductID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append price for product %d: %w", obs.ProductID, err)
	}
	obs.ID = id
	return id, nil
}

// LatestPrice returns the newest observation for the product, or nil when
// none has been recorded yet.
func (s *Store) LatestPrice(productID int64) (*models.PriceObservation, error) {
	row := s.db.QueryRow(
		`SELECT id, product_id, price, original_price, currency, scraped_at
		 FROM price_history WHERE product_id = ?
		 ORDER BY scraped_at DESC, id DESC LIMIT 1`, productID)

	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest price for product %d: %w", productID, err)
	}
	return obs, nil
}

// PriceHistory returns observations most recent first, all of them when
// limit is zero or negative.
func (s *Store) PriceHistory(productID int64, limit int) ([]models.PriceObservation, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, product_id, price, original_price, currency, scraped_at
		 FROM price_history WHERE product_id = ?
		 ORDER BY scraped_at DESC, id DESC LIMIT ?`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("price history for product %d: %w", productID, err)
	}
	return collectObservations(rows)
}

// PriceHistorySince returns observations at or after the cutoff, most
// recent first.
func (s *Store) PriceHistorySince(productID int64, since time.Time) ([]models.PriceObservation, error) {
	rows, err := s.db.Query(
		`SELECT id, product_id, price, original_price, currency, scraped_at
		 FROM price_history WHERE product_id = ? AND scraped_at >= ?
		 ORDER BY scraped_at DESC, id DESC`, productID, since)
	if err != nil {
		return nil, fmt.Errorf("price history for product %d: %w", productID, err)
	}
	return collectObservations(rows)
}

// Stats summarizes the database contents for the stats endpoint.
type Stats struct {
	Products        int            `json:"products"`
	PricePoints     int            `json:"price_points"`
	ProductsByStore map[string]int `json:"products_by_store"`
	LastScrapedAt   *time.Time     `json:"last_scraped_at,omitempty"`
}

func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ProductsByStore: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&stats.Products); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM price_history`).Scan(&stats.PricePoints); err != nil {
		return nil, fmt.Errorf("count price points: %w", err)
	}

	rows, err := s.db.Query(`SELECT store_name, COUNT(*) FROM products GROUP BY store_name`)
	if err != nil {
		return nil, fmt.Errorf("count products by store: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var store string
		var n int
		if err := rows.Scan(&store, &n); err != nil {
			return nil, fmt.Errorf("count products by store: %w", err)
		}
		stats.ProductsByStore[store] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count products by store: %w", err)
	}

	var last sql.NullTime
	if err := s.db.QueryRow(`SELECT MAX(scraped_at) FROM price_history`).Scan(&last); err != nil {
		return nil, fmt.Errorf("latest scrape time: %w", err)
	}
	if last.Valid {
		stats.LastScrapedAt = &last.Time
	}

	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.StoreName, &p.ExternalID, &p.Name, &p.Brand,
		&p.Category, &p.Subcategory, &p.SubSubcategory, &p.URL, &p.ImageURL,
		&p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanObservation(row rowScanner) (*models.PriceObservation, error) {
	var obs models.PriceObservation
	err := row.Scan(&obs.ID, &obs.ProductID, &obs.Price, &obs.ListPrice,
		&obs.Currency, &obs.ScrapedAt)
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func collectObservations(rows *sql.Rows) ([]models.PriceObservation, error) {
	defer rows.Close()

	var history []models.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *obs)
	}
	return history, rows.Err()
}
