package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dealwatch/pkg/analytics"
	"dealwatch/pkg/antibot"
	"dealwatch/pkg/api"
	"dealwatch/pkg/config"
	"dealwatch/pkg/models"
	"dealwatch/pkg/render"
	"dealwatch/pkg/scrapers"
	"dealwatch/pkg/scrapers/falabella"
	"dealwatch/pkg/storage"

	scalargo "github.com/bdpiprava/scalar-go"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

type app struct {
	cfg      *config.Config
	db       *storage.Store
	registry *scrapers.Registry
	analyzer *analytics.Analyzer

	// one scrape at a time; concurrent requests get a 409 instead of
	// hammering the target site in parallel
	scrapeSlot chan struct{}
}

func main() {
	cfg := config.MustLoad()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer db.Close()
	log.Infof("Storage initialized at %s", cfg.DBPath)

	a := &app{
		cfg:        cfg,
		db:         db,
		registry:   newRegistry(cfg, db),
		analyzer:   analytics.New(db, cfg.Analytics, log.NewEntry(log.StandardLogger())),
		scrapeSlot: make(chan struct{}, 1),
	}

	if cfg.Scraper.IntervalHours > 0 {
		go a.runPeriodicScrapes(time.Duration(cfg.Scraper.IntervalHours) * time.Hour)
	}

	http.HandleFunc("/", a.rootHandler)

	if ip := getOutboundIP(); ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), cfg.HTTPPort)
	}
	fmt.Printf("Access URL: http://localhost:%s\n", cfg.HTTPPort)
	fmt.Printf("API Docs: http://localhost:%s/\n", cfg.HTTPPort)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           nil,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

// newRegistry wires up every supported store. Scrapers are built per run so
// each gets fresh rate-limiter state.
func newRegistry(cfg *config.Config, db *storage.Store) *scrapers.Registry {
	registry := scrapers.NewRegistry()

	registry.Register(falabella.StoreKey, func() (scrapers.Scraper, error) {
		renderer, err := newRenderer(cfg.Scraper)
		if err != nil {
			return nil, err
		}
		store := falabella.New(falabella.Config{
			Renderer:  renderer,
			Limiter:   antibot.NewRateLimiter(cfg.Scraper.RequestsPerMinute),
			Headers:   antibot.NewHeaderRotator(),
			Retry:     retryPolicy(cfg.Scraper),
			PagePause: cfg.Scraper.PagePause,
			Log:       log.NewEntry(log.StandardLogger()),
		})
		return scrapers.NewOrchestrator(store, db, log.NewEntry(log.StandardLogger())), nil
	})

	return registry
}

func retryPolicy(cfg config.Scraper) scrapers.RetryPolicy {
	p := scrapers.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		p.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	return p
}

func newRenderer(cfg config.Scraper) (render.Renderer, error) {
	switch cfg.Renderer {
	case "chrome":
		return render.NewChrome(cfg.RenderTimeout), nil
	case "static":
		return render.NewStatic(cfg.RenderTimeout), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (chrome or static)", cfg.Renderer)
	}
}

func (a *app) rootHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch parts[0] {
	case "":
		a.serveDocs(w, r)
	case "stores":
		a.storesHandler(w, r, parts)
	case "products":
		a.productsHandler(w, r, parts)
	case "deals":
		a.dealsHandler(w, r)
	case "alerts":
		a.alertsHandler(w, r)
	case "stats":
		a.statsHandler(w, r)
	default:
		api.WriteNotFound(w, "Unknown path", r.URL.Path)
	}
}

// serveDocs renders the Scalar API reference from openapi.yml on the root
// path.
func (a *app) serveDocs(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Dealwatch API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// storesHandler covers GET /stores and POST /stores/{store}/scrape.
func (a *app) storesHandler(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			api.WriteMethodNotAllowed(w, "Use GET to list stores.", r.URL.Path)
			return
		}
		writeJSON(w, map[string]any{"stores": a.registry.Stores()})
		return
	}

	if len(parts) != 3 || parts[2] != "scrape" {
		api.WriteBadRequest(w, "Invalid path. Expected /stores or /stores/{store}/scrape", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w, "Use POST to trigger a scrape.", r.URL.Path)
		return
	}

	scraper, err := a.registry.Get(parts[1])
	if err != nil {
		if errors.Is(err, models.ErrStoreNotFound) {
			api.WriteNotFound(w, err.Error(), r.URL.Path)
			return
		}
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	var req struct {
		Queries  []string `json:"queries"`
		MaxPages int      `json:"max_pages"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteBadRequest(w, "Invalid JSON body.", r.URL.Path)
			return
		}
	}
	if len(req.Queries) == 0 {
		req.Queries = a.cfg.Scraper.Queries
	}
	if req.MaxPages <= 0 {
		req.MaxPages = a.cfg.Scraper.MaxPages
	}

	select {
	case a.scrapeSlot <- struct{}{}:
		defer func() { <-a.scrapeSlot }()
	default:
		api.WriteConflict(w, "A scrape is already running.", r.URL.Path)
		return
	}

	result := scraper.RunScraping(r.Context(), req.Queries, req.MaxPages)
	writeJSON(w, result)
}

// productsHandler covers GET /products, /products/{id}/history and
// /products/{id}/trend.
func (a *app) productsHandler(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w, "Use GET.", r.URL.Path)
		return
	}

	if len(parts) == 1 {
		products, err := a.db.ListProducts(queryInt(r, "limit", 100))
		if err != nil {
			api.WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		if products == nil {
			products = []models.Product{}
		}
		writeJSON(w, map[string]any{"products": products})
		return
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		api.WriteBadRequest(w, fmt.Sprintf("Invalid product id: %s", parts[1]), r.URL.Path)
		return
	}

	if len(parts) != 3 {
		api.WriteBadRequest(w, "Expected /products/{id}/history or /products/{id}/trend", r.URL.Path)
		return
	}

	switch parts[2] {
	case "history":
		product, err := a.db.GetProduct(id)
		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				api.WriteNotFound(w, err.Error(), r.URL.Path)
				return
			}
			api.WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		history, err := a.db.PriceHistory(id, queryInt(r, "limit", 0))
		if err != nil {
			api.WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		if history == nil {
			history = []models.PriceObservation{}
		}
		writeJSON(w, map[string]any{"product": product, "history": history})
	case "trend":
		if _, err := a.db.GetProduct(id); err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				api.WriteNotFound(w, err.Error(), r.URL.Path)
				return
			}
			api.WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		trend, err := a.analyzer.GetPriceTrend(id, queryInt(r, "days", 0))
		if err != nil {
			api.WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, trend)
	default:
		api.WriteBadRequest(w, "Expected /products/{id}/history or /products/{id}/trend", r.URL.Path)
	}
}

func (a *app) dealsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w, "Use GET.", r.URL.Path)
		return
	}
	deals, err := a.analyzer.GetBestDeals(queryInt(r, "limit", 10))
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	writeJSON(w, map[string]any{"deals": deals})
}

func (a *app) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w, "Use GET.", r.URL.Path)
		return
	}

	minDiscount := 0.0
	if raw := r.URL.Query().Get("min_discount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			api.WriteBadRequest(w, fmt.Sprintf("Invalid min_discount: %s", raw), r.URL.Path)
			return
		}
		minDiscount = parsed
	}

	alerts, err := a.analyzer.DetectPriceDrops(minDiscount)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	if alerts == nil {
		alerts = []models.PriceAlert{}
	}
	writeJSON(w, map[string]any{"alerts": alerts})
}

func (a *app) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w, "Use GET.", r.URL.Path)
		return
	}
	stats, err := a.db.Stats()
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, stats)
}

// runPeriodicScrapes scrapes every registered store on a fixed interval,
// starting immediately. Runs triggered over HTTP while a periodic run is in
// flight are rejected by the same slot.
func (a *app) runPeriodicScrapes(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.scrapeAllStores()
		<-ticker.C
	}
}

func (a *app) scrapeAllStores() {
	select {
	case a.scrapeSlot <- struct{}{}:
		defer func() { <-a.scrapeSlot }()
	default:
		log.Warn("Skipping periodic scrape, another one is running")
		return
	}

	for _, key := range a.registry.Stores() {
		scraper, err := a.registry.Get(key)
		if err != nil {
			log.WithError(err).Errorf("Failed to build scraper for %s", key)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		result := scraper.RunScraping(ctx, a.cfg.Scraper.Queries, a.cfg.Scraper.MaxPages)
		cancel()

		log.WithFields(log.Fields{
			"store":  key,
			"found":  result.ProductsFound,
			"saved":  result.ProductsSaved,
			"errors": result.Errors,
		}).Info("Periodic scrape finished")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				return ipnet.IP
			}
		}
		return nil
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP
}
