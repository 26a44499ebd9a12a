package falabella

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dealwatch/pkg/models"
	"dealwatch/pkg/scrapers"

	"github.com/PuerkitoBio/goquery"
)

const (
	minPrice   = 50.0
	maxPrice   = 100000.0
	minNameLen = 5

	// Localized marker on sponsored placements.
	sponsoredMarker = "patrocinado"
)

// Listing cards show up under several layout variants; the selectors are
// applied cumulatively so one pass covers all of them.
var containerSelectors = []string{
	"div.grid-pod",
	`div[class*="pod"]`,
	`article[data-test-id*="pod"]`,
	`div[data-test-id*="pod"]`,
}

var productIDPattern = regexp.MustCompile(`/product/(\d+)`)

// extractListings walks every candidate container on the page and returns
// the listings that survive all filters, deduplicated by external id.
func (s *Scraper) extractListings(doc *goquery.Document, cats pageCategories) []scrapers.Listing {
	var out []scrapers.Listing
	seen := make(map[string]bool)

	for _, selector := range containerSelectors {
		doc.Find(selector).Each(func(_ int, container *goquery.Selection) {
			if strings.Contains(strings.ToLower(container.Text()), sponsoredMarker) {
				return
			}

			l := s.parseContainer(container, cats)
			if l == nil {
				return
			}

			// Banners and ads come through as cards with no price or no
			// real product image; drop them here.
			if l.Price == nil || l.Price.Price < minPrice || l.Price.Price > maxPrice {
				return
			}
			if len(l.Product.Name) < minNameLen {
				return
			}
			if l.Product.ImageURL == "" {
				return
			}

			if seen[l.Product.ExternalID] {
				return
			}
			seen[l.Product.ExternalID] = true
			out = append(out, *l)
		})
	}

	return out
}

// parseContainer extracts one (product, price) candidate from a listing
// card, or nil when any required piece is missing.
func (s *Scraper) parseContainer(container *goquery.Selection, cats pageCategories) *scrapers.Listing {
	link := container.Find(`a[href*="/product/"]`).First()
	if link.Length() == 0 && container.Is(`a[href*="/product/"]`) {
		link = container
	}
	if link.Length() == 0 {
		return nil
	}

	productURL := strings.TrimSpace(link.AttrOr("href", ""))
	if productURL == "" {
		return nil
	}
	if !strings.HasPrefix(productURL, "http") {
		productURL = s.baseURL + productURL
	}
	if i := strings.Index(productURL, "?"); i >= 0 {
		productURL = productURL[:i]
	}

	m := productIDPattern.FindStringSubmatch(productURL)
	if m == nil {
		return nil
	}
	externalID := m[1]

	name := cleanName(extractName(container, link))
	if len(name) < minNameLen {
		return nil
	}

	product := models.Product{
		StoreName:      StoreKey,
		ExternalID:     externalID,
		Name:           name,
		Brand:          extractBrand(name),
		Category:       cats.category,
		Subcategory:    cats.subcategory,
		SubSubcategory: cats.subSubcategory,
		URL:            productURL,
		ImageURL:       s.extractImage(container),
		InStock:        true,
	}

	return &scrapers.Listing{Product: product, Price: extractPrice(container)}
}

// extractName tries strategies in priority order; a later strategy only
// runs while the current candidate is still short or empty.
func extractName(container, link *goquery.Selection) string {
	name := ""

	// Image alt text tends to carry the most complete name.
	if alt := strings.TrimSpace(container.Find("img[alt]").First().AttrOr("alt", "")); len(alt) > 5 {
		name = alt
	}

	if len(name) < 10 {
		title := strings.TrimSpace(link.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(link.AttrOr("aria-label", ""))
		}
		if len(title) > 5 {
			name = title
		}
	}

	if len(name) < 10 {
		for _, sel := range []string{"b.pod-title", "h2", "h3", ".product-name", `[class*="title"]`} {
			if text := strings.TrimSpace(container.Find(sel).First().Text()); len(text) > 5 {
				name = text
				break
			}
		}
	}

	if len(name) < 10 {
		container.Find("span, div, p").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.Text())
			if len(text) > 15 &&
				!strings.HasPrefix(text, "S/") &&
				!strings.Contains(text, "Agregar") &&
				!strings.Contains(text, "Llega") &&
				containsLetter(text) {
				name = text
				return false
			}
			return true
		})
	}

	return name
}

var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`S/\s*[\d,]+\.?\d*`),
		regexp.MustCompile(`\$\s*[\d,]+\.?\d*`),
	}
	promoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Agregar al Carro`),
		regexp.MustCompile(`(?i)Llega\s+(hoy|mañana)`),
		regexp.MustCompile(`(?i)Retira\s+hoy`),
		regexp.MustCompile(`(?i)BLACK\s+FRIDAY`),
		regexp.MustCompile(`\(\d+\)`),
		regexp.MustCompile(`-\d+%`),
		regexp.MustCompile(`(?i)Por\s+`),
	}
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// Brands that show up glued to the first product word ("LENOVOLaptop ...").
var gluedBrands = []string{
	"LENOVO", "HP", "DELL", "ASUS", "ACER", "MSI", "APPLE",
	"SAMSUNG", "LG", "XIAOMI", "MOTOROLA", "HONOR", "HUAWEI",
}

var gluedBrandPatterns = func() []*regexp.Regexp {
	ps := make([]*regexp.Regexp, len(gluedBrands))
	for i, b := range gluedBrands {
		ps[i] = regexp.MustCompile(`^(` + b + `)([A-Z][a-zA-Z]+)`)
	}
	return ps
}()

// cleanName strips price fragments and promotional copy out of a raw name
// and separates a brand token glued to the start. Cleaning an already-clean
// name is a no-op.
func cleanName(name string) string {
	name = strings.TrimSpace(name)

	for _, re := range pricePatterns {
		name = re.ReplaceAllString(name, "")
	}
	for _, re := range promoPatterns {
		name = re.ReplaceAllString(name, "")
	}

	for _, re := range gluedBrandPatterns {
		if m := re.FindStringSubmatch(name); m != nil {
			name = m[1] + " - " + m[2] + name[len(m[0]):]
			break
		}
	}

	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(name, " "))
}

var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-lazy", "srcset"}

// extractImage returns the first image URL in the container that does not
// look like a placeholder or an ad banner, resolved against the site base.
func (s *Scraper) extractImage(container *goquery.Selection) string {
	found := ""
	container.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range imageAttrs {
			u, ok := img.Attr(attr)
			if !ok || u == "" {
				continue
			}
			if attr == "srcset" {
				fields := strings.Fields(strings.Split(u, ",")[0])
				if len(fields) == 0 {
					continue
				}
				u = fields[0]
			}
			u = strings.TrimSpace(u)
			if !acceptableImageURL(u) {
				continue
			}
			if strings.HasPrefix(u, "/") {
				u = s.baseURL + u
			}
			found = u
			return false
		}
		return true
	})
	return found
}

func acceptableImageURL(u string) bool {
	if len(u) <= 10 {
		return false
	}
	if !strings.Contains(u, "http") && !strings.HasPrefix(u, "/") {
		return false
	}
	lower := strings.ToLower(u)
	// Ad banners are observed to always be GIFs.
	if strings.HasSuffix(lower, ".gif") {
		return false
	}
	for _, marker := range []string{"placeholder", "loading", "blank", "banner"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	for _, dims := range []string{"1280x180", "728x90"} {
		if strings.Contains(u, dims) {
			return false
		}
	}
	return true
}

var brandVocabulary = []string{
	"LENOVO", "HP", "DELL", "ASUS", "ACER", "MSI", "APPLE", "SAMSUNG",
	"LG", "TOSHIBA", "RAZER", "ALIENWARE", "HUAWEI", "XIAOMI",
	"DYSON", "TAURUS", "GAMA", "SHARK", "REVLON", "SIEGEN", "MINT",
	"ULA", "BLACK+DECKER", "OSTER", "PHILIPS", "ELECTROLUX", "WHIRLPOOL",
}

// extractBrand matches the cleaned name against the brand vocabulary,
// falling back to the first word when it looks like a brand token.
func extractBrand(name string) string {
	upper := strings.ToUpper(name)
	for _, b := range brandVocabulary {
		if strings.Contains(upper, b) {
			return b
		}
	}

	fields := strings.Fields(name)
	if len(fields) > 0 {
		first := strings.ToUpper(fields[0])
		if len([]rune(first)) >= 3 && isAlpha(first) {
			return first
		}
	}
	return ""
}

var priceSelectors = []string{
	"span.copy14",
	`span[class*="copy"]`,
	`div[class*="prices"] span`,
	`[class*="price"]`,
	".price",
	"[data-price]",
}

var priceTextPattern = regexp.MustCompile(`S/\s*[\d,]+\.?\d*`)

const currencyMarker = "S/"

// extractPrice collects every price candidate in the container and picks
// the lowest, except that a lowest below 50 yields to a second-lowest at or
// above 50 (a stray installment count reads like a tiny price). The highest
// candidate is kept as the list price when it exceeds the chosen one.
func extractPrice(container *goquery.Selection) *models.PriceObservation {
	var found []float64

	for _, sel := range priceSelectors {
		container.Find(sel).Each(func(_ int, el *goquery.Selection) {
			text := strings.TrimSpace(el.Text())
			if !strings.Contains(text, currencyMarker) {
				return
			}
			if v, ok := cleanPrice(text); ok {
				found = append(found, v)
			}
		})
	}

	if len(found) == 0 {
		for _, m := range priceTextPattern.FindAllString(container.Text(), -1) {
			if v, ok := cleanPrice(m); ok {
				found = append(found, v)
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	sort.Float64s(found)
	price := found[0]
	if len(found) >= 2 && found[0] < minPrice && found[1] >= minPrice {
		price = found[1]
	}

	obs := &models.PriceObservation{
		Price:     price,
		Currency:  models.DefaultCurrency,
		ScrapedAt: time.Now().UTC(),
	}
	if highest := found[len(found)-1]; highest > price {
		obs.ListPrice = highest
	}
	return obs
}

var nonPriceChars = regexp.MustCompile(`[^\d,.]`)

// cleanPrice parses a currency-marked text into a price within
// [minPrice, maxPrice]. An over-large value is retried divided by 100,
// which untangles thousands-vs-cents formatting.
func cleanPrice(text string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}

	if v >= minPrice && v <= maxPrice {
		return v, true
	}
	if v > maxPrice {
		v /= 100
		if v >= minPrice && v <= maxPrice {
			return v, true
		}
	}
	return 0, false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
