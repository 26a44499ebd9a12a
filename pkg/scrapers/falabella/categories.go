package falabella

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageCategories holds up to three nested category levels resolved for a
// search page. Empty fields mean the level could not be determined, which
// is not an error.
type pageCategories struct {
	category       string
	subcategory    string
	subSubcategory string
}

var homeLabels = map[string]bool{
	"inicio":    true,
	"home":      true,
	"falabella": true,
}

// resolveCategories reads the breadcrumb navigation, preferring the
// semantic aria-label over class-name matching. The most specific crumb is
// split on hyphens into category levels. Without a breadcrumb, keywords in
// the page heading decide a coarse category.
func resolveCategories(doc *goquery.Document) pageCategories {
	var cats pageCategories

	crumb := doc.Find(`nav[aria-label*="breadcrumb"]`).First()
	if crumb.Length() == 0 {
		crumb = doc.Find(`.breadcrumb, [class*="breadcrumb"]`).First()
	}

	if crumb.Length() > 0 {
		var texts []string
		crumb.Find("a").Each(func(_ int, a *goquery.Selection) {
			t := strings.TrimSpace(a.Text())
			if t == "" || homeLabels[strings.ToLower(t)] {
				return
			}
			texts = append(texts, t)
		})

		if len(texts) > 0 {
			parts := strings.Split(texts[len(texts)-1], "-")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			cats.category = parts[0]
			if len(parts) >= 2 {
				cats.subcategory = parts[1]
			}
			if len(parts) >= 3 {
				cats.subSubcategory = parts[2]
			}
		}
	}

	if cats.category == "" {
		title := strings.ToLower(strings.TrimSpace(doc.Find("h1, h2").First().Text()))
		switch {
		case strings.Contains(title, "laptop") || strings.Contains(title, "computadora"):
			cats.category, cats.subcategory = "Tecnología", "Computadoras"
		case strings.Contains(title, "smartphone") || strings.Contains(title, "celular"):
			cats.category, cats.subcategory = "Tecnología", "Smartphones"
		}
	}

	return cats
}
