package scrapers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dealwatch/pkg/models"
)

type stubScraper struct{ name string }

func (s *stubScraper) StoreName() string { return s.name }
func (s *stubScraper) RunScraping(ctx context.Context, queries []string, maxPages int) *models.ScrapeRunResult {
	return &models.ScrapeRunResult{StoreName: s.name}
}

func TestRegistry_GetRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("Falabella", func() (Scraper, error) {
		return &stubScraper{name: "falabella"}, nil
	})

	s, err := r.Get("FALABELLA")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.StoreName() != "falabella" {
		t.Errorf("StoreName = %q, want falabella", s.StoreName())
	}
}

func TestRegistry_GetUnknownListsValidKeys(t *testing.T) {
	r := NewRegistry()
	r.Register("falabella", func() (Scraper, error) { return &stubScraper{}, nil })
	r.Register("ripley", func() (Scraper, error) { return &stubScraper{}, nil })

	_, err := r.Get("tottus")
	if !errors.Is(err, models.ErrStoreNotFound) {
		t.Fatalf("error = %v, want ErrStoreNotFound", err)
	}
	if !strings.Contains(err.Error(), "falabella, ripley") {
		t.Errorf("error %q does not list valid keys", err)
	}
}

func TestRegistry_Stores(t *testing.T) {
	r := NewRegistry()
	r.Register("ripley", func() (Scraper, error) { return &stubScraper{}, nil })
	r.Register("falabella", func() (Scraper, error) { return &stubScraper{}, nil })

	stores := r.Stores()
	if len(stores) != 2 || stores[0] != "falabella" || stores[1] != "ripley" {
		t.Errorf("Stores = %v, want [falabella ripley]", stores)
	}
}
