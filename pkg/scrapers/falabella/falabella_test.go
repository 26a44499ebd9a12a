package falabella

import (
	"context"
	"errors"
	"testing"
)

type fakeRenderer struct {
	pages map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeRenderer) Render(ctx context.Context, pageURL string, headers map[string]string) (string, error) {
	f.calls = append(f.calls, pageURL)
	if err := f.fail[pageURL]; err != nil {
		return "", err
	}
	return f.pages[pageURL], nil
}

func TestSearchProducts_CrossPageDeduplication(t *testing.T) {
	s := testScraper()
	r := &fakeRenderer{pages: map[string]string{
		s.searchPageURL("laptop", 1): page(
			card("111", "Laptop Lenovo IdeaPad 3 Core i5", `<span class="copy14">S/ 1,799</span>`),
			card("222", "Laptop HP Pavilion 15 Core i7", `<span class="copy14">S/ 2,899</span>`),
		),
		s.searchPageURL("laptop", 2): page(
			card("222", "Laptop HP Pavilion 15 Core i7", `<span class="copy14">S/ 2,899</span>`),
			card("333", "Laptop Asus Vivobook 14 Ryzen 7", `<span class="copy14">S/ 2,399</span>`),
		),
	}}
	s.renderer = r

	listings, errs := s.SearchProducts(context.Background(), "laptop", 3)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.Product.ExternalID
	}
	if len(ids) != 3 || ids[0] != "111" || ids[1] != "222" || ids[2] != "333" {
		t.Errorf("ids = %v, want [111 222 333] with 222 deduplicated", ids)
	}
}

func TestSearchProducts_StopsOnEmptyPage(t *testing.T) {
	s := testScraper()
	r := &fakeRenderer{pages: map[string]string{
		s.searchPageURL("laptop", 1): page(
			card("111", "Laptop Lenovo IdeaPad 3 Core i5", `<span class="copy14">S/ 1,799</span>`),
		),
		s.searchPageURL("laptop", 2): page(),
	}}
	s.renderer = r

	listings, errs := s.SearchProducts(context.Background(), "laptop", 5)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(listings) != 1 {
		t.Errorf("got %d listings, want 1", len(listings))
	}
	// Empty page 2 ends the crawl; pages 3..5 are never fetched.
	if len(r.calls) != 2 {
		t.Errorf("renderer called %d times, want 2", len(r.calls))
	}
}

func TestSearchProducts_PageErrorDoesNotAbortRun(t *testing.T) {
	s := testScraper()
	r := &fakeRenderer{
		pages: map[string]string{
			s.searchPageURL("laptop", 1): page(
				card("111", "Laptop Lenovo IdeaPad 3 Core i5", `<span class="copy14">S/ 1,799</span>`),
			),
			s.searchPageURL("laptop", 3): page(
				card("333", "Laptop Asus Vivobook 14 Ryzen 7", `<span class="copy14">S/ 2,399</span>`),
			),
		},
		fail: map[string]error{
			s.searchPageURL("laptop", 2): errors.New("render timeout"),
		},
	}
	s.renderer = r

	listings, errs := s.SearchProducts(context.Background(), "laptop", 3)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if len(listings) != 2 {
		t.Errorf("got %d listings, want 2 (pages 1 and 3)", len(listings))
	}
}

func TestSearchPageURL(t *testing.T) {
	s := testScraper()

	if got := s.searchPageURL("laptop gamer", 1); got != "https://test.local/falabella-pe/search?Ntt=laptop+gamer" {
		t.Errorf("page 1 URL = %q", got)
	}
	if got := s.searchPageURL("laptop", 2); got != "https://test.local/falabella-pe/search?Ntt=laptop&page=2" {
		t.Errorf("page 2 URL = %q", got)
	}
}
