package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// ExtractPriceResults parses a competitor's search-results page and returns
// one record per listing card. Cards missing a title or a parseable price are
// skipped; a page with zero matching cards is a valid empty result, not an
// error.
func ExtractPriceResults(html string, target Target) ([]types.PriceResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	if target.Selectors.Container != "" {
		return extractFromCards(doc, target), nil
	}
	return extractFromColumns(doc, target), nil
}

// extractFromCards walks container elements, reading each field relative to
// its card.
func extractFromCards(doc *goquery.Document, target Target) []types.PriceResult {
	var results []types.PriceResult

	doc.Find(target.Selectors.Container).Each(func(_ int, card *goquery.Selection) {
		title := cleanText(card.Find(target.Selectors.Title).First().Text())
		title = strings.TrimSpace(strings.TrimPrefix(title, "New listing"))

		price, ok := ParsePrice(card.Find(target.Selectors.Price).First().Text())
		if title == "" || !ok {
			return
		}

		result := types.PriceResult{
			Competitor: target.Name,
			Title:      title,
			Price:      price,
		}
		if target.Selectors.Store != "" {
			result.Store = cleanText(card.Find(target.Selectors.Store).First().Text())
		}
		if target.Selectors.URL != "" {
			if href, exists := card.Find(target.Selectors.URL).First().Attr("href"); exists {
				result.URL = absoluteURL(target.BaseURL, href)
			}
		}

		results = append(results, result)
	})

	return results
}

// extractFromColumns pairs up parallel title/price/url lists for targets with
// no per-card container.
func extractFromColumns(doc *goquery.Document, target Target) []types.PriceResult {
	titles := doc.Find(target.Selectors.Title)
	prices := doc.Find(target.Selectors.Price)

	var urls []string
	if target.Selectors.URL != "" {
		doc.Find(target.Selectors.URL).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			urls = append(urls, absoluteURL(target.BaseURL, href))
		})
	}

	n := titles.Length()
	if prices.Length() < n {
		n = prices.Length()
	}

	var results []types.PriceResult
	for i := 0; i < n; i++ {
		title := cleanText(titles.Eq(i).Text())
		price, ok := ParsePrice(prices.Eq(i).Text())
		if title == "" || !ok {
			continue
		}

		result := types.PriceResult{
			Competitor: target.Name,
			Title:      title,
			Price:      price,
		}
		if i < len(urls) {
			result.URL = urls[i]
		}
		results = append(results, result)
	}

	return results
}

func absoluteURL(baseURL, href string) string {
	if href == "" || !strings.HasPrefix(href, "/") {
		return href
	}
	return strings.TrimSuffix(baseURL, "/") + href
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
