// Package scrape holds the per-site extraction data the orchestrator drives
// workers with: the competitor target catalog, search-URL building, and
// selector-based extraction of result records from page HTML.
//
// Site specifics live here as data. The orchestration contract never changes
// per site; swapping a selector set swaps the worker's behavior.
package scrape

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selectors identifies the result-card fields on a competitor's listing page.
type Selectors struct {
	Container string `yaml:"container,omitempty"`
	Title     string `yaml:"title"`
	Price     string `yaml:"price"`
	Store     string `yaml:"store,omitempty"`
	URL       string `yaml:"url,omitempty"`
}

// Map returns the selectors keyed by field name, the form the worker channel
// carries them in.
func (s Selectors) Map() map[string]string {
	m := map[string]string{
		"title": s.Title,
		"price": s.Price,
	}
	if s.Container != "" {
		m["container"] = s.Container
	}
	if s.Store != "" {
		m["store"] = s.Store
	}
	if s.URL != "" {
		m["url"] = s.URL
	}
	return m
}

// Target is one competitor's scraping configuration.
type Target struct {
	Name      string    `yaml:"name"`
	BaseURL   string    `yaml:"base_url"`
	SearchURL string    `yaml:"search_url"` // template; {query} is replaced
	Selectors Selectors `yaml:"selectors"`
}

// SearchParams carries the caller's query plus the category hints some sites
// turn into URL filters.
type SearchParams struct {
	Query       string
	Category    string
	Subcategory string
	Model       string
	Attributes  map[string]string
}

// urlBuilder computes a search URL for sites whose filters cannot be
// expressed as a plain template.
type urlBuilder func(t Target, p SearchParams) string

// Catalog maps competitor names to their targets.
type Catalog struct {
	targets  map[string]Target
	builders map[string]urlBuilder
}

// cashConvertersCategories maps caller category hints to the site's search
// facet ids.
var cashConvertersCategories = map[string]string{
	"smartphones and mobile":       "1073741966",
	"games (discs & cartridges)":   "1073741887",
	"tablets":                      "1073741998",
	"laptops":                      "1073742012",
	"gaming consoles":              "1073741901",
}

// DefaultCatalog returns the built-in competitor catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		targets:  make(map[string]Target),
		builders: make(map[string]urlBuilder),
	}

	c.add(Target{
		Name:    "CashConverters",
		BaseURL: "https://www.cashconverters.co.uk",
		Selectors: Selectors{
			Container: ".product-item-wrapper",
			Title:     ".product-item__title__description",
			Price:     ".product-item__price",
			Store:     ".product-item__title__location",
			URL:       "a",
		},
	}, buildCashConvertersURL)

	c.add(Target{
		Name:      "CashGenerator",
		BaseURL:   "https://cashgenerator.co.uk",
		SearchURL: "https://cashgenerator.co.uk/pages/search-results-page?q={query}&tab=products&sort_by=price&sort_order=asc&page=1",
		Selectors: Selectors{
			Container: ".snize-product",
			Title:     ".snize-title",
			Price:     ".snize-price.money",
			Store:     ".snize-attribute",
			URL:       ".snize-view-link",
		},
	}, nil)

	c.add(Target{
		Name:    "CEX",
		BaseURL: "https://uk.webuy.com",
		Selectors: Selectors{
			Container: ".wrapper-box",
			Title:     ".content .card-title a",
			Price:     ".content .product-main-price",
			URL:       ".content .card-title a",
		},
	}, buildCEXURL)

	c.add(Target{
		Name:      "eBay",
		BaseURL:   "https://www.ebay.co.uk",
		SearchURL: "https://www.ebay.co.uk/sch/i.html?_nkw={query}&_sacat=0&_from=R40&LH_ItemCondition=3000&LH_PrefLoc=1&LH_Sold=1&LH_Complete=1",
		Selectors: Selectors{
			Container: "#srp-river-results > ul > li",
			Title:     ".s-card__title",
			Price:     ".s-card__price, .s-item__price",
			URL:       ".su-card-container__content a",
		},
	}, nil)

	return c
}

func (c *Catalog) add(t Target, b urlBuilder) {
	c.targets[t.Name] = t
	if b != nil {
		c.builders[t.Name] = b
	}
}

// Target looks up a competitor's configuration by name.
func (c *Catalog) Target(name string) (Target, bool) {
	t, ok := c.targets[name]
	return t, ok
}

// Names returns the configured competitor names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.targets))
	for name := range c.targets {
		names = append(names, name)
	}
	return names
}

// BuildSearchURL resolves the fully-formed search destination for a target.
func (c *Catalog) BuildSearchURL(name string, p SearchParams) (string, error) {
	t, ok := c.targets[name]
	if !ok {
		return "", fmt.Errorf("no target config for %q", name)
	}
	if b, ok := c.builders[name]; ok {
		return b(t, p), nil
	}
	if t.SearchURL == "" {
		return "", fmt.Errorf("target %q has no search url", name)
	}
	return strings.ReplaceAll(t.SearchURL, "{query}", url.QueryEscape(p.Query)), nil
}

func buildCashConvertersURL(t Target, p SearchParams) string {
	categoryID := "all"
	if id, ok := cashConvertersCategories[strings.ToLower(p.Category)]; ok {
		categoryID = id
	}
	return fmt.Sprintf(
		"%s/search-results?Sort=default&page=1&query=%s&f%%5Bcategory%%5D%%5B0%%5D=%s&f%%5Blocations%%5D%%5B0%%5D=all",
		t.BaseURL, url.QueryEscape(p.Query), categoryID,
	)
}

func buildCEXURL(t Target, p SearchParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/search?stext=%s", t.BaseURL, url.QueryEscape(p.Query))

	category := strings.ToLower(p.Category)
	if storage, ok := p.Attributes["storage"]; ok && category == "smartphones and mobile" {
		fmt.Fprintf(&b, "&Capacity=%s", url.QueryEscape(storage))
	}

	switch category {
	case "smartphones and mobile":
		b.WriteString("&superCatName=Phones&Grade=B")
	case "games (discs & cartridges)":
		b.WriteString("&superCatName=Gaming")
		if strings.EqualFold(p.Subcategory, "switch games") {
			b.WriteString("&categoryFriendlyName=Switch+Games")
		}
	}

	if strings.EqualFold(p.Subcategory, "ipads") {
		b.WriteString("&categoryFriendlyName=Apple+iPad")
	}

	return b.String()
}

// catalogFile is the YAML shape of a target catalog override file.
type catalogFile struct {
	Targets []Target         `yaml:"targets"`
	Stock   *StockConfigFile `yaml:"stock,omitempty"`
}

// LoadCatalog reads a YAML catalog file and overlays it on the defaults.
// Targets with a known name replace the built-in entry (losing its URL
// builder, since file-defined targets use the template form); new names are
// added. A missing file yields the defaults unchanged.
func LoadCatalog(path string) (*Catalog, *StockConfig, error) {
	catalog := DefaultCatalog()
	stock := DefaultStockConfig()

	if path == "" {
		return catalog, stock, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, stock, nil
		}
		return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	for _, t := range file.Targets {
		if t.Name == "" {
			return nil, nil, fmt.Errorf("catalog file contains a target without a name")
		}
		catalog.targets[t.Name] = t
		delete(catalog.builders, t.Name)
	}

	if file.Stock != nil {
		stock.apply(file.Stock)
	}

	return catalog, stock, nil
}
