package scrape

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// PageKind classifies where a stock worker currently sits.
type PageKind int

const (
	// PageUnknown is any location outside the stock workflow's allow-list.
	PageUnknown PageKind = iota
	// PageLogin is the authentication page.
	PageLogin
	// PageSearch is the stock search/listing page.
	PageSearch
	// PageDetail is an item detail/edit page.
	PageDetail
)

// StockConfig describes the stock system's pages: where to search, how to
// recognize the page the worker landed on, and which controls to drive.
type StockConfig struct {
	BaseURL           string
	SearchURL         string
	SearchPath        string
	DetailPathPrefix  string
	LoginPaths        []string
	SearchInput       string // search control on the listing page
	DetailSearchInput string // search control shown on detail pages
	DetailMarkers     string // selectors whose presence confirms a detail page
	ListedCheckbox    string // externally-listed flag control
	SaveButton        string
}

// StockConfigFile is the YAML override shape for StockConfig.
type StockConfigFile struct {
	BaseURL           string   `yaml:"base_url,omitempty"`
	SearchURL         string   `yaml:"search_url,omitempty"`
	SearchPath        string   `yaml:"search_path,omitempty"`
	DetailPathPrefix  string   `yaml:"detail_path_prefix,omitempty"`
	LoginPaths        []string `yaml:"login_paths,omitempty"`
	SearchInput       string   `yaml:"search_input,omitempty"`
	DetailSearchInput string   `yaml:"detail_search_input,omitempty"`
	DetailMarkers     string   `yaml:"detail_markers,omitempty"`
	ListedCheckbox    string   `yaml:"listed_checkbox,omitempty"`
	SaveButton        string   `yaml:"save_button,omitempty"`
}

// DefaultStockConfig returns the built-in stock system configuration.
func DefaultStockConfig() *StockConfig {
	return &StockConfig{
		BaseURL:           "https://nospos.com",
		SearchURL:         "https://nospos.com/stock/search",
		SearchPath:        "/stock/search",
		DetailPathPrefix:  "/stock/",
		LoginPaths:        []string{"/site/standard-login", "/login"},
		SearchInput:       "input#stocksearchandfilter-query",
		DetailSearchInput: "input#stock-quick-search",
		DetailMarkers:     "#stock-name, .detail-view",
		ListedCheckbox:    "#stock-externally_listed",
		SaveButton:        "button[type=submit].btn-save",
	}
}

func (c *StockConfig) apply(f *StockConfigFile) {
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.SearchURL != "" {
		c.SearchURL = f.SearchURL
	}
	if f.SearchPath != "" {
		c.SearchPath = f.SearchPath
	}
	if f.DetailPathPrefix != "" {
		c.DetailPathPrefix = f.DetailPathPrefix
	}
	if len(f.LoginPaths) > 0 {
		c.LoginPaths = f.LoginPaths
	}
	if f.SearchInput != "" {
		c.SearchInput = f.SearchInput
	}
	if f.DetailSearchInput != "" {
		c.DetailSearchInput = f.DetailSearchInput
	}
	if f.DetailMarkers != "" {
		c.DetailMarkers = f.DetailMarkers
	}
	if f.ListedCheckbox != "" {
		c.ListedCheckbox = f.ListedCheckbox
	}
	if f.SaveButton != "" {
		c.SaveButton = f.SaveButton
	}
}

// Classify maps a worker's current location to a page kind. Anything not on
// the stock system's host, or on its host but outside the search/detail
// paths, is PageUnknown — an abort condition for an active session.
func (c *StockConfig) Classify(rawURL string) PageKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PageUnknown
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil || !strings.EqualFold(u.Host, base.Host) {
		return PageUnknown
	}

	path := u.Path
	for _, login := range c.LoginPaths {
		if strings.HasPrefix(path, login) {
			return PageLogin
		}
	}
	if strings.HasPrefix(path, c.SearchPath) {
		return PageSearch
	}
	if strings.HasPrefix(path, c.DetailPathPrefix) {
		return PageDetail
	}
	// The site redirects through its root while establishing the session;
	// treat that as the listing page rather than an abort.
	if path == "" || path == "/" {
		return PageSearch
	}
	return PageUnknown
}

// Allowed reports whether a location is permitted while a stock session is
// active. Login pages are not allowed but are reported separately by
// Classify so the abort reason distinguishes them.
func (c *StockConfig) Allowed(rawURL string) bool {
	switch c.Classify(rawURL) {
	case PageSearch, PageDetail:
		return true
	default:
		return false
	}
}

// IsEditURL reports whether the location is an item's edit form rather than
// its read-only detail view.
func (c *StockConfig) IsEditURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && strings.HasSuffix(u.Path, "/edit")
}

// InputFor returns the search control to drive from the given page.
func (c *StockConfig) InputFor(kind PageKind) string {
	if kind == PageDetail {
		return c.DetailSearchInput
	}
	return c.SearchInput
}

// ErrNoDetailContent reports a detail-path page carrying none of the stock
// item markup.
var ErrNoDetailContent = errors.New("detail page has no identifying content")

// ExtractStockRecord parses an item detail page into a StockRecord. Fields
// that cannot be located fall back to "N/A" rather than failing the record;
// only a page with no identifying content at all is ErrNoDetailContent.
func ExtractStockRecord(html, barcode, detailURL string) (types.StockRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.StockRecord{}, fmt.Errorf("failed to parse detail page: %w", err)
	}

	name := inputValue(doc, "#stock-name")
	if name == "" && doc.Find(".detail-view").Length() == 0 {
		return types.StockRecord{}, ErrNoDetailContent
	}

	record := types.StockRecord{
		Barcode:        barcode,
		Barserial:      summaryDetail(doc, "Barserial"),
		Name:           orNA(name),
		Description:    orNA(inputValue(doc, "#stock-description")),
		CostPrice:      orNA(inputValue(doc, "#stock-cost_price")),
		RetailPrice:    orNA(inputValue(doc, "#stock-retail_price")),
		CreatedAt:      summaryDetail(doc, "Created"),
		BoughtBy:       summaryDetail(doc, "Bought By"),
		Quantity:       summaryDetail(doc, "Total Quantity"),
		Type:           summaryDetail(doc, "Type"),
		Specifications: specifications(doc),
		Branch:         branchName(doc),
		DetailURL:      detailURL,
	}
	return record, nil
}

// inputValue reads the value of an input or the text of a textarea.
func inputValue(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if v, ok := sel.Attr("value"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

// summaryDetail finds a labelled row in the detail summary block.
func summaryDetail(doc *goquery.Document, label string) string {
	value := ""
	doc.Find(".detail-view .detail").EachWithBreak(func(_ int, detail *goquery.Selection) bool {
		strong := detail.Find("strong").First()
		if !strings.Contains(strong.Text(), label) {
			return true
		}
		text := strings.Replace(detail.Text(), strong.Text(), "", 1)
		value = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), ":;- "))
		return false
	})
	return orNA(value)
}

func specifications(doc *goquery.Document) map[string]types.Specification {
	specs := make(map[string]types.Specification)
	doc.Find("#w3 table.table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		field := strings.TrimSpace(cells.Eq(0).Text())
		if field == "" {
			return
		}

		value := strings.TrimSpace(row.Find("td:nth-child(2) a").First().Text())
		if value == "" {
			value = strings.TrimSpace(cells.Eq(1).Text())
		}

		specs[field] = types.Specification{
			Value:       orNA(value),
			Status:      orNA(strings.TrimSpace(row.Find("td.status").First().Text())),
			LastChecked: orNA(strings.TrimSpace(row.Find("td.last-checked").First().Text())),
		}
	})
	return specs
}

func branchName(doc *goquery.Document) string {
	return orNA(strings.TrimSpace(doc.Find(`a[href="#select-branch-modal"] span`).First().Text()))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
