package types

// PriceResult is one listing scraped from a competitor's search results.
type PriceResult struct {
	Competitor string  `json:"competitor"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Store      string  `json:"store,omitempty"`
	URL        string  `json:"url,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Specification is one row of a stock item's specification table.
type Specification struct {
	Value       string `json:"value"`
	Status      string `json:"status"`
	LastChecked string `json:"last_checked"`
}

// StockRecord is the outcome of one barcode in a sequential lookup session.
// Exactly one of the three shapes is produced per barcode: a populated record,
// a not-found record, or an error record.
type StockRecord struct {
	Barcode        string                   `json:"barcode"`
	Barserial      string                   `json:"barserial,omitempty"`
	Name           string                   `json:"name,omitempty"`
	Description    string                   `json:"description,omitempty"`
	CostPrice      string                   `json:"cost_price,omitempty"`
	RetailPrice    string                   `json:"retail_price,omitempty"`
	CreatedAt      string                   `json:"created_at,omitempty"`
	BoughtBy       string                   `json:"bought_by,omitempty"`
	Quantity       string                   `json:"quantity,omitempty"`
	Type           string                   `json:"type,omitempty"`
	Specifications map[string]Specification `json:"specifications,omitempty"`
	Branch         string                   `json:"branch,omitempty"`
	DetailURL      string                   `json:"detail_url,omitempty"`
	NotFound       bool                     `json:"notFound,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

const notAvailable = "N/A"

// NewNotFoundRecord builds the explicit not-found outcome for a barcode.
// Distinct from an error record: not finding a match is an expected result.
func NewNotFoundRecord(barcode string) StockRecord {
	return StockRecord{
		Barcode:        barcode,
		Barserial:      notAvailable,
		Name:           notAvailable,
		Description:    notAvailable,
		CostPrice:      notAvailable,
		RetailPrice:    notAvailable,
		CreatedAt:      notAvailable,
		BoughtBy:       notAvailable,
		Quantity:       notAvailable,
		Type:           notAvailable,
		Specifications: map[string]Specification{},
		Branch:         notAvailable,
		NotFound:       true,
	}
}

// NewErrorRecord builds the outcome for a barcode whose extraction failed.
func NewErrorRecord(barcode, errMsg string) StockRecord {
	return StockRecord{Barcode: barcode, Error: errMsg}
}
