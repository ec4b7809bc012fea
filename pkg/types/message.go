// Package types defines the message protocol and result records shared by the
// orchestrator, the browser worker layer, and the caller-facing server.
package types

import "encoding/json"

// Action identifies the kind of message carried by an Envelope.
type Action string

const (
	ActionScrape               Action = "scrape"               // ActionScrape starts a fan-out price-comparison session.
	ActionScrapeStockBarcodes  Action = "scrapeStockBarcodes"  // ActionScrapeStockBarcodes starts a sequential barcode lookup session.
	ActionMarkExternallyListed Action = "markExternallyListed" // ActionMarkExternallyListed starts the single-item flag-update workflow.
	ActionScrapedData          Action = "scrapedData"          // ActionScrapedData delivers a fan-out worker's result batch.
	ActionStockData            Action = "stockData"            // ActionStockData delivers one sequential result record.
	ActionWorkerReady          Action = "workerReady"          // ActionWorkerReady signals a worker context finished initializing.
	ActionStartScraping        Action = "startScraping"        // ActionStartScraping instructs a worker to begin extraction.
	ActionAbortScraping        Action = "abortScraping"        // ActionAbortScraping instructs a worker to stop.
)

// Envelope is the wire form of every message: an action tag and a payload.
// RequestID is chosen by the caller and echoed on the response so callers can
// correlate replies on a shared connection.
type Envelope struct {
	Action    Action          `json:"action"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ScrapeRequest asks for a parallel price scrape across competitor sites.
type ScrapeRequest struct {
	Query       string            `json:"query"`
	Competitors []string          `json:"competitors"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	Model       string            `json:"model,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// StockLookupRequest asks for a sequential per-barcode stock lookup.
type StockLookupRequest struct {
	Barcodes []string `json:"barcodes"`
}

// MarkListedRequest asks for the externally-listed flag to be set on one item.
type MarkListedRequest struct {
	SerialNumber string `json:"serialNumber"`
}

// MarkListedResult reports the outcome of a flag-update session. Updated is
// false when the flag already held the desired value and no save was needed.
type MarkListedResult struct {
	SerialNumber string `json:"serialNumber"`
	Updated      bool   `json:"updated"`
}

// StartWork is sent orchestrator→worker once the worker announces itself
// ready: it carries the selector set the worker extracts with.
type StartWork struct {
	SessionID  string            `json:"sessionId"`
	Competitor string            `json:"competitor"`
	Category   string            `json:"category,omitempty"`
	Selectors  map[string]string `json:"selectors"`
}

// ResultBatch is delivered worker→orchestrator when a fan-out worker finishes.
// A batch with Error set and no results still counts toward completion; one
// failed target never blocks the session.
type ResultBatch struct {
	SessionID  string        `json:"sessionId"`
	Competitor string        `json:"competitor"`
	Results    []PriceResult `json:"results"`
	Error      string        `json:"error,omitempty"`
}

// StockResult delivers one sequential result record from an externally
// connected worker, addressed by the item's input index.
type StockResult struct {
	SessionID string      `json:"sessionId"`
	Index     int         `json:"index"`
	Record    StockRecord `json:"record"`
}

// WorkerReady signals that a worker context finished initializing. An
// externally connected worker names the competitor it opened so the reply
// can carry that target's extraction instructions.
type WorkerReady struct {
	SessionID  string `json:"sessionId"`
	Competitor string `json:"competitor,omitempty"`
}

// AbortRequest asks for early termination of a session.
type AbortRequest struct {
	SessionID string `json:"sessionId"`
}

// SessionResponse is the single terminal response of a session. Results holds
// []PriceResult for fan-out sessions and []StockRecord for sequential ones.
type SessionResponse struct {
	Success bool        `json:"success"`
	Partial bool        `json:"partial,omitempty"`
	Error   string      `json:"error,omitempty"`
	Results interface{} `json:"results,omitempty"`
}

// NewSuccessResponse builds a full-success terminal response.
func NewSuccessResponse(results interface{}) *SessionResponse {
	return &SessionResponse{Success: true, Results: results}
}

// NewPartialResponse builds the best-effort response produced on timeout.
func NewPartialResponse(results interface{}) *SessionResponse {
	return &SessionResponse{Success: true, Partial: true, Results: results}
}

// NewFailureResponse builds the terminal response for a session-level failure.
func NewFailureResponse(reason string) *SessionResponse {
	return &SessionResponse{Success: false, Error: reason}
}
