// Package orchestrator coordinates browser-tab automation sessions: parallel
// fan-out price scraping and sequential checkpointed workflows that survive
// the destruction of their page context. Every session produces exactly one
// terminal response, whichever of completion, timeout, or abort fires first.
package orchestrator

import (
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// Kind distinguishes the two session shapes.
type Kind int

const (
	// KindFanOut runs one worker per target in parallel, results unordered.
	KindFanOut Kind = iota
	// KindSequential runs one worker through an ordered item list, one item
	// per full page round-trip.
	KindSequential
)

// session is one in-flight orchestration run. All mutation happens through
// the Registry under its lock; nothing outside the registry holds a session
// past a single callback's scope.
type session struct {
	id            string
	kind          Kind
	workerID      string
	category      string
	expectedTotal int
	completed     int
	aborted       bool

	// priceResults accumulates fan-out batches in arrival order
	priceResults []types.PriceResult

	// stockResults is index-addressed so duplicate classification of the
	// same item is a no-op and final output follows input order
	stockResults map[int]types.StockRecord

	// respond carries the single terminal response; buffered so the
	// resolving goroutine never blocks on a caller
	respond chan *types.SessionResponse

	// cleanups run exactly once, when the session is removed: listener
	// unsubscribes, worker shutdown, checkpoint deletion
	cleanups []func()
}

// Handle is the caller's view of a created session.
type Handle struct {
	ID string

	// Response yields the session's single terminal response.
	Response <-chan *types.SessionResponse
}

// orderedStockResults flattens the index-addressed map into input order.
// Indexes never recorded (abort cut the run short) are simply absent.
func (s *session) orderedStockResults() []types.StockRecord {
	out := make([]types.StockRecord, 0, len(s.stockResults))
	for i := 0; i < s.expectedTotal; i++ {
		if rec, ok := s.stockResults[i]; ok {
			out = append(out, rec)
		}
	}
	return out
}
