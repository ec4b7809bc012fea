package orchestrator

import (
	"sync"

	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// Registry is the process-wide table of in-flight sessions and the only piece
// of shared mutable state. Every operation on an absent (already removed)
// session id is a silent no-op: once a session's terminal response has been
// produced, late results, aborts, and timer fires cannot mutate it.
type Registry struct {
	mu       sync.Mutex
	log      *logging.Logger
	sessions map[string]*session
}

// NewRegistry creates an empty registry. One registry lives for the process;
// it is injected into every component that touches session state.
func NewRegistry() *Registry {
	logger, _ := logging.NewLogger("registry")
	return &Registry{log: logger, sessions: make(map[string]*session)}
}

// Create registers a new session and returns its handle. The expected total
// is fixed at creation; the session is done when that many results arrived.
func (r *Registry) Create(id string, kind Kind, expectedTotal int) Handle {
	s := &session{
		id:            id,
		kind:          kind,
		expectedTotal: expectedTotal,
		stockResults:  make(map[int]types.StockRecord),
		respond:       make(chan *types.SessionResponse, 1),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return Handle{ID: id, Response: s.respond}
}

// Exists reports whether the session is still in flight.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Progress returns the session's completed and expected counts.
func (r *Registry) Progress(id string) (completed, expected int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return 0, 0, false
	}
	return s.completed, s.expectedTotal, true
}

// SetWorker binds the single worker driving a sequential session.
func (r *Registry) SetWorker(id, workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.workerID = workerID
	}
}

// SetCategory records the caller's category hint, handed to externally
// connected workers with their extraction instructions.
func (r *Registry) SetCategory(id, category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.category = category
	}
}

// Category returns the session's category hint; ok is false once the
// session resolved.
func (r *Registry) Category(id string) (category string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	return s.category, true
}

// AddCleanup registers a function to run when the session is removed. If the
// session is already gone the cleanup runs immediately.
func (r *Registry) AddCleanup(id string, fn func()) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		s.cleanups = append(s.cleanups, fn)
	}
	r.mu.Unlock()
	if !ok {
		fn()
	}
}

// AppendBatch feeds a fan-out result batch into the session and counts one
// target as completed. Returns false if the session no longer exists.
func (r *Registry) AppendBatch(id string, results []types.PriceResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.priceResults = append(s.priceResults, results...)
	s.completed++
	return true
}

// RecordItem stores the outcome of one sequential item, addressed by its
// input index. Recording an index that already holds a result is a no-op, so
// a duplicated page-load classification never emits a duplicate record.
func (r *Registry) RecordItem(id string, index int, rec types.StockRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if _, dup := s.stockResults[index]; dup {
		return false
	}
	s.stockResults[index] = rec
	s.completed++
	return true
}

// resolveWith removes the session and delivers the response the builder
// produces from its final state. The first terminal path for a given id wins;
// every later caller (a racing timeout, a late result, a second abort
// trigger) gets false and must do nothing. The builder runs after removal, so
// the accumulated results it sees can no longer change.
func (r *Registry) resolveWith(id string, build func(*session) *types.SessionResponse) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	for _, fn := range s.cleanups {
		fn()
	}
	resp := build(s)
	s.respond <- resp
	r.log.Debugf("session %s resolved (success=%v partial=%v)", id, resp.Success, resp.Partial)
	return true
}

// Resolve delivers a fixed terminal response.
func (r *Registry) Resolve(id string, resp *types.SessionResponse) bool {
	return r.resolveWith(id, func(*session) *types.SessionResponse { return resp })
}

// ResolveAccumulated delivers the session's accumulated results: fan-out
// batches in arrival order, sequential records in input-index order. Partial
// marks the timeout path's best-effort response.
func (r *Registry) ResolveAccumulated(id string, partial bool) bool {
	return r.resolveWith(id, func(s *session) *types.SessionResponse {
		var results interface{}
		switch s.kind {
		case KindSequential:
			results = s.orderedStockResults()
		default:
			results = s.priceResults
		}
		if partial {
			return types.NewPartialResponse(results)
		}
		return types.NewSuccessResponse(results)
	})
}

// Abort marks the session aborted and resolves it with a failure response.
// Aborts never return partial results.
func (r *Registry) Abort(id, reason string) bool {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.aborted = true
	}
	r.mu.Unlock()

	if r.resolveWith(id, func(*session) *types.SessionResponse {
		return types.NewFailureResponse(reason)
	}) {
		r.log.Infof("session %s aborted: %s", id, reason)
		return true
	}
	return false
}
