package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
	"github.com/allendavis-developer/cashgen-extension/pkg/checkpoint"
	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// Abort reasons for the three session-level failure triggers.
const (
	AbortTabClosed     = "tab closed"
	AbortNavigatedAway = "navigated away"
	AbortMustLogIn     = "must log in"
)

// Options tunes session timing. Zero values take the defaults below.
type Options struct {
	// FanOutTimeout closes a fan-out session partially if targets are
	// still outstanding
	FanOutTimeout time.Duration

	// SequentialTimeout is the ceiling for a whole sequential session
	SequentialTimeout time.Duration

	// PollInterval is how often the completion watcher inspects progress
	PollInterval time.Duration

	// ItemDelayMin and ItemDelayMax bound the randomized pause between
	// sequential items
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
}

const (
	DefaultFanOutTimeout     = 30 * time.Second
	DefaultSequentialTimeout = 5 * time.Minute
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultItemDelayMin      = 1 * time.Second
	DefaultItemDelayMax      = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.FanOutTimeout == 0 {
		o.FanOutTimeout = DefaultFanOutTimeout
	}
	if o.SequentialTimeout == 0 {
		o.SequentialTimeout = DefaultSequentialTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ItemDelayMin == 0 {
		o.ItemDelayMin = DefaultItemDelayMin
	}
	if o.ItemDelayMax == 0 {
		o.ItemDelayMax = DefaultItemDelayMax
	}
	return o
}

// Orchestrator runs sessions against a worker factory. The registry is the
// single source of truth for session state; the orchestrator never caches it
// beyond one callback.
type Orchestrator struct {
	log         *logging.Logger
	registry    *Registry
	factory     browser.Factory
	catalog     *scrape.Catalog
	stock       *scrape.StockConfig
	checkpoints *checkpoint.Store
	opts        Options
}

// New creates an orchestrator. All collaborators are injected; nil catalog or
// stock config fall back to the built-in defaults.
func New(registry *Registry, factory browser.Factory, catalog *scrape.Catalog, stock *scrape.StockConfig, checkpoints *checkpoint.Store, opts Options) *Orchestrator {
	if catalog == nil {
		catalog = scrape.DefaultCatalog()
	}
	if stock == nil {
		stock = scrape.DefaultStockConfig()
	}
	logger, _ := logging.NewLogger("orchestrator")
	return &Orchestrator{
		log:         logger,
		registry:    registry,
		factory:     factory,
		catalog:     catalog,
		stock:       stock,
		checkpoints: checkpoints,
		opts:        opts.withDefaults(),
	}
}

// Scrape runs a fan-out price-comparison session to completion.
func (o *Orchestrator) Scrape(ctx context.Context, req types.ScrapeRequest) *types.SessionResponse {
	return o.await(ctx, o.StartScrape(req))
}

// StockLookup runs a sequential barcode lookup session to completion.
func (o *Orchestrator) StockLookup(ctx context.Context, req types.StockLookupRequest) *types.SessionResponse {
	return o.await(ctx, o.StartStockLookup(req))
}

// MarkListed runs the single-item flag-update session to completion.
func (o *Orchestrator) MarkListed(ctx context.Context, req types.MarkListedRequest) *types.SessionResponse {
	return o.await(ctx, o.StartMarkListed(req))
}

// DeliverBatch feeds a result batch from an externally-connected worker into
// its session. Returns false when the session no longer exists; the late
// batch is dropped silently.
func (o *Orchestrator) DeliverBatch(batch types.ResultBatch) bool {
	results := batch.Results
	if batch.Error != "" && len(results) == 0 {
		results = []types.PriceResult{{Competitor: batch.Competitor, Error: batch.Error}}
	}
	return o.registry.AppendBatch(batch.SessionID, results)
}

// DeliverRecord feeds one sequential result record from an externally
// connected worker into its session. Duplicate indexes and records for
// resolved sessions are dropped.
func (o *Orchestrator) DeliverRecord(res types.StockResult) bool {
	return o.registry.RecordItem(res.SessionID, res.Index, res.Record)
}

// WorkerReady hands an externally-connected worker its extraction
// instructions: the selector set and category hint for the competitor it
// opened. A ready signal without a competitor is just noted; unknown
// sessions and competitors yield no instructions.
func (o *Orchestrator) WorkerReady(sessionID, competitor string) (*types.StartWork, bool) {
	category, ok := o.registry.Category(sessionID)
	if !ok {
		return nil, false
	}
	if competitor == "" {
		o.log.Debugf("worker ready for session %s", sessionID)
		return nil, false
	}
	target, ok := o.catalog.Target(competitor)
	if !ok {
		o.log.Warnf("session %s: ready worker names unknown competitor %q", sessionID, competitor)
		return nil, false
	}
	o.log.Debugf("session %s: handing %s instructions to worker", sessionID, target.Name)
	return &types.StartWork{
		SessionID:  sessionID,
		Competitor: target.Name,
		Category:   category,
		Selectors:  target.Selectors.Map(),
	}, true
}

// AbortSession terminates a session on the caller's request.
func (o *Orchestrator) AbortSession(sessionID string) bool {
	return o.registry.Abort(sessionID, "aborted by caller")
}

// await blocks until the session's terminal response. Context cancellation
// aborts the session; the terminal response still arrives exactly once.
func (o *Orchestrator) await(ctx context.Context, h Handle) *types.SessionResponse {
	select {
	case resp := <-h.Response:
		return resp
	case <-ctx.Done():
		o.registry.Abort(h.ID, "cancelled")
		return <-h.Response
	}
}

// itemDelay returns the randomized pause applied between sequential items.
func (o *Orchestrator) itemDelay() time.Duration {
	lo, hi := o.opts.ItemDelayMin, o.opts.ItemDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

// newSessionID returns a fresh opaque session token.
func newSessionID() string {
	return uuid.New().String()
}
