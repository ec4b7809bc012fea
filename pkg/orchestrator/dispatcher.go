package orchestrator

import (
	"context"

	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// StartScrape creates a fan-out session and dispatches one worker per
// competitor, all in parallel. The returned handle's Response channel yields
// the single terminal response.
//
// A competitor with no catalog entry is skipped and never reports; it is
// still counted in the expected total, so the session closes partially on
// timeout rather than pretending the target succeeded.
func (o *Orchestrator) StartScrape(req types.ScrapeRequest) Handle {
	id := newSessionID()
	h := o.registry.Create(id, KindFanOut, len(req.Competitors))
	o.log.Infof("session %s: fan-out scrape %q across %d targets", id, req.Query, len(req.Competitors))

	if len(req.Competitors) == 0 {
		o.registry.ResolveAccumulated(id, false)
		return h
	}
	o.registry.SetCategory(id, req.Category)

	params := scrape.SearchParams{
		Query:       req.Query,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Model:       req.Model,
		Attributes:  req.Attributes,
	}
	for _, name := range req.Competitors {
		target, ok := o.catalog.Target(name)
		if !ok {
			o.log.Warnf("session %s: no extraction config for %q, skipping", id, name)
			continue
		}
		go o.runFanOutWorker(id, target, params)
	}

	o.watch(id, o.opts.FanOutTimeout)
	return h
}

// runFanOutWorker drives one competitor: open an isolated worker, navigate to
// the resolved search destination, extract, and feed the batch back. Every
// failure is converted into an error-carrying batch that still counts toward
// completion, so one broken target never stalls the session.
func (o *Orchestrator) runFanOutWorker(id string, target scrape.Target, params scrape.SearchParams) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.FanOutTimeout)
	defer cancel()

	fail := func(err error) {
		o.log.Warnf("session %s: target %s failed: %v", id, target.Name, err)
		o.registry.AppendBatch(id, []types.PriceResult{{Competitor: target.Name, Error: err.Error()}})
	}

	dest, err := o.catalog.BuildSearchURL(target.Name, params)
	if err != nil {
		fail(err)
		return
	}

	w, err := o.factory.StartWorker(ctx)
	if err != nil {
		fail(err)
		return
	}
	// closed at session resolution at the latest; Close is idempotent
	o.registry.AddCleanup(id, func() { _ = w.Close() })

	if err := w.Navigate(ctx, dest); err != nil {
		fail(err)
		return
	}
	html, err := w.Content(ctx)
	if err != nil {
		fail(err)
		return
	}
	results, err := scrape.ExtractPriceResults(html, target)
	if err != nil {
		fail(err)
		return
	}

	o.log.Debugf("session %s: target %s delivered %d results", id, target.Name, len(results))
	o.registry.AppendBatch(id, results)
	_ = w.Close()
}
