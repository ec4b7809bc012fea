package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
	"github.com/allendavis-developer/cashgen-extension/pkg/checkpoint"
	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// StartStockLookup creates a sequential session that walks the barcode list
// one item per full page round-trip. Each submission destroys the page's
// script world, so no in-memory state survives between items: every load
// event re-derives the workflow position from the persisted checkpoint.
func (o *Orchestrator) StartStockLookup(req types.StockLookupRequest) Handle {
	id := newSessionID()
	h := o.registry.Create(id, KindSequential, len(req.Barcodes))
	o.log.Infof("session %s: sequential lookup of %d barcodes", id, len(req.Barcodes))

	if len(req.Barcodes) == 0 {
		o.registry.ResolveAccumulated(id, false)
		return h
	}

	cp := &checkpoint.Checkpoint{SessionID: id, Items: req.Barcodes, NextIndex: 0}
	if err := o.checkpoints.Save(cp); err != nil {
		o.registry.Resolve(id, types.NewFailureResponse("failed to persist checkpoint: "+err.Error()))
		return h
	}
	o.registry.AddCleanup(id, func() { _ = o.checkpoints.Delete(id) })

	w, err := o.factory.StartWorker(context.Background())
	if err != nil {
		o.registry.Resolve(id, types.NewFailureResponse("failed to start worker: "+err.Error()))
		return h
	}
	o.registry.SetWorker(id, w.ID())
	o.registry.AddCleanup(id, func() { _ = w.Close() })

	o.attachGuards(id, w)
	subLoad := w.OnLoad(func(url string) {
		go o.resumeStockLookup(id, w, url)
	})
	o.registry.AddCleanup(id, subLoad.Unsubscribe)

	o.watch(id, o.opts.SequentialTimeout)

	go func() {
		if err := w.Navigate(context.Background(), o.stock.SearchURL); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to open stock search: "+err.Error()))
		}
	}()
	return h
}

// resumeStockLookup is the state machine's single transition, run on every
// (re)initialization of the page. The current page is interpreted as the
// observable outcome of the previously dispatched item, then the next item
// is dispatched with the checkpoint advanced before the navigation it
// triggers.
func (o *Orchestrator) resumeStockLookup(id string, w browser.Worker, pageURL string) {
	cp, err := o.checkpoints.Load(id)
	if err != nil {
		// no checkpoint means no active sequential workflow here
		return
	}
	if !o.registry.Exists(id) {
		return
	}

	kind := o.stock.Classify(pageURL)
	switch kind {
	case scrape.PageLogin:
		o.abortForLogin(id, w)
		return
	case scrape.PageUnknown:
		o.registry.Abort(id, AbortNavigatedAway)
		return
	}

	prev := cp.NextIndex - 1
	if prev >= 0 && prev < len(cp.Items) {
		o.registry.RecordItem(id, prev, o.stockOutcome(w, kind, cp.Items[prev], pageURL))
	}

	for {
		if cp.NextIndex >= len(cp.Items) {
			o.registry.ResolveAccumulated(id, false)
			return
		}

		if cp.NextIndex > 0 {
			time.Sleep(o.itemDelay())
		}
		if !o.registry.Exists(id) {
			return
		}

		idx := cp.NextIndex
		item := cp.Items[idx]
		input := o.stock.InputFor(kind)
		ctx := context.Background()

		fillErr := w.Fill(ctx, input, item)

		// the checkpoint must advance before anything that can navigate,
		// so the next load attributes the page to the right item
		cp.NextIndex++
		if err := o.checkpoints.Save(cp); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to persist checkpoint: "+err.Error()))
			return
		}

		if fillErr != nil {
			o.registry.RecordItem(id, idx, types.NewErrorRecord(item, fillErr.Error()))
			continue
		}
		if err := w.Submit(ctx, input); err != nil {
			o.registry.RecordItem(id, idx, types.NewErrorRecord(item, err.Error()))
			continue
		}
		// navigation under way; the next load event resumes the machine
		return
	}
}

// stockOutcome classifies the current page as the outcome of one barcode.
// A detail page yields the extracted record, the listing page yields the
// explicit not-found record.
func (o *Orchestrator) stockOutcome(w browser.Worker, kind scrape.PageKind, barcode, pageURL string) types.StockRecord {
	if kind != scrape.PageDetail {
		return types.NewNotFoundRecord(barcode)
	}

	html, err := w.Content(context.Background())
	if err != nil {
		return types.NewErrorRecord(barcode, "failed to read detail page: "+err.Error())
	}
	rec, err := scrape.ExtractStockRecord(html, barcode, pageURL)
	if err != nil {
		// the site routes some misses through a bare detail URL; an
		// empty view there is a no-match, only the edit form promises
		// item markup
		if errors.Is(err, scrape.ErrNoDetailContent) && !o.stock.IsEditURL(pageURL) {
			return types.NewNotFoundRecord(barcode)
		}
		return types.NewErrorRecord(barcode, err.Error())
	}
	return rec
}
