package orchestrator

import (
	"context"
	"strings"

	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
	"github.com/allendavis-developer/cashgen-extension/pkg/checkpoint"
	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// StartMarkListed creates the narrow single-item session that sets the
// externally-listed flag on one stock item. It follows the same
// checkpoint-and-resume discipline as the barcode lookup, but persists a
// single pending identifier instead of an index list. The update is
// idempotent: a flag that already holds the desired value is left alone and
// no save is triggered.
func (o *Orchestrator) StartMarkListed(req types.MarkListedRequest) Handle {
	id := newSessionID()
	h := o.registry.Create(id, KindSequential, 1)

	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		o.registry.Resolve(id, types.NewFailureResponse("serial number is empty"))
		return h
	}
	o.log.Infof("session %s: mark %s externally listed", id, serial)

	pending := &checkpoint.PendingListing{PendingIdentifier: serial}
	if err := o.checkpoints.SavePending(pending); err != nil {
		o.registry.Resolve(id, types.NewFailureResponse("failed to persist pending update: "+err.Error()))
		return h
	}
	o.registry.AddCleanup(id, func() { _ = o.checkpoints.DeletePending() })

	w, err := o.factory.StartWorker(context.Background())
	if err != nil {
		o.registry.Resolve(id, types.NewFailureResponse("failed to start worker: "+err.Error()))
		return h
	}
	o.registry.SetWorker(id, w.ID())
	o.registry.AddCleanup(id, func() { _ = w.Close() })

	o.attachGuards(id, w)
	subLoad := w.OnLoad(func(url string) {
		go o.resumeMarkListed(id, w, url)
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

// resumeMarkListed advances the flag-update machine on every page load.
// Search page, not yet dispatched: submit the identifier. Detail page:
// inspect the flag, click and save only when it is unset. Search page after
// dispatch: the identifier matched nothing.
func (o *Orchestrator) resumeMarkListed(id string, w browser.Worker, pageURL string) {
	pending, err := o.checkpoints.LoadPending()
	if err != nil {
		return
	}
	if !o.registry.Exists(id) {
		return
	}

	kind := o.stock.Classify(pageURL)
	ctx := context.Background()

	switch kind {
	case scrape.PageLogin:
		o.abortForLogin(id, w)

	case scrape.PageSearch:
		if pending.Dispatched {
			o.registry.Resolve(id, types.NewFailureResponse("stock item not found"))
			return
		}
		input := o.stock.SearchInput
		if err := w.Fill(ctx, input, pending.PendingIdentifier); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to fill search input: "+err.Error()))
			return
		}
		pending.Dispatched = true
		if err := o.checkpoints.SavePending(pending); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to persist pending update: "+err.Error()))
			return
		}
		if err := w.Submit(ctx, input); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to submit search: "+err.Error()))
		}

	case scrape.PageDetail:
		checked, err := w.IsChecked(ctx, o.stock.ListedCheckbox)
		if err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to read listed flag: "+err.Error()))
			return
		}
		if pending.Updated || checked {
			o.registry.Resolve(id, types.NewSuccessResponse(types.MarkListedResult{
				SerialNumber: pending.PendingIdentifier,
				Updated:      pending.Updated,
			}))
			return
		}
		if err := w.Click(ctx, o.stock.ListedCheckbox); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to toggle listed flag: "+err.Error()))
			return
		}
		// persist before the save click reloads the page
		pending.Updated = true
		if err := o.checkpoints.SavePending(pending); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to persist pending update: "+err.Error()))
			return
		}
		if err := w.Click(ctx, o.stock.SaveButton); err != nil {
			o.registry.Resolve(id, types.NewFailureResponse("failed to save stock item: "+err.Error()))
		}

	default:
		o.registry.Abort(id, AbortNavigatedAway)
	}
}
