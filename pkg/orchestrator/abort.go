package orchestrator

import (
	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
)

// attachGuards wires the abort triggers that can fire at any point of a
// sequential session: the worker being destroyed externally, a navigation
// off the allow-list, and a redirect to the login page. Each handle is
// unsubscribed when the session resolves.
func (o *Orchestrator) attachGuards(id string, w browser.Worker) {
	subClose := w.OnClose(func() {
		go o.registry.Abort(id, AbortTabClosed)
	})
	o.registry.AddCleanup(id, subClose.Unsubscribe)

	subNav := w.OnNavigate(func(url string) {
		switch o.stock.Classify(url) {
		case scrape.PageSearch, scrape.PageDetail:
		case scrape.PageLogin:
			go o.abortForLogin(id, w)
		default:
			go o.registry.Abort(id, AbortNavigatedAway)
		}
	})
	o.registry.AddCleanup(id, subNav.Unsubscribe)
}

// abortForLogin is the one abort that also tears the worker down: leaving a
// logged-out page open invites the user to interact with a dead session.
func (o *Orchestrator) abortForLogin(id string, w browser.Worker) {
	if o.registry.Abort(id, AbortMustLogIn) {
		_ = w.Close()
	}
}
