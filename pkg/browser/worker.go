package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
)

// playwrightWorker drives a single page inside its own browser context.
type playwrightWorker struct {
	id   string
	bctx playwright.BrowserContext
	page playwright.Page

	navTimeout time.Duration
	log        *logging.Logger

	// onDestroyed lets the manager drop the worker when the page is closed
	// from outside, e.g. the user closing a headed window
	onDestroyed func(id string)

	closeOnce sync.Once
	closeErr  error
}

func newPlaywrightWorker(id string, bctx playwright.BrowserContext, page playwright.Page, navTimeout time.Duration, log *logging.Logger) *playwrightWorker {
	w := &playwrightWorker{
		id:         id,
		bctx:       bctx,
		page:       page,
		navTimeout: navTimeout,
		log:        log,
	}
	page.On("close", func(playwright.Page) {
		if w.onDestroyed != nil {
			w.onDestroyed(w.id)
		}
	})
	return w
}

func (w *playwrightWorker) ID() string { return w.id }

func (w *playwrightWorker) URL() string { return w.page.URL() }

func (w *playwrightWorker) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := w.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(w.timeoutMillis(ctx)),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (w *playwrightWorker) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := w.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (w *playwrightWorker) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(w.timeoutMillis(ctx)),
	}); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

// Submit presses Enter in the control, which submits its owning form.
func (w *playwrightWorker) Submit(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.page.Press(selector, "Enter", playwright.PagePressOptions{
		Timeout: playwright.Float(w.timeoutMillis(ctx)),
	}); err != nil {
		return fmt.Errorf("failed to submit via %s: %w", selector, err)
	}
	return nil
}

func (w *playwrightWorker) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(w.timeoutMillis(ctx)),
	}); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (w *playwrightWorker) IsChecked(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	checked, err := w.page.IsChecked(selector, playwright.PageIsCheckedOptions{
		Timeout: playwright.Float(w.timeoutMillis(ctx)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to read checked state of %s: %w", selector, err)
	}
	return checked, nil
}

func (w *playwrightWorker) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout == 0 {
		timeout = w.navTimeout
	}
	_, err := w.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("timed out waiting for %s: %w", selector, err)
	}
	return nil
}

func (w *playwrightWorker) OnLoad(fn func(url string)) Subscription {
	handler := func(playwright.Page) {
		fn(w.page.URL())
	}
	w.page.On("load", handler)
	return &listenerSubscription{remove: func() {
		w.page.RemoveListener("load", handler)
	}}
}

func (w *playwrightWorker) OnNavigate(fn func(url string)) Subscription {
	handler := func(frame playwright.Frame) {
		// subframe navigations are not page navigations
		if frame != w.page.MainFrame() {
			return
		}
		fn(frame.URL())
	}
	w.page.On("framenavigated", handler)
	return &listenerSubscription{remove: func() {
		w.page.RemoveListener("framenavigated", handler)
	}}
}

func (w *playwrightWorker) OnClose(fn func()) Subscription {
	handler := func(playwright.Page) {
		fn()
	}
	w.page.On("close", handler)
	return &listenerSubscription{remove: func() {
		w.page.RemoveListener("close", handler)
	}}
}

func (w *playwrightWorker) Close() error {
	w.closeOnce.Do(func() {
		if err := w.page.Close(); err != nil {
			w.log.Warnf("failed to close page for worker %s: %v", w.id, err)
		}
		if err := w.bctx.Close(); err != nil {
			w.closeErr = fmt.Errorf("failed to close context for worker %s: %w", w.id, err)
		}
	})
	return w.closeErr
}

// timeoutMillis derives a Playwright timeout from the context deadline,
// falling back to the configured navigation timeout.
func (w *playwrightWorker) timeoutMillis(ctx context.Context) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < w.navTimeout {
			return float64(remaining.Milliseconds())
		}
	}
	return float64(w.navTimeout.Milliseconds())
}

// listenerSubscription removes one registered handler exactly once.
type listenerSubscription struct {
	once   sync.Once
	remove func()
}

func (s *listenerSubscription) Unsubscribe() {
	s.once.Do(s.remove)
}
